package httperr

const (
	HttpInternalError        = "internal_error"
	HttpUpstreamError        = "upstream_error"
	HttpDirectoryUnavailable = "directory_unavailable"
)

// ErrorResponse is the JSON error body returned by the gateway.
type ErrorResponse struct {
	Error string `json:"error"`
}
