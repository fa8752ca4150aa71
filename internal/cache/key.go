package cache

import "net/url"

const keyPrefix = "fixturegw:resp:"

// NormalizeKey derives the cache key for a request URL: path plus the query
// re-encoded with sorted parameter names, so parameter order never splits the
// cache. Host is intentionally excluded; the gateway serves a single route
// family and replicas must share entries regardless of the hostname they were
// reached on.
func NormalizeKey(u *url.URL) string {
	key := keyPrefix + u.Path
	if enc := u.Query().Encode(); enc != "" { // Encode sorts keys
		key += "?" + enc
	}
	return key
}

// UpstreamKey derives the cache key for an upstream resource, such as the
// league directory, keyed by its full URL.
func UpstreamKey(rawURL string) string {
	return "fixturegw:upstream:" + rawURL
}
