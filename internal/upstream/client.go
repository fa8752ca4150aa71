package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// FetchError is returned for any upstream call that did not produce a 2xx
// JSON body. It carries the URL and either the HTTP status or the transport
// cause, and never escapes the client boundary as a panic.
type FetchError struct {
	URL        string
	StatusCode int // 0 when the failure was below HTTP
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("upstream fetch %s: status %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client performs GET calls against the TheSportsDB API family.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient builds a client with an explicit per-call timeout. TheSportsDB
// keys are path components, not headers, so the key is baked into every URL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// AllLeaguesURL is the full league directory endpoint.
func (c *Client) AllLeaguesURL() string {
	return fmt.Sprintf("%s/%s/all_leagues.php", c.baseURL, c.apiKey)
}

// LeagueEventsURL is the next-fixtures endpoint for one league.
func (c *Client) LeagueEventsURL(leagueID string) string {
	return fmt.Sprintf("%s/%s/eventsnextleague.php?id=%s", c.baseURL, c.apiKey, url.QueryEscape(leagueID))
}

// DayEventsURL is the endpoint for all events on one ISO calendar date.
func (c *Client) DayEventsURL(date string) string {
	return fmt.Sprintf("%s/%s/eventsday.php?d=%s", c.baseURL, c.apiKey, url.QueryEscape(date))
}

// FetchJSON performs one GET and returns the body bytes. Any non-2xx status
// or transport error comes back as a *FetchError.
func (c *Client) FetchJSON(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return body, nil
}
