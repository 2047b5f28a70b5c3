package httpx

import (
	"net/http"
)

// Client is a small HTTP client that prepends a base URL to request
// paths, adapted from rig's connect/httpx/client.go — junta only needs
// it to poll the ops endpoint Serve mounts (e.g. from an operator
// script or a test), so it drops rig's Endpoint/wiring resolution in
// favor of a plain base URL string.
type Client struct {
	// BaseURL is prepended to all request paths (e.g. "http://127.0.0.1:8080").
	// Must not have a trailing slash.
	BaseURL string

	// HTTP is the underlying http.Client. If nil, http.DefaultClient is used.
	HTTP *http.Client
}

// NewClient creates an HTTP client for the given base URL string.
func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// Get sends a GET request to BaseURL + path.
func (c *Client) Get(path string) (*http.Response, error) {
	return c.httpClient().Get(c.BaseURL + path)
}

// Healthy reports whether a GET to "/healthz" returned 200.
func (c *Client) Healthy() bool {
	resp, err := c.Get("/healthz")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
