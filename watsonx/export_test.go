package watsonx

import "net/http"

// DefaultTimeout exports defaultTimeout for testing.
const DefaultTimeout = defaultTimeout

// TokenHTTPClient returns the HTTP client used by c.
func TokenHTTPClient(c *TokenCache) *http.Client {
	return c.httpClient
}

// HTTPClient returns the HTTP client used by c.
func HTTPClient(c *Client) *http.Client {
	return c.httpClient
}
