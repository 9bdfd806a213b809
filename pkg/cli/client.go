package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// APIError carries the server's error response body.
type APIError struct {
	HTTPStatus int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.HTTPStatus)
}

// Client talks to the queryd HTTP API. It keeps a cookie jar so the
// session cookie from OpenSession is replayed on subsequent requests.
type Client struct {
	BaseURL string
	APIKey  string
	Token   string

	hc *http.Client
}

// NewClient creates a client for the given host.
func NewClient(baseURL, apiKey, token string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Token:   token,
		hc: &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
		},
	}
}

// Do performs an HTTP request against the API. A non-nil body is JSON-encoded.
// The caller owns the response body.
func (c *Client) Do(method, path string, query url.Values, body any) (*http.Response, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	return resp, nil
}

// JSON performs a request and decodes the JSON response into out, which
// may be nil when the body is not needed. Error responses become *APIError.
func (c *Client) JSON(method, path string, query url.Values, body, out any) error {
	resp, err := c.Do(method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// OpenSession opens a server-side session. The session cookie lands in the
// jar, so every later call on this client is bound to it.
func (c *Client) OpenSession() (*SessionInfo, error) {
	var info SessionInfo
	if err := c.JSON(http.MethodPost, "/v1/sessions", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CloseSession closes the client's server-side session.
func (c *Client) CloseSession() error {
	return c.JSON(http.MethodDelete, "/v1/sessions", nil, nil, nil)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{HTTPStatus: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		_ = json.Unmarshal(data, apiErr)
	}
	return apiErr
}
