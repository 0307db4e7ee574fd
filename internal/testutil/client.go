// Package testutil provides testing utilities for integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/opsportal/downtime-pipeline/internal/pkg/httputil"
)

// Client is an HTTP client for testing API endpoints. It attaches the
// upstream identity headers the service expects on every request.
type Client struct {
	BaseURL    string
	UserID     string
	UserName   string
	HTTPClient *http.Client
}

// NewClient creates a new test client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
	}
}

// As returns a copy of the client acting as the given upstream identity.
func (c *Client) As(userID, userName string) *Client {
	clone := *c
	clone.UserID = userID
	clone.UserName = userName
	return &clone
}

// GET performs a GET request.
func (c *Client) GET(path string) (*http.Response, error) {
	return c.do(http.MethodGet, path, nil)
}

// POST performs a POST request with JSON body.
func (c *Client) POST(path string, body interface{}) (*http.Response, error) {
	return c.do(http.MethodPost, path, body)
}

func (c *Client) do(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.UserID != "" {
		req.Header.Set(httputil.HeaderUserID, c.UserID)
	}
	if c.UserName != "" {
		req.Header.Set(httputil.HeaderUserName, c.UserName)
	}

	return c.HTTPClient.Do(req)
}

// DecodeJSON reads and unmarshals a response body, then closes it.
func DecodeJSON(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		t.Fatalf("unmarshal response %q: %v", body, err)
	}
}
