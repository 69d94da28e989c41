// Client for a running capture server
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/songbot/internal/shared"
)

// CaptureClient makes raw HTTP requests to a capture server.
type CaptureClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCaptureClient creates a client for the capture server at baseURL.
func NewCaptureClient(baseURL string, client *http.Client) *CaptureClient {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:3939"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &CaptureClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// Response is a raw response with status and body.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// Get performs a GET request to the specified path and returns the raw response.
func (c *CaptureClient) Get(ctx context.Context, path string) (*Response, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Ping checks that a capture server answers /ping with "pong".
func (c *CaptureClient) Ping(ctx context.Context) error {
	resp, err := c.Get(ctx, "/ping")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK || resp.Text() != "pong" {
		return fmt.Errorf("%w: unexpected ping response: %d %q", shared.ErrAPIRequest, resp.StatusCode, resp.Text())
	}
	return nil
}
