package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/doridoridoriand/netmon/internal/httpx"
)

const maxBodyBytes = 64 * 1024

// Response is the subset of an HTTP response the assessor looks at.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client performs a single GET without following redirects.
type Client interface {
	Get(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error)
}

// HTTPClient is the net/http backed Client.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient returns a Client that never follows redirects on its own.
func NewHTTPClient(userAgent string) *HTTPClient {
	return &HTTPClient{client: httpx.NewClient(httpx.ClientConfig{UserAgent: userAgent})}
}

// Get issues a GET bounded by timeout and reads at most 64KB of the body.
func (c *HTTPClient) Get(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain;q=0.9, */*;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
