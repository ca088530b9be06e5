// Package httpx provides the small JSON-over-HTTP client helpers used
// by the slave registration loop to talk to a master: PostJSON for
// the register exchange, GetJSON for the best-effort master-role
// diagnostic probe run before registering. The scanner's own probing
// is deliberately not built on this client — it needs a non-blocking
// connect with a sub-200ms poll timeout per target across hundreds of
// targets, which net/http's connection-pooled Client doesn't expose,
// so it speaks raw HTTP/1.1 over a syscall-level socket instead.
//
// Generalized from internal/cluster's package-level PostJSON/GetJSON
// in the teacher; here the client lives on a struct so callers can
// configure their own timeout instead of sharing one package-level
// http.Client.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps an *http.Client with a fixed timeout for JSON requests.
type Client struct {
	HTTP *http.Client
}

// New returns a Client with the given request timeout.
func New(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// PostJSON marshals body, POSTs it to url, and decodes the response
// into out (if non-nil). Non-2xx responses return an error including
// the status and a snippet of the response body.
func (c *Client) PostJSON(ctx context.Context, url string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("httpx: encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("httpx: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// GetJSON issues a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("httpx: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("httpx: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("httpx: unexpected status %d: %s", resp.StatusCode, snippet)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpx: decode response: %w", err)
	}
	return nil
}
