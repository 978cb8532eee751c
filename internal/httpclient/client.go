// Package httpclient wraps net/http for listing fetches and file
// transfers: per-request timeouts, redirect following and a shared
// connection pool.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "mapsync/0.1"

// Options configures the shared transport.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 16.
	MaxIdleConnsPerHost int
}

func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 16,
	}
}

// Response is the outcome of a completed request. Latency covers the whole
// exchange including the body transfer.
type Response struct {
	Status  int
	Latency time.Duration
	Body    []byte
}

type Client struct {
	client *http.Client
}

func New(opts Options) *Client {
	if opts.MaxIdleConnsPerHost <= 0 {
		opts = DefaultOptions()
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		client: &http.Client{Transport: transport},
	}
}

// GetText fetches url and returns status, latency and the full body.
// Timeouts and transport failures come back as errors; non-success status
// codes do not, classification is up to the caller.
func (c *Client) GetText(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	var buf bytes.Buffer

	resp, err := c.do(ctx, url, timeout, &buf)
	if err != nil {
		return nil, err
	}
	resp.Body = buf.Bytes()

	return resp, nil
}

// Fetch streams the response body of url into w. The returned Response has
// a nil Body.
func (c *Client) Fetch(ctx context.Context, url string, timeout time.Duration, w io.Writer) (*Response, error) {
	return c.do(ctx, url, timeout, w)
}

// Head issues a HEAD request, measuring round-trip latency.
func (c *Client) Head(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	return &Response{Status: resp.StatusCode, Latency: time.Since(start)}, nil
}

func (c *Client) do(ctx context.Context, url string, timeout time.Duration, w io.Writer) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return nil, fmt.Errorf("cannot read body: %w", err)
	}

	return &Response{Status: resp.StatusCode, Latency: time.Since(start)}, nil
}
