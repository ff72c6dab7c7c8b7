// Package api is the client of the document-chat backend REST API.
//
// Every endpoint lives under BACKEND_URL + "/api/v1". Calls other than the
// credential exchanges (token, google, register) and the health probe attach
// the current bearer token. A 401 answer from any call invokes the handler
// registered with SetUnauthorizedHandler before the error is returned.
//
// Failures are reported as *Error values that match the package sentinels
// (ErrUnauthorized, ErrRejected, ErrConflict, ErrNetwork) through errors.Is.
//
// The underlying transport is wrapped with otelhttp so backend calls join the
// caller's trace, and every call is counted in Prometheus.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// BasePath is the versioned prefix of every backend endpoint.
const BasePath = "/api/v1"

// maxErrorBody bounds how much of an error answer is read for its message.
const maxErrorBody = 64 << 10

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	base string
	hc   *http.Client

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

// New returns a Client for the backend at baseURL (scheme://host[:port]).
// timeout bounds each call; zero means no client-side timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewWithHTTPClient returns a Client using hc for transport.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/") + BasePath,
		hc:   hc,
	}
}

// SetToken replaces the bearer token attached to authenticated calls.
// An empty token detaches it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// HasToken reports whether a bearer token is currently attached.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// SetUnauthorizedHandler registers fn to run whenever the backend answers 401.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// call describes one backend request.
type call struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string
	auth        bool
}

// jsonBody encodes v for a JSON request.
func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// do executes rq and decodes a successful JSON answer into out (when non-nil).
func (c *Client) do(ctx context.Context, rq call, out any) error {
	req, err := http.NewRequestWithContext(ctx, rq.method, c.base+rq.path, rq.body)
	if err != nil {
		return &Error{Op: rq.op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if rq.contentType != "" {
		req.Header.Set("Content-Type", rq.contentType)
	}
	if rq.auth {
		c.mu.RLock()
		tok := c.token
		c.mu.RUnlock()
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observe(rq.op, 0, start)
		return &Error{Op: rq.op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	observe(rq.op, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &Error{Op: rq.op, Status: resp.StatusCode, Detail: detailFrom(body)}
		if resp.StatusCode == http.StatusUnauthorized {
			c.unauthorized()
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return &Error{Op: rq.op, Status: resp.StatusCode, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

func (c *Client) unauthorized() {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
