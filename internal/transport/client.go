// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/dashforge/internal/config"
	"github.com/tomtom215/dashforge/internal/metrics"
)

// Metrics route labels.
const (
	RouteCurrent   = "current"
	RouteExternal  = "external"
	RouteSearch    = "search"
	RouteDatastore = "datastore"
)

const defaultMaxErrorBody = 64 * 1024

// Options identify one DHIS2 instance.
type Options struct {
	// Name labels the breaker in logs and metrics.
	Name     string
	URL      string
	Username string
	Password string

	// Timeout overrides TransportConfig.RequestTimeout when set.
	Timeout time.Duration
}

// Client sends requests to {URL}/api/{path} with basic auth.
// It is safe for concurrent use.
type Client struct {
	name     string
	baseURL  string
	username string
	password string

	http         *http.Client
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[[]byte]
	maxErrorBody int64
}

// NewClient creates a Client. A RateLimit of zero disables rate limiting.
func NewClient(opts Options, cfg config.TransportConfig) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = cfg.RequestTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	maxBody := cfg.MaxErrorBody
	if maxBody <= 0 {
		maxBody = defaultMaxErrorBody
	}

	return &Client{
		name:         opts.Name,
		baseURL:      strings.TrimRight(opts.URL, "/"),
		username:     opts.Username,
		password:     opts.Password,
		http:         &http.Client{Timeout: timeout},
		limiter:      limiter,
		breaker:      newBreaker(opts.Name, cfg),
		maxErrorBody: maxBody,
	}
}

// Name returns the breaker name.
func (c *Client) Name() string {
	return c.name
}

// State returns the breaker state: closed, half-open or open.
func (c *Client) State() string {
	return stateToString(c.breaker.State())
}

// URL returns the absolute URL for a resource path. Spaces are escaped;
// everything else is sent as generated.
func (c *Client) URL(path string) string {
	return c.baseURL + "/api/" + strings.ReplaceAll(strings.TrimLeft(path, "/"), " ", "%20")
}

// Get fetches a resource path.
func (c *Client) Get(ctx context.Context, route, path string) ([]byte, error) {
	return c.do(ctx, route, http.MethodGet, path, nil)
}

// Post sends v as JSON.
func (c *Client) Post(ctx context.Context, route, path string, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", path, err)
	}
	return c.do(ctx, route, http.MethodPost, path, body)
}

// PostRaw sends a JSON document as is.
func (c *Client) PostRaw(ctx context.Context, route, path string, body []byte) ([]byte, error) {
	return c.do(ctx, route, http.MethodPost, path, body)
}

// PutRaw replaces the document at path.
func (c *Client) PutRaw(ctx context.Context, route, path string, body []byte) ([]byte, error) {
	return c.do(ctx, route, http.MethodPut, path, body)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, route, path string) error {
	_, err := c.do(ctx, route, http.MethodDelete, path, nil)
	return err
}

func (c *Client) do(ctx context.Context, route, method, path string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Method: method, Path: path, Source: c.name, Err: err}
	}

	out, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, route, method, path, body)
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
		return out, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
		return nil, &Error{Method: method, Path: path, Source: c.name, Err: fmt.Errorf("%w: %v", ErrCircuitOpen, err)}
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		return nil, err
	}
}

func (c *Client) roundTrip(ctx context.Context, route, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, &Error{Method: method, Path: path, Source: c.name, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordBackendRequest(route, 0, time.Since(start))
		return nil, &Error{Method: method, Path: path, Source: c.name, Err: err}
	}
	defer resp.Body.Close()
	metrics.RecordBackendRequest(route, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Method: method,
			Path:   path,
			Source: c.name,
			Status: resp.StatusCode,
			Body:   string(readBodyForError(resp.Body, c.maxErrorBody)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Method: method, Path: path, Source: c.name, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

// readBodyForError reads at most limit bytes of an error body.
func readBodyForError(r io.Reader, limit int64) []byte {
	body, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if int64(len(body)) == limit {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
