package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxErrorBody = 4 << 10

// RequestObserver receives one observation per HTTP call.
type RequestObserver interface {
	ObserveRequest(source, code string, elapsed time.Duration)
}

// Option configures an adapter.
type Option func(*client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.http = hc }
}

// WithObserver reports every request to obs.
func WithObserver(obs RequestObserver) Option {
	return func(c *client) { c.observer = obs }
}

// client performs authenticated, rate-limited JSON GETs against one host.
type client struct {
	name     string
	baseURL  string
	token    string
	headers  map[string]string
	http     *http.Client
	limiter  *rate.Limiter
	timeout  time.Duration
	observer RequestObserver
}

func newClient(name, baseURL, token string, rps float64, burst int, timeout time.Duration, opts []Option) *client {
	c := &client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		headers: map[string]string{},
		http:    http.DefaultClient,
		timeout: timeout,
	}
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON waits for the limiter, issues the request under the per-call
// timeout and decodes a 2xx body into out.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &UnavailableError{Source: c.name, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building %s request: %w", c.name, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		return &UnavailableError{Source: c.name, Err: err}
	}
	defer resp.Body.Close()
	c.observe(strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UnavailableError{Source: c.name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	return nil
}

func (c *client) observe(code string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(c.name, code, time.Since(start))
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
