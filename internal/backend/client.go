// Package backend is the HTTP client of the surgical backend REST API. It
// implements the Backend interface of every domain package.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pediconsent/portal/internal/platform/apierror"
	"github.com/pediconsent/portal/internal/platform/breaker"
	"github.com/pediconsent/portal/internal/platform/jsoncodec"
	"github.com/pediconsent/portal/internal/platform/metrics"
	"github.com/pediconsent/portal/internal/platform/middleware"
)

const maxResponseBytes = 10 << 20

type Config struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
	Metrics         *metrics.Metrics
	Logger          zerolog.Logger
	// Transport overrides the default transport, for tests.
	Transport http.RoundTripper
}

// Client calls the backend with the caller's credentials. Nothing is retried:
// a failed call surfaces to the user, who decides to try again.
type Client struct {
	base    *url.URL
	client  *http.Client
	stream  *http.Client
	breaker *breaker.Breaker
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxConnsPerHost:     50,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}

	c := &Client{
		base:    base,
		client:  &http.Client{Timeout: timeout, Transport: transport},
		stream:  &http.Client{Transport: transport},
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With().Str("component", "backend").Logger(),
	}
	c.breaker = breaker.New(cfg.BreakerFailures, cfg.BreakerCooldown, breaker.OnStateChange(c.breakerChanged))
	return c, nil
}

func (c *Client) breakerChanged(s breaker.State) {
	gauge := 0
	switch s {
	case breaker.HalfOpen:
		gauge = 1
	case breaker.Open:
		gauge = 2
	}
	c.metrics.SetBreakerState(gauge)
	c.logger.Warn().Str("state", s.String()).Msg("backend circuit breaker changed state")
}

// BreakerState reports the breaker state, for readiness checks.
func (c *Client) BreakerState() breaker.State {
	return c.breaker.State()
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	token  string
	body   any
	out    any
}

func (c *Client) url(path string, query url.Values) (string, error) {
	u := *c.base
	// path segments arrive escaped by the caller.
	u.RawPath = c.base.EscapedPath() + path
	p, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	u.Path = p
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c *Client) newRequest(ctx context.Context, k call) (*http.Request, error) {
	var body io.Reader
	if k.body != nil {
		b, err := jsoncodec.Marshal(k.body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal body: %w", k.op, err)
		}
		body = bytes.NewReader(b)
	}
	target, err := c.url(k.path, k.query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", k.op, err)
	}
	req, err := http.NewRequestWithContext(ctx, k.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", k.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if k.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if k.token != "" {
		req.Header.Set("Authorization", "Bearer "+k.token)
	}
	if rid := middleware.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set(middleware.RequestIDHeader, rid)
	}
	return req, nil
}

// send performs one request through the breaker. On success the caller owns
// the response body; any non-2xx answer is turned into an *apierror.Error.
func (c *Client) send(ctx context.Context, hc *http.Client, k call) (*http.Response, error) {
	if err := c.breaker.Allow(); err != nil {
		c.metrics.ObserveBackend(k.op, 0, 0)
		return nil, fmt.Errorf("%s: %w", k.op, apierror.ErrUnavailable)
	}
	req, err := c.newRequest(ctx, k)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.metrics.ObserveBackend(k.op, 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", k.op, ctx.Err())
		}
		c.breaker.RecordFailure()
		c.logger.Error().Err(err).Str("operation", k.op).Msg("backend unreachable")
		return nil, fmt.Errorf("%s: %w: %v", k.op, apierror.ErrUnavailable, err)
	}
	c.metrics.ObserveBackend(k.op, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := decodeError(k.op, resp)
		if resp.StatusCode >= 500 {
			c.logger.Error().Str("operation", k.op).Int("status", resp.StatusCode).Str("detail", apiErr.Detail).Msg("backend error")
		}
		return nil, apiErr
	}
	return resp, nil
}

// do runs a JSON call and decodes the answer into k.out.
func (c *Client) do(ctx context.Context, k call) error {
	resp, err := c.send(ctx, c.client, k)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if k.out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}
	if err := jsoncodec.Decode(io.LimitReader(resp.Body, maxResponseBytes), k.out); err != nil {
		return fmt.Errorf("%s: decode response: %w", k.op, err)
	}
	return nil
}

// errorBody is the backend's error envelope. detail is either a message or
// a list of validation errors.
type errorBody struct {
	Detail any `json:"detail"`
}

func decodeError(op string, resp *http.Response) *apierror.Error {
	apiErr := &apierror.Error{Op: op, Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var body errorBody
	if err := jsoncodec.Unmarshal(raw, &body); err != nil {
		return apiErr
	}
	apiErr.Detail = detailText(body.Detail)
	return apiErr
}

func detailText(d any) string {
	switch v := d.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		msgs := make([]string, 0, len(v))
		for _, item := range v {
			switch e := item.(type) {
			case string:
				msgs = append(msgs, e)
			case map[string]any:
				if m, ok := e["msg"].(string); ok && m != "" {
					msgs = append(msgs, m)
				}
			}
		}
		return strings.Join(msgs, " ; ")
	}
	return ""
}

// Ping checks that the backend answers, for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, call{op: "health", method: http.MethodGet, path: "/health"})
}
