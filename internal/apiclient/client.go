package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jwalitptl/schoolmed/pkg/logger"
	"github.com/jwalitptl/schoolmed/pkg/metrics"
)

const (
	DefaultTimeout = 5 * time.Minute

	headerRequestID = "X-Request-ID"
)

// TokenSource supplies the bearer token for the request carried by ctx.
// An empty token sends the request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// StaticToken always returns the same token. Used by the worker and the CLI.
func StaticToken(token string) TokenSource {
	return TokenFunc(func(context.Context) string { return token })
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit paces outgoing calls per second; zero disables pacing.
	RateLimit float64
	Burst     int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client is the single shared HTTP client every service module goes through.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// Request describes one upstream call. Body is JSON-encoded unless it is a *Multipart.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Body     interface{}
	Resource string
}

func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", base, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		tokens:  StaticToken(""),
		logger:  logger.Nop(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured upstream base.
func (c *Client) BaseURL() string { return c.baseURL }

// Send performs the call and never fails: any error is folded into a failure
// envelope whose message is fallback and whose errors carry the cause.
func (c *Client) Send(ctx context.Context, req Request, fallback string) Envelope {
	env, err := c.Do(ctx, req)
	if err != nil {
		c.logger.ZL.Warn().
			Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Str("request_id", RequestIDFromContext(ctx)).
			Msg("upstream call failed")
		if fallback == "" {
			fallback = MsgUnexpected
		}
		env := Failure(fallback, err)
		var se *StatusError
		if errors.As(err, &se) {
			env.StatusCode = se.Code
		}
		return env
	}
	return env
}

// Do performs the call. Timeouts and unreachable networks are returned as failure
// envelopes with a nil error; other failures (encoding, unstructured error
// responses, cancellation) are returned as errors.
func (c *Client) Do(ctx context.Context, req Request) (Envelope, error) {
	start := time.Now()
	env, outcome, err := c.do(ctx, req)
	c.observe(req, outcome, time.Since(start))
	return env, err
}

func (c *Client) do(ctx context.Context, req Request) (Envelope, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Envelope{}, "canceled", fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return Envelope{}, "error", err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(req), body)
	if err != nil {
		return Envelope{}, "error", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token := c.tokens.Token(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		httpReq.Header.Set(headerRequestID, rid)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if env, kind, ok := transportEnvelope(ctx, err); ok {
			return env, kind, nil
		}
		return Envelope{}, "canceled", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if env, kind, ok := transportEnvelope(ctx, err); ok {
			env.StatusCode = resp.StatusCode
			return env, kind, nil
		}
		return Envelope{}, "error", fmt.Errorf("read response body: %w", err)
	}

	c.logger.ZL.Debug().
		Str("method", method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Str("request_id", RequestIDFromContext(ctx)).
		Msg("upstream call")

	env, err := decodeResponse(resp.StatusCode, raw)
	if err != nil {
		return Envelope{}, "error", err
	}
	if env.Success {
		return env, "success", nil
	}
	return env, "failure", nil
}

func (c *Client) url(req Request) string {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func (c *Client) observe(req Request, outcome string, d time.Duration) {
	if c.metrics == nil {
		return
	}
	resource := req.Resource
	if resource == "" {
		resource = "unknown"
	}
	c.metrics.UpstreamRequests.WithLabelValues(resource, req.Method, outcome).Inc()
	c.metrics.UpstreamLatency.WithLabelValues(resource).Observe(d.Seconds())
}

// Ping reports whether the upstream answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("upstream not reachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

func encodeBody(body interface{}) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		return b.encode()
	default:
		payload, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(payload), "application/json", nil
	}
}

// errorProbe detects whether an error response carries a structured body.
type errorProbe struct {
	Success *bool     `json:"success"`
	Message *string   `json:"message"`
	Title   *string   `json:"title"`
	Errors  ErrorList `json:"errors"`
}

func decodeResponse(status int, raw []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	ok := status >= 200 && status < 300

	if ok {
		if len(trimmed) == 0 {
			return Envelope{Success: true, StatusCode: status}, nil
		}
		var env Envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return Envelope{}, &StatusError{Code: status, Body: truncate(trimmed), Err: err}
		}
		env.StatusCode = status
		return env, nil
	}

	var probe errorProbe
	if len(trimmed) > 0 && json.Unmarshal(trimmed, &probe) == nil &&
		(probe.Message != nil || probe.Title != nil || len(probe.Errors) > 0) {
		var env Envelope
		_ = json.Unmarshal(trimmed, &env)
		env.Success = false
		if env.Message == "" && probe.Title != nil {
			env.Message = *probe.Title
		}
		if env.Message == "" {
			env.Message = messageForStatus(status)
		}
		env.StatusCode = status
		return env, nil
	}

	return Envelope{}, &StatusError{Code: status, Body: truncate(trimmed)}
}

func messageForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return MsgUnauthorized
	case status == http.StatusForbidden:
		return MsgForbidden
	case status == http.StatusNotFound:
		return MsgNotFound
	case status >= 500:
		return MsgServerError
	default:
		return MsgUnexpected
	}
}

func truncate(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

// StatusError is returned for error responses without a structured body.
type StatusError struct {
	Code int
	Body string
	Err  error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("upstream responded %d", e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StatusError) Unwrap() error { return e.Err }

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
