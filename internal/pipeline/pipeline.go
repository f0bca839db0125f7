// Package pipeline issues authenticated requests to the upstream directory
// API and absorbs its failure modes: throttling, transient server faults,
// and early token expiry. Callers see either a response or a classified
// domain error; they never implement retry logic themselves.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	directory "roster/contracts/directory"
	"roster/internal/broker"
	"roster/internal/platform/metrics"
	"roster/internal/tracer"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/circuit"
)

const (
	// DefaultMaxRetries bounds retries for throttling and server faults.
	// The 401-refresh path has its own single-shot budget and does not
	// count against this.
	DefaultMaxRetries = 3

	// DefaultBaseDelay seeds the exponential backoff schedule.
	DefaultBaseDelay = time.Second

	// DefaultMaxDelay caps a single backoff sleep.
	DefaultMaxDelay = 10 * time.Second

	// maxErrorBodyBytes bounds how much of an upstream error body is
	// carried inside the returned error.
	maxErrorBodyBytes = 512
)

// TokenSource supplies bearer tokens for a session. Satisfied by
// *broker.Broker.
type TokenSource interface {
	Token(ctx context.Context, sessionID id.SessionID) (*broker.Token, error)
	ForceRefresh(ctx context.Context, sessionID id.SessionID) (*broker.Token, error)
}

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a successful (2xx) upstream reply with the body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode directory response")
	}
	return nil
}

// Client is the resilient front door to the directory API. All retries,
// backoff sleeps, token refreshes and circuit decisions happen inside Do.
type Client struct {
	tokens     TokenSource
	baseURL    string
	client     HTTPDoer
	breaker    *circuit.Breaker
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	jitter     bool
	clock      func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     tracer.Tracer
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithBreaker installs a circuit breaker around the upstream. Without one
// the client never fails fast.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// WithMaxRetries bounds retries for throttling and server faults.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the exponential backoff schedule: base doubles per retry
// up to limit.
func WithBackoff(base, limit time.Duration) Option {
	return func(c *Client) {
		if base > 0 {
			c.baseDelay = base
		}
		if limit > 0 {
			c.maxDelay = limit
		}
	}
}

// WithJitter toggles backoff jitter. Tests disable it for determinism.
func WithJitter(enabled bool) Option {
	return func(c *Client) {
		c.jitter = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables metrics collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer enables span emission per upstream call.
func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithClock overrides the time source. Tests use this to control
// Retry-After date arithmetic.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New creates a directory API client rooted at baseURL.
func New(tokens TokenSource, baseURL string, opts ...Option) *Client {
	c := &Client{
		tokens:     tokens,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		maxDelay:   DefaultMaxDelay,
		jitter:     true,
		clock:      time.Now,
		logger:     slog.Default(),
		tracer:     tracer.NewNoop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Do issues one logical request. body is JSON-encoded when non-nil. Only
// 2xx replies come back as a Response; everything else is a domain error:
// throttling past the retry budget is CodeThrottled, persistent server
// faults are CodeUpstreamUnavailable, a bearer rejection that survives one
// forced refresh is CodeUnauthorized, and any other 4xx is an immediate
// CodeUpstreamRejected carrying the upstream body.
func (c *Client) Do(ctx context.Context, sessionID id.SessionID, method, path string, body any) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanDirectoryCall,
		tracer.String("http.method", method),
		tracer.String("http.path", path),
	)
	var resp *Response
	var err error
	defer func() { span.End(err) }()

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			err = dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to encode request body")
			return nil, err
		}
	}

	start := c.clock()
	resp, err = c.attemptLoop(ctx, span, sessionID, method, path, payload)
	if c.metrics != nil {
		c.metrics.ObserveUpstreamLatency(c.clock().Sub(start).Seconds())
	}
	return resp, err
}

// attemptLoop drives attempts until success, a terminal error, or an
// exhausted retry budget. Throttling and server faults share one budget;
// the 401 refresh is tracked separately because it may fire at most once
// per logical request regardless of how many retries remain.
func (c *Client) attemptLoop(ctx context.Context, span tracer.Span, sessionID id.SessionID, method, path string, payload []byte) (*Response, error) {
	var (
		retries   int
		refreshed bool
	)

	for attempt := 1; ; attempt++ {
		if c.breaker != nil && !c.breaker.Allow() {
			c.countRequest("circuit_open")
			return nil, dErrors.New(dErrors.CodeUpstreamUnavailable, "directory circuit is open")
		}

		token, err := c.tokens.Token(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		status, header, respBody, sendErr := c.send(ctx, method, path, payload, token.Bearer)
		if sendErr != nil {
			c.recordBreakerFailure()
			if ctx.Err() != nil {
				c.countRequest("cancelled")
				return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "directory call cancelled")
			}
			if retries >= c.maxRetries {
				c.countRequest("network_error")
				return nil, dErrors.Wrap(sendErr, dErrors.CodeUpstreamUnavailable, "directory unreachable")
			}
			if err := c.waitBeforeRetry(ctx, span, attempt, retries, header, "network_error"); err != nil {
				return nil, err
			}
			retries++
			continue
		}

		switch {
		case status >= 200 && status < 300:
			c.recordBreakerSuccess()
			c.countRequest("success")
			span.SetAttributes(tracer.Int64(tracer.AttrStatusCode, int64(status)), tracer.Int64(tracer.AttrAttempt, int64(attempt)))
			return &Response{StatusCode: status, Header: header, Body: respBody}, nil

		case status == http.StatusTooManyRequests:
			// Throttling is not an outage; the upstream answered.
			c.recordBreakerSuccess()
			if retries >= c.maxRetries {
				c.countRequest("throttled")
				return nil, dErrors.New(dErrors.CodeThrottled, "directory throttling persisted past the retry budget")
			}
			if err := c.waitBeforeRetry(ctx, span, attempt, retries, header, "throttled"); err != nil {
				return nil, err
			}
			retries++

		case status >= 500:
			c.recordBreakerFailure()
			if retries >= c.maxRetries {
				c.countRequest("unavailable")
				return nil, dErrors.New(dErrors.CodeUpstreamUnavailable, fmt.Sprintf("directory returned %d past the retry budget", status))
			}
			if err := c.waitBeforeRetry(ctx, span, attempt, retries, header, "server_error"); err != nil {
				return nil, err
			}
			retries++

		case status == http.StatusUnauthorized:
			c.recordBreakerSuccess()
			// A cached token can outlive a rotation or expire early on
			// upstream clocks. One forced refresh covers that; a fresh
			// token being rejected means the credentials are the problem.
			if token.FromCache && !refreshed {
				if _, err := c.tokens.ForceRefresh(ctx, sessionID); err != nil {
					return nil, err
				}
				refreshed = true
				c.countRetry("unauthorized_refresh")
				span.AddEvent(tracer.EventTokenRefreshed, tracer.Int64(tracer.AttrAttempt, int64(attempt)))
				continue
			}
			c.countRequest("unauthorized")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "directory rejected the bearer token")

		default:
			c.recordBreakerSuccess()
			c.countRequest("rejected")
			return nil, rejectionError(status, respBody)
		}
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, bearer string) (int, http.Header, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read directory response: %w", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

// waitBeforeRetry sleeps for the server hint or the backoff schedule,
// bailing out immediately if ctx is cancelled mid-sleep.
func (c *Client) waitBeforeRetry(ctx context.Context, span tracer.Span, attempt, retries int, header http.Header, reason string) error {
	delay := c.retryDelay(retries, header)
	c.countRetry(reason)
	span.AddEvent(tracer.EventRetryScheduled,
		tracer.Int64(tracer.AttrAttempt, int64(attempt)),
		tracer.String("reason", reason),
		tracer.Duration("delay", delay),
	)
	c.logger.Debug("retrying directory call",
		"reason", reason,
		"attempt", attempt,
		"delay", delay,
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		c.countRequest("cancelled")
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "directory call cancelled during backoff")
	}
}

func (c *Client) recordBreakerFailure() {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.Warn("directory circuit opened", "breaker", c.breaker.Name())
		if c.metrics != nil {
			c.metrics.IncrementCircuitOpened()
		}
	}
}

func (c *Client) recordBreakerSuccess() {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("directory circuit closed", "breaker", c.breaker.Name())
	}
}

func (c *Client) countRequest(outcome string) {
	if c.metrics != nil {
		c.metrics.IncrementUpstreamRequests(outcome)
	}
}

func (c *Client) countRetry(reason string) {
	if c.metrics != nil {
		c.metrics.IncrementUpstreamRetries(reason)
	}
}

// rejectionError builds the terminal error for a non-retryable 4xx. The
// upstream body rides along so operators can see what the directory said.
func rejectionError(status int, body []byte) error {
	msg := fmt.Sprintf("directory rejected the request with status %d", status)
	var apiErr directory.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
		msg = fmt.Sprintf("directory rejected the request (%d %s): %s", status, apiErr.Code, apiErr.Message)
	}
	detail := body
	if len(detail) > maxErrorBodyBytes {
		detail = detail[:maxErrorBodyBytes]
	}
	return dErrors.Wrap(fmt.Errorf("upstream response: %s", detail), dErrors.CodeUpstreamRejected, msg)
}
