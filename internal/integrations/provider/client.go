package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"bciers/pkg/platform/circuit"
)

const maxResponseBytes = 4 << 20

// Config describes one external API.
type Config struct {
	Name       string
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
}

// Client sends JSON requests to one provider behind a rate limiter and a
// circuit breaker, and classifies every failure into a Category.
type Client struct {
	name    string
	baseURL string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	breaker *circuit.Breaker
	metrics *Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
}

type Option func(*Client)

func WithMetrics(m *Metrics) Option { return func(c *Client) { c.metrics = m } }
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}
func WithBreaker(b *circuit.Breaker) Option { return func(c *Client) { c.breaker = b } }

// NewClient wraps httpClient, which carries any authentication transport.
// A zero rate disables throttling.
func NewClient(cfg Config, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	c := &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		breaker: circuit.New(cfg.Name),
		tracer:  otel.Tracer("bciers/integrations"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

// Do sends in as JSON (when non-nil) and decodes the response into out
// (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, in, out any) (err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, c.name+" "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider", c.name),
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		),
	)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(CategoryOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		c.metrics.observe(c.name, outcome, start)
		span.End()
	}()

	if !c.breaker.Allow() {
		return NewError(ErrorOutage, c.name, "circuit open", nil)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return NewError(ErrorRateLimited, c.name, "rate limit wait aborted", err)
	}

	err = c.send(ctx, method, path, in, out)
	c.record(ctx, err)
	return err
}

func (c *Client) send(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return NewError(ErrorInternal, c.name, "encode request", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return NewError(ErrorInternal, c.name, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return NewError(ErrorOutage, c.name, "read response", err)
	}
	if err := FromStatus(c.name, resp.StatusCode, raw); err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewError(ErrorBadData, c.name, "decode response", err)
	}
	return nil
}

// record feeds the breaker. Only failures that indicate an unhealthy
// provider count against it.
func (c *Client) record(ctx context.Context, err error) {
	if err == nil || !IsRetryable(err) {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "provider circuit closed", "provider", c.name)
			c.metrics.breaker(c.name, false)
		}
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "provider circuit opened", "provider", c.name, "error", err)
		c.metrics.breaker(c.name, true)
	}
}

func classifyTransport(providerName string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTimeout, providerName, "request timed out", err)
	}
	var re interface{ Temporary() bool }
	if errors.As(err, &re) && re.Temporary() {
		return NewError(ErrorOutage, providerName, "temporary network failure", err)
	}
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return NewError(ErrorAuthentication, providerName, "token request failed", err)
	}
	return NewError(ErrorOutage, providerName, "request failed", err)
}

// FromStatus classifies a non-2xx response.
func FromStatus(providerName string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := fmt.Sprintf("status %d", status)
	if snippet := strings.TrimSpace(string(body)); snippet != "" {
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		msg += ": " + snippet
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(ErrorAuthentication, providerName, msg, nil)
	case status == http.StatusNotFound:
		return NewError(ErrorNotFound, providerName, msg, nil)
	case status == http.StatusTooManyRequests:
		return NewError(ErrorRateLimited, providerName, msg, nil)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return NewError(ErrorTimeout, providerName, msg, nil)
	case status >= 500:
		return NewError(ErrorOutage, providerName, msg, nil)
	case status >= 400:
		return NewError(ErrorBadData, providerName, msg, nil)
	}
	return NewError(ErrorInternal, providerName, msg, nil)
}
