package gateway

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

	"trustlens/internal/metrics"
)

// Network selects which contract gateway deployment a client talks to.
type Network string

const (
	NetworkTestnet Network = "testnet"
	NetworkMainnet Network = "mainnet"
)

// DefaultTimeout is the per-attempt deadline used when Config.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// Config holds the client's connection settings. It is validated once in
// NewClient and immutable afterwards.
type Config struct {
	// EndpointURL is the gateway's JSON-RPC endpoint.
	EndpointURL string
	// Network must be NetworkTestnet or NetworkMainnet.
	Network Network
	// ContractID identifies the trust registry contract queried by the
	// domain operations.
	ContractID string
	// Timeout is the per-attempt deadline. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Retry controls backoff between attempts. Unset fields take defaults.
	Retry RetryPolicy
}

// Doer performs one HTTP round trip. *http.Client satisfies it; tests
// substitute a deterministic fake so no real network is needed.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SleepFunc suspends between retry attempts. The default implementation
// honors context cancellation; tests substitute one that records delays and
// returns immediately.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client executes JSON-RPC calls against the contract gateway with a
// per-attempt timeout and capped exponential backoff between attempts.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient Doer
	sleep      SleepFunc
	logger     *slog.Logger
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithHTTPClient replaces the HTTP executor. Defaults to http.DefaultClient.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.httpClient = d }
}

// WithSleep replaces the inter-attempt delay function.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithLogger replaces the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient validates cfg and returns a ready client. Validation is eager:
// a bad config fails here, before any network use.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.EndpointURL) == "" {
		return nil, &Error{Kind: KindConfig, Message: "endpoint URL is required"}
	}
	if strings.TrimSpace(cfg.ContractID) == "" {
		return nil, &Error{Kind: KindConfig, Message: "contract ID is required"}
	}
	if cfg.Network != NetworkTestnet && cfg.Network != NetworkMainnet {
		return nil, &Error{Kind: KindConfig, Message: fmt.Sprintf("unknown network %q", cfg.Network)}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Retry = cfg.Retry.withDefaults()

	c := &Client{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		sleep:      sleepContext,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Call invokes a gateway method with the given params, retrying transient
// failures according to the configured policy. On success it returns the raw
// JSON-RPC result; on failure exactly one *Error stamped with the number of
// attempts actually made.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	result, _, err := c.call(ctx, method, params)
	return result, err
}

// call is Call plus the attempt count, which the domain operations use to
// stamp post-call normalization failures accurately.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, int, error) {
	start := time.Now()
	defer func() {
		metrics.GatewayCallDuration.Observe(time.Since(start).Seconds())
	}()

	maxAttempts := c.cfg.Retry.MaxAttempts
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := c.attempt(ctx, method, params, attempt)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("gateway call succeeded after retry",
					"method", method,
					"attempt", attempt,
					"max_attempts", maxAttempts,
				)
			}
			return result, attempt, nil
		}

		cerr := c.normalize(err, attempt)
		if attempt == maxAttempts || !cerr.Retryable() {
			metrics.GatewayFailures.WithLabelValues(string(cerr.Kind)).Inc()
			return nil, attempt, cerr
		}

		d := c.cfg.Retry.delay(attempt)
		c.logger.Warn("gateway call failed, retrying",
			"method", method,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"retry_in", d,
			"error", cerr,
		)
		metrics.GatewayRetries.Inc()
		if serr := c.sleep(ctx, d); serr != nil {
			werr := &Error{
				Kind:     KindNetwork,
				Message:  "retry wait interrupted",
				Attempts: attempt,
				Cause:    serr,
			}
			metrics.GatewayFailures.WithLabelValues(string(werr.Kind)).Inc()
			return nil, attempt, werr
		}
	}

	// Unreachable given the loop above; kept so every exit path yields a
	// typed error rather than a nil result.
	return nil, maxAttempts, &Error{
		Kind:     KindNetwork,
		Message:  "call loop exited without an outcome",
		Attempts: maxAttempts,
	}
}

// attempt performs one request/response round trip. The attempt owns its own
// timeout-driven cancellation, disarmed on every exit path so a hung attempt
// cannot leak its timer into later attempts.
func (c *Client) attempt(ctx context.Context, method string, params any, attempt int) (json.RawMessage, error) {
	env := request{
		JSONRPC: "2.0",
		ID:      fmt.Sprintf("%s-%d", method, attempt),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, &Error{Kind: KindParse, Message: fmt.Sprintf("encode request envelope: %v", err), Cause: err}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	metrics.GatewayRequests.WithLabelValues(method).Inc()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The body is intentionally not parsed: non-2xx replies come from
		// proxies and load balancers as often as from the gateway itself.
		return nil, &Error{
			Kind:       KindHTTP,
			HTTPStatus: resp.StatusCode,
			Message:    fmt.Sprintf("gateway returned HTTP %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &Error{Kind: KindParse, Message: fmt.Sprintf("decode response body: %v", err), Cause: err}
	}
	if parsed.Error != nil {
		msg := parsed.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("gateway RPC error %d", parsed.Error.Code)
		}
		e := &Error{Kind: KindRPC, RPCCode: parsed.Error.Code, Message: msg}
		if len(parsed.Error.Data) > 0 {
			e.Details = parsed.Error.Data
		}
		return nil, e
	}
	if parsed.Result == nil {
		// A present-but-empty result ({} or []) is valid; only a missing
		// key means the gateway broke the envelope contract.
		return nil, &Error{Kind: KindParse, Message: "response missing result field"}
	}
	return parsed.Result, nil
}

// normalize maps whatever an attempt raised onto the closed Error taxonomy
// and stamps it with the attempt count.
func (c *Client) normalize(err error, attempt int) *Error {
	var cerr *Error
	if errors.As(err, &cerr) {
		cerr.Attempts = attempt
		return cerr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:     KindTimeout,
			Message:  fmt.Sprintf("attempt deadline of %s exceeded", c.cfg.Timeout),
			Attempts: attempt,
			Cause:    err,
		}
	}
	if msg := err.Error(); msg != "" {
		return &Error{Kind: KindNetwork, Message: msg, Attempts: attempt, Cause: err}
	}
	return &Error{
		Kind:     KindNetwork,
		Message:  "request failed without a diagnostic message",
		Attempts: attempt,
		Details:  err,
		Cause:    err,
	}
}
