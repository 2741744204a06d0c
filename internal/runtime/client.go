// Package runtime is the gateway's client for the model-serving runtime.
// Every outbound call runs under circuit-breaker supervision and retries
// transient failures with exponential backoff, so callers above (the
// lifecycle manager) only ever see a final outcome.
package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"modelgate/internal/breaker"
	"modelgate/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxAttempts    = 3
	defaultBackoffBase    = 250 * time.Millisecond
	defaultBackoffFactor  = 2.0
	defaultRequestTimeout = 10 * time.Second
	defaultLoadTimeout    = 5 * time.Minute
	defaultHealthTimeout  = 2 * time.Second

	minBackoff = 50 * time.Millisecond
)

// retryableStatus holds HTTP statuses treated like transient network
// failures.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true, // 408
	http.StatusTooEarly:            true, // 425
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// Config holds client construction parameters.
type Config struct {
	BaseURL string
	Breaker *breaker.Breaker
	Logger  zerolog.Logger

	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffFactor float64

	// Per-operation-weight timeouts: loads are slow (cold model first
	// token), unload/health are cheap.
	RequestTimeout time.Duration
	LoadTimeout    time.Duration
	HealthTimeout  time.Duration
}

// Client is a resilient HTTP client for one inference runtime endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	br      *breaker.Breaker
	log     zerolog.Logger

	maxAttempts   int
	backoffBase   time.Duration
	backoffFactor float64

	requestTimeout time.Duration
	loadTimeout    time.Duration
	healthTimeout  time.Duration

	sleep func(ctx context.Context, d time.Duration) error // test hook
}

// New constructs a Client. A nil breaker gets a default one so callers can
// always rely on breaker semantics.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           &http.Client{},
		br:             cfg.Breaker,
		log:            cfg.Logger,
		maxAttempts:    cfg.MaxAttempts,
		backoffBase:    cfg.BackoffBase,
		backoffFactor:  cfg.BackoffFactor,
		requestTimeout: cfg.RequestTimeout,
		loadTimeout:    cfg.LoadTimeout,
		healthTimeout:  cfg.HealthTimeout,
		sleep:          sleepCtx,
	}
	if c.br == nil {
		c.br = breaker.New(breaker.Config{})
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.backoffBase <= 0 {
		c.backoffBase = defaultBackoffBase
	}
	if c.backoffFactor <= 1 {
		c.backoffFactor = defaultBackoffFactor
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = defaultRequestTimeout
	}
	if c.loadTimeout <= 0 {
		c.loadTimeout = defaultLoadTimeout
	}
	if c.healthTimeout <= 0 {
		c.healthTimeout = defaultHealthTimeout
	}
	return c
}

// BreakerSnapshot exposes the guarded breaker's state for status reporting.
func (c *Client) BreakerSnapshot() types.BreakerSnapshot { return c.br.Snapshot() }

// do performs one breaker-guarded, retried HTTP request and returns the
// response body. Circuit-open is propagated immediately: retrying against
// an open circuit is never useful.
func (c *Client) do(ctx context.Context, method, path string, payload any, timeout time.Duration) ([]byte, error) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = b
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if err := c.br.Allow(); err != nil {
			c.observeBreaker()
			return nil, err
		}
		out, err := c.once(ctx, method, path, body, timeout)
		if err == nil {
			c.br.RecordSuccess()
			c.observeBreaker()
			return out, nil
		}
		c.br.RecordFailure()
		c.observeBreaker()
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
		if attempt < c.maxAttempts-1 {
			retriesTotal.Inc()
			d := c.backoff(attempt)
			c.log.Debug().Str("path", path).Int("attempt", attempt+1).Dur("backoff", d).Err(err).
				Msg("runtime call failed, retrying")
			if serr := c.sleep(ctx, d); serr != nil {
				return nil, serr
			}
		}
	}
	return nil, fmt.Errorf("runtime %s %s: retries exhausted: %w", method, path, lastErr)
}

// once performs a single HTTP exchange with a per-call timeout.
func (c *Client) once(ctx context.Context, method, path string, body []byte, timeout time.Duration) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(cctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, transientError{err: err}
	}
	defer res.Body.Close()
	out, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, transientError{err: err}
	}
	if res.StatusCode/100 != 2 {
		return nil, statusError{status: res.StatusCode, path: path}
	}
	return out, nil
}

// backoff computes base * factor^attempt with ±20% jitter, floored at
// minBackoff.
func (c *Client) backoff(attempt int) time.Duration {
	d := float64(c.backoffBase)
	for i := 0; i < attempt; i++ {
		d *= c.backoffFactor
	}
	d *= 0.8 + 0.4*rand.Float64()
	if d < float64(minBackoff) {
		return minBackoff
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transientError wraps a network-level failure that is worth retrying.
type transientError struct{ err error }

func (e transientError) Error() string { return "runtime unreachable: " + e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// statusError is a non-2xx response from the runtime.
type statusError struct {
	status int
	path   string
}

func (e statusError) Error() string {
	return fmt.Sprintf("runtime %s: status %d", e.path, e.status)
}

// StatusCode returns the HTTP status carried by a runtime error, or 0.
func StatusCode(err error) int {
	var e statusError
	if errors.As(err, &e) {
		return e.status
	}
	return 0
}

func isRetryable(err error) bool {
	switch e := err.(type) {
	case transientError:
		return true
	case statusError:
		return retryableStatus[e.status]
	}
	return false
}
