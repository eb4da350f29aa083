package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/LeadGoat/internal/driver"
	"github.com/IshaanNene/LeadGoat/internal/observability"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

// Visitor does the work for one URL on a freshly opened page.
type Visitor[T any] func(ctx context.Context, page driver.Page, url string) (T, error)

// AttemptState is the per-URL retry state.
type AttemptState int

const (
	StatePending AttemptState = iota
	StateAttempting
	StateSuccess
	StatePermanentFailure
)

func (s AttemptState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAttempting:
		return "attempting"
	case StateSuccess:
		return "success"
	case StatePermanentFailure:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// RetryCoordinator runs a Visitor with bounded retries and exponential
// backoff. Every attempt gets its own isolated page, closed on every outcome.
type RetryCoordinator struct {
	browser        driver.Browser
	maxAttempts    int
	baseDelay      time.Duration
	attemptTimeout time.Duration
	sleep          types.SleepFunc
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// RetryOption configures the RetryCoordinator.
type RetryOption func(*RetryCoordinator)

// WithSleep replaces the backoff sleeper.
func WithSleep(fn types.SleepFunc) RetryOption {
	return func(c *RetryCoordinator) { c.sleep = fn }
}

// WithAttemptTimeout bounds a single attempt, page opening included.
func WithAttemptTimeout(d time.Duration) RetryOption {
	return func(c *RetryCoordinator) { c.attemptTimeout = d }
}

// WithRetryMetrics records attempts and retries.
func WithRetryMetrics(m *observability.Metrics) RetryOption {
	return func(c *RetryCoordinator) { c.metrics = m }
}

// NewRetryCoordinator creates a RetryCoordinator.
func NewRetryCoordinator(browser driver.Browser, maxAttempts int, baseDelay time.Duration, logger *slog.Logger, opts ...RetryOption) *RetryCoordinator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	c := &RetryCoordinator{
		browser:     browser,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		sleep:       types.Sleep,
		logger:      logger.With("component", "retry"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observability.NewMetrics(logger)
	}
	return c
}

// Backoff returns the wait after the given 0-based failed attempt:
// baseDelay × 2^attempt.
func (c *RetryCoordinator) Backoff(attempt int) time.Duration {
	return c.baseDelay * time.Duration(1<<attempt)
}

// RunWithRetry visits url until the visitor succeeds or the attempt ceiling
// is hit. It reports false on permanent failure; the failure is logged here
// and not returned.
func RunWithRetry[T any](ctx context.Context, c *RetryCoordinator, url string, visit Visitor[T]) (T, bool) {
	var zero T
	logger := c.logger.With("url", url)
	state := StatePending

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		state = StateAttempting
		c.metrics.AttemptsTotal.Add(1)

		result, err := runAttempt(ctx, c, url, attempt, visit)
		if err == nil {
			state = StateSuccess
			logger.Debug("attempt succeeded", "attempt", attempt+1, "state", state)
			return result, true
		}

		lastErr = err
		c.metrics.AttemptsFailed.Add(1)

		if ctx.Err() != nil {
			break
		}
		if attempt == c.maxAttempts-1 {
			lastErr = fmt.Errorf("%w: %w", types.ErrMaxRetries, err)
			break
		}
		if types.IsPermanent(err) {
			logger.Warn("permanent error, not retrying", "attempt", attempt+1, "error", err)
			break
		}

		wait := c.Backoff(attempt)
		logger.Warn("attempt failed, backing off",
			"attempt", attempt+1,
			"max_attempts", c.maxAttempts,
			"wait", wait,
			"error", err,
		)
		c.metrics.Retries.Add(1)
		if err := c.sleep(ctx, wait); err != nil {
			break
		}
	}

	state = StatePermanentFailure
	c.metrics.PermanentFailures.Add(1)
	logger.Error("giving up on URL",
		"state", state,
		"max_attempts", c.maxAttempts,
		"error", lastErr,
	)
	return zero, false
}

// runAttempt opens an isolated page, runs the visitor and always closes the page.
func runAttempt[T any](ctx context.Context, c *RetryCoordinator, url string, attempt int, visit Visitor[T]) (T, error) {
	var zero T

	if c.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
	}

	page, err := c.browser.NewIsolatedPage(ctx)
	if err != nil {
		return zero, &types.ExtractError{URL: url, Attempt: attempt, Err: err}
	}
	defer func() {
		if err := page.Close(); err != nil {
			c.logger.Debug("page close failed", "url", url, "error", err)
		}
	}()

	result, err := visit(ctx, page, url)
	if err != nil {
		return zero, &types.ExtractError{URL: url, Attempt: attempt, Err: err}
	}
	return result, nil
}
