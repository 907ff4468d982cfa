// Package routing drives upstream fetches with bounded retry.
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/indexing/metrics"
	"github.com/vietddude/curator/internal/infra/rpc/provider"
)

// ErrExhaustedRetries is returned when every attempt for a page failed.
var ErrExhaustedRetries = errors.New("retries exhausted")

// RetryConfig defines retry behavior for a single page.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig mirrors the upstream's tolerance for bursts.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:    5,
	InitialBackoff: 3 * time.Second,
	MaxBackoff:     60 * time.Second,
}

// Backoff returns the delay after the given failed attempt (0-based):
// InitialBackoff doubled per prior failure, capped at MaxBackoff.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	d := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		if d >= c.MaxBackoff {
			break
		}
		d *= 2
	}
	return min(d, c.MaxBackoff)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Executor performs page fetches against a provider with capped exponential
// backoff between attempts.
type Executor struct {
	provider provider.Provider
	config   RetryConfig
	sleep    Sleeper
	log      *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) { e.sleep = s }
}

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// NewExecutor creates an executor. A non-positive MaxAttempts means one attempt.
func NewExecutor(p provider.Provider, config RetryConfig, opts ...Option) *Executor {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	e := &Executor{
		provider: p,
		config:   config,
		sleep:    SleepContext,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the retry policy in use.
func (e *Executor) Config() RetryConfig {
	return e.config
}

// Execute fetches one page, retrying every failure until MaxAttempts is
// reached. There is no sleep after the final failed attempt.
func (e *Executor) Execute(ctx context.Context, req domain.PageRequest) (*domain.Page, error) {
	var lastErr error

	for attempt := 0; attempt < e.config.MaxAttempts; attempt++ {
		page, err := e.attempt(ctx, req, attempt+1)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == e.config.MaxAttempts-1 {
			break
		}

		delay := e.config.Backoff(attempt)
		e.log.Warn("Fetch attempt failed, backing off",
			"record_type", req.RecordType,
			"page", req.Page,
			"attempt", attempt+1,
			"class", provider.Classify(err),
			"delay", delay,
			"error", err,
		)
		if err := e.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	metrics.RetriesExhausted.WithLabelValues(string(req.RecordType)).Inc()
	e.log.Error("Fetch attempts exhausted",
		"record_type", req.RecordType,
		"page", req.Page,
		"attempts", e.config.MaxAttempts,
		"error", lastErr,
	)
	return nil, fmt.Errorf("%w: page %d after %d attempts: %w", ErrExhaustedRetries, req.Page, e.config.MaxAttempts, lastErr)
}

// Seed fetches one page with a single attempt and no retry.
func (e *Executor) Seed(ctx context.Context, req domain.PageRequest) (*domain.Page, error) {
	page, err := e.attempt(ctx, req, 1)
	if err != nil {
		return nil, fmt.Errorf("seed page %d: %w", req.Page, err)
	}
	return page, nil
}

func (e *Executor) attempt(ctx context.Context, req domain.PageRequest, n int) (*domain.Page, error) {
	recordType := string(req.RecordType)
	name := e.provider.GetName()

	metrics.FetchAttemptsTotal.WithLabelValues(recordType, name).Inc()
	start := time.Now()

	page, err := e.provider.FetchPage(ctx, req)
	if err != nil {
		metrics.FetchErrorsTotal.WithLabelValues(recordType, name, string(provider.Classify(err))).Inc()
		return nil, err
	}

	metrics.FetchLatency.WithLabelValues(recordType, name).Observe(time.Since(start).Seconds())
	e.log.Debug("Fetched page",
		"record_type", req.RecordType,
		"page", req.Page,
		"attempt", n,
		"records", len(page.Records),
		"has_next", page.HasNextPage,
	)
	return page, nil
}
