package resource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-quadcollide/pkg/logging"
)

// Operation is a unit of work that may fail transiently
type Operation func() error

// Retrier runs operations through a circuit breaker and retries them with a
// linear backoff while the breaker stays closed.
type Retrier struct {
	breaker    *gobreaker.CircuitBreaker
	logger     *logging.Logger
	maxRetries int
	baseDelay  time.Duration
}

// NewRetrier creates a Retrier whose breaker opens after maxFailures
// consecutive failures and stays open for cooldown.
func NewRetrier(name string, maxFailures uint32, cooldown time.Duration, logger *logging.Logger) *Retrier {
	if logger == nil {
		logger = logging.Discard()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Retrier{
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
}

// Execute runs op once through the breaker. An open breaker fails fast
// without calling op.
func (r *Retrier) Execute(ctx context.Context, op Operation) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, op()
	})
	if err != nil {
		r.logger.LogWithContext(ctx, slog.LevelError, "circuit breaker execution failed",
			"error", err.Error(),
			"state", r.breaker.State().String(),
		)
		return fmt.Errorf("circuit breaker: %w", err)
	}
	return nil
}

// ExecuteWithRetry runs op up to three times, waiting one base delay longer
// after each failure. It stops early when the breaker opens or ctx is done.
func (r *Retrier) ExecuteWithRetry(ctx context.Context, op Operation) error {
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		err := r.Execute(ctx, op)
		if err == nil {
			return nil
		}

		if r.breaker.State() == gobreaker.StateOpen {
			r.logger.Warn(ctx, "circuit breaker is open, skipping retries",
				"attempt", attempt+1,
				"max_retries", r.maxRetries,
			)
			return err
		}
		if attempt == r.maxRetries-1 {
			return fmt.Errorf("max retries (%d) exceeded: %w", r.maxRetries, err)
		}

		delay := time.Duration(attempt+1) * r.baseDelay
		r.logger.Warn(ctx, "operation failed, retrying",
			"attempt", attempt+1,
			"delay", delay.String(),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}
	return fmt.Errorf("unexpected exit from retry loop")
}

// State returns the current state of the breaker
func (r *Retrier) State() gobreaker.State {
	return r.breaker.State()
}
