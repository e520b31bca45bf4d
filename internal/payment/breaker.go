package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LoganXav/Nexmart/internal/domain"
	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	Name                string
	MaxHalfOpenRequests uint32
	Interval            time.Duration
	OpenTimeout         time.Duration
	ConsecutiveFailures uint32
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:                "payment-processor",
		MaxHalfOpenRequests: 3,
		Interval:            time.Minute,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerProcessor stops calling the processor after repeated failures and
// fails fast with ErrProcessorUnavailable until the open timeout elapses.
type BreakerProcessor struct {
	next Processor
	cb   *gobreaker.CircuitBreaker[*domain.Authorization]
}

func NewBreakerProcessor(next Processor, s BreakerSettings) *BreakerProcessor {
	cb := gobreaker.NewCircuitBreaker[*domain.Authorization](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxHalfOpenRequests,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		// not-found and caller cancellation do not count against the processor
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrAuthorizationNotFound) ||
				errors.Is(err, context.Canceled)
		},
	})
	return &BreakerProcessor{next: next, cb: cb}
}

func (b *BreakerProcessor) CreateAuthorization(ctx context.Context, params domain.AuthorizationParams) (*domain.Authorization, error) {
	return b.execute(func() (*domain.Authorization, error) {
		return b.next.CreateAuthorization(ctx, params)
	})
}

func (b *BreakerProcessor) RetrieveAuthorization(ctx context.Context, id string) (*domain.Authorization, error) {
	return b.execute(func() (*domain.Authorization, error) {
		return b.next.RetrieveAuthorization(ctx, id)
	})
}

func (b *BreakerProcessor) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerProcessor) execute(fn func() (*domain.Authorization, error)) (*domain.Authorization, error) {
	auth, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrProcessorUnavailable, err)
	}
	return auth, err
}
