package reasoner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"exegesis/internal/domain"
)

// BreakerConfig configures the circuit breaker around a Reasoner.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ReadyToTripRatio float64
}

// Breaker short-circuits calls to a failing reasoning service.
type Breaker struct {
	next domain.Reasoner
	cb   *gobreaker.CircuitBreaker
}

var _ domain.Reasoner = (*Breaker)(nil)

func NewBreaker(next domain.Reasoner, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	st := gobreaker.Settings{
		Name:        "reasoner",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *Breaker) Complete(ctx context.Context, req domain.ReasonRequest) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
		}
		return "", err
	}
	return out.(string), nil
}

// State reports the breaker state ("closed", "half-open" or "open").
func (b *Breaker) State() string { return b.cb.State().String() }
