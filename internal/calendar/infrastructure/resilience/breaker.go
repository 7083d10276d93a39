// Package resilience guards busy sources with circuit breakers.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	calendarApp "github.com/felixgeelhaar/autoplan/internal/calendar/application"
	"github.com/felixgeelhaar/autoplan/internal/calendar/domain"
	schedulingDomain "github.com/felixgeelhaar/autoplan/internal/scheduling/domain"
)

var ErrSourceUnavailable = errors.New("busy source circuit open")

// BreakerConfig tunes a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32
	// Timeout is how long the circuit stays open before a trial request.
	Timeout time.Duration
	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		Timeout:          time.Minute,
		MaxRequests:      1,
	}
}

// BreakerSource wraps a BusySource with a circuit breaker.
type BreakerSource struct {
	inner   calendarApp.BusySource
	breaker *gobreaker.CircuitBreaker[[]schedulingDomain.Interval]
}

// WithBreaker wraps src. Zero fields in config fall back to the defaults.
func WithBreaker(src calendarApp.BusySource, config BreakerConfig, logger *slog.Logger) *BreakerSource {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultBreakerConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = defaults.MaxRequests
	}

	settings := gobreaker.Settings{
		Name:        src.Name(),
		MaxRequests: config.MaxRequests,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Cancelled calls do not count as failures.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"source", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &BreakerSource{
		inner:   src,
		breaker: gobreaker.NewCircuitBreaker[[]schedulingDomain.Interval](settings),
	}
}

// Name returns the wrapped source's name.
func (b *BreakerSource) Name() string { return b.inner.Name() }

// Provider returns the wrapped source's provider.
func (b *BreakerSource) Provider() domain.ProviderType { return b.inner.Provider() }

// State returns the current breaker state.
func (b *BreakerSource) State() gobreaker.State { return b.breaker.State() }

// Busy calls the wrapped source unless the circuit is open.
func (b *BreakerSource) Busy(ctx context.Context, start, end time.Time) ([]schedulingDomain.Interval, error) {
	intervals, err := b.breaker.Execute(func() ([]schedulingDomain.Interval, error) {
		return b.inner.Busy(ctx, start, end)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrSourceUnavailable
	}
	return intervals, err
}
