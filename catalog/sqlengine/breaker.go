package sqlengine

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/AntonStoeckl/movie-catalog/catalog"
)

const defaultBreakerName = "catalog-db"

// BreakerSettings configures the circuit breaker around database calls.
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32        // requests allowed through while half-open
	Interval         time.Duration // cyclic period for clearing counts while closed, 0 never clears
	Timeout          time.Duration // how long the circuit stays open
	FailureThreshold uint32        // consecutive failures which open the circuit
}

// DefaultBreakerSettings returns settings suitable for a single database backend.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:             defaultBreakerName,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

func newCircuitBreaker(settings BreakerSettings, qe *QueryEngine) *gobreaker.CircuitBreaker[catalog.Rows] {
	if settings.Name == "" {
		settings.Name = defaultBreakerName
	}

	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 1
	}

	return gobreaker.NewCircuitBreaker[catalog.Rows](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// only an unreachable backend counts against the circuit
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				!errors.Is(err, catalog.ErrBackendUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			qe.logBreakerStateChange(name, from.String(), to.String())
		},
	})
}

// isBreakerRejection reports whether the breaker refused to run the call.
func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
