package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dwsmith1983/autosetup/internal/metrics"
)

// BreakerConfig holds circuit breaker settings for primary paths.
type BreakerConfig struct {
	FailThreshold int           // consecutive transient failures before opening (default 3)
	Cooldown      time.Duration // how long to stay open before half-open (default 30s)
}

// DefaultBreakerConfig returns the default config.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailThreshold: 3,
		Cooldown:      30 * time.Second,
	}
}

// ErrCircuitOpen is returned for a primary path whose breaker is open.
var ErrCircuitOpen = errors.New("circuit open")

// breakers keeps one circuit breaker per action and primary mechanism,
// created on first use.
type breakers struct {
	mu       sync.Mutex
	config   BreakerConfig
	logger   *slog.Logger
	circuits map[string]*gobreaker.CircuitBreaker
}

func newBreakers(config BreakerConfig, logger *slog.Logger) *breakers {
	if config.FailThreshold <= 0 {
		config.FailThreshold = 3
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	return &breakers{
		config:   config,
		logger:   logger,
		circuits: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (b *breakers) get(key string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.circuits[key]; ok {
		return cb
	}
	threshold := uint32(b.config.FailThreshold)
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        key,
		MaxRequests: 1,
		Timeout:     b.config.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Permanent, prerequisite and cancelled calls say nothing about the mechanism's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || !ClassifyFailure(err).FallbackEligible()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				metrics.BreakerTrips.Add(1)
			}
			b.logger.Warn("circuit state changed",
				"circuit", name, "from", from.String(), "to", to.String())
		},
	})
	b.circuits[key] = cb
	return cb
}

func (b *breakers) execute(key string, fn func() (string, error)) (string, error) {
	var detail string
	_, err := b.get(key).Execute(func() (interface{}, error) {
		d, err := fn()
		detail = d
		return nil, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%s: %w", key, ErrCircuitOpen)
	}
	return detail, err
}

func (b *breakers) state(key string) string {
	b.mu.Lock()
	cb, ok := b.circuits[key]
	b.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed.String()
	}
	return cb.State().String()
}
