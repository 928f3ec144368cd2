package openai

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/Pacifique5/AI-BOT/domain/chat"
)

// CircuitBreakerConfig holds configuration for circuit breaker behavior
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold" json:"failure_threshold"`
	SuccessThreshold uint32        `yaml:"success_threshold" json:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	MaxRequests      uint32        `yaml:"max_requests" json:"max_requests"`
}

// DefaultCircuitBreakerConfig returns sensible defaults for circuit breaker configuration
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,                // Open after 5 failures
		SuccessThreshold: 2,                // Close after 2 successes in half-open state
		Timeout:          60 * time.Second, // Stay open for 60 seconds
		MaxRequests:      3,                // Allow max 3 requests in half-open state
	}
}

// CircuitBreakerProvider wraps a completion provider and fails fast while the
// upstream is persistently unhealthy. The relay talks to one endpoint, so a
// single breaker guards all models.
type CircuitBreakerProvider struct {
	provider chat.CompletionProvider
	config   CircuitBreakerConfig
	breaker  *gobreaker.CircuitBreaker
}

// NewCircuitBreakerProvider creates a new circuit breaker wrapper around a provider
func NewCircuitBreakerProvider(provider chat.CompletionProvider, config CircuitBreakerConfig) *CircuitBreakerProvider {
	cb := &CircuitBreakerProvider{
		provider: provider,
		config:   config,
	}
	if !config.Enabled {
		// Pass-through wrapper, no breaker created
		return cb
	}

	settings := gobreaker.Settings{
		Name:        "openai-chat-completions",
		MaxRequests: config.MaxRequests,
		Interval:    0, // No automatic clearing of counts (we rely on timeout)
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= config.FailureThreshold &&
				counts.TotalFailures >= config.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Caller-induced upstream rejections do not indicate an unhealthy
			// upstream; only 5xx and rate limiting count against the breaker
			var upstreamErr *chat.UpstreamError
			if errors.As(err, &upstreamErr) {
				return upstreamErr.StatusCode < 500 && upstreamErr.StatusCode != 429
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker":    name,
				"from_state": from.String(),
				"to_state":   to.String(),
			}).Info("Circuit breaker state changed")
		},
	}
	cb.breaker = gobreaker.NewCircuitBreaker(settings)

	return cb
}

// Complete implements the CompletionProvider interface with circuit breaker protection
func (c *CircuitBreakerProvider) Complete(ctx context.Context, model string, temperature float64, messages []chat.UpstreamMessage) (*chat.Completion, error) {
	if !c.config.Enabled {
		return c.provider.Complete(ctx, model, temperature, messages)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.provider.Complete(ctx, model, temperature, messages)
	})

	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			logrus.WithFields(logrus.Fields{
				"model": model,
				"state": c.breaker.State().String(),
			}).Warn("Circuit breaker is open, failing fast")
			return nil, &chat.NetworkError{
				Cause: errors.New("circuit breaker open: upstream requests are being rejected to prevent cascade failures"),
			}
		}
		return nil, err
	}

	return result.(*chat.Completion), nil
}

// State reports the breaker state for health monitoring. Disabled wrappers
// always report closed.
func (c *CircuitBreakerProvider) State() gobreaker.State {
	if c.breaker == nil {
		return gobreaker.StateClosed
	}
	return c.breaker.State()
}
