package judge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/relaylabs/leadmatch/internal/common"
	"github.com/relaylabs/leadmatch/internal/model"
	"github.com/relaylabs/leadmatch/internal/service"
)

// OracleConfig tunes the judgment oracle around a provider.
type OracleConfig struct {
	Timeout       time.Duration
	CacheTTL      time.Duration
	CacheCapacity int
	MaxAttempts   int
}

// Oracle wraps a judgment provider with caching, per-call timeouts and a
// circuit breaker. It is the only path the engine uses to obtain
// semantic judgments.
type Oracle struct {
	provider Provider
	cache    Cache
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
	timeout  time.Duration
	retry    service.RetryOptions
}

// NewOracle creates an oracle around the given provider.
func NewOracle(provider Provider, cfg OracleConfig, logger *slog.Logger) *Oracle {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "judgment-provider",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("judgment circuit state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 2
	}

	return &Oracle{
		provider: provider,
		cache:    NewMemoryCache(cfg.CacheTTL, cfg.CacheCapacity),
		breaker:  breaker,
		timeout:  timeout,
		logger:   logger,
		retry: service.RetryOptions{
			MaxAttempts:  maxAttempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2,
		},
	}
}

// Available reports whether the oracle can currently serve judgments.
// It is false when no provider is configured or the breaker is open.
func (o *Oracle) Available() bool {
	if o == nil || o.provider == nil {
		return false
	}
	return o.breaker.State() != gobreaker.StateOpen
}

// Judge evaluates one (intent, profile) pair. Identical content pairs
// within the cache TTL reuse the cached result and never reach the
// provider a second time.
func (o *Oracle) Judge(ctx context.Context, intent *model.Intent, profile *model.Profile) (Result, error) {
	if o.provider == nil {
		return Result{}, common.ErrConfigMissing
	}

	key := fingerprint(intent, profile)
	if cached, ok := o.cache.Get(key); ok {
		cached.Cached = true
		return cached, nil
	}

	userPrompt := buildUserPrompt(intent, profile)

	// Each attempt gets a fresh timeout; transient failures retry with
	// backoff before the error reaches the engine.
	var text string
	err := common.WithRetry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()

		raw, callErr := o.breaker.Execute(func() (any, error) {
			return o.provider.Judge(callCtx, systemPrompt, userPrompt)
		})
		if callErr != nil {
			return o.classifyError(callErr, callCtx)
		}

		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("%w: unexpected provider result type", common.ErrProviderFailure)
		}
		text = s
		return nil
	}, o.retry)
	if err != nil {
		return Result{}, err
	}

	result := parseResponse(text, o.logger)
	if result.Source != SourceJSON {
		o.logger.Debug("judgment used fallback parsing",
			"intent_id", intent.ID,
			"profile_id", profile.ID,
			"source", string(result.Source))
	}

	o.cache.Set(key, result)
	return result, nil
}

// Close releases the oracle's cache resources.
func (o *Oracle) Close() {
	if o.cache != nil {
		o.cache.Close()
	}
}

// classifyError maps raw call failures onto the provider error taxonomy
// and tags whether a retry could help. An open circuit fails fast.
func (o *Oracle) classifyError(err error, callCtx context.Context) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %v", common.ErrProviderTimeout, err),
			Retryable: true,
		}
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: circuit open", common.ErrProviderFailure),
			Retryable: false,
		}
	default:
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %v", common.ErrProviderFailure, err),
			Retryable: true,
		}
	}
}

// fingerprint derives the cache key from the matchable content of both
// records. Editing either record changes the key, so stale judgments
// age out instead of being served for new content.
func fingerprint(intent *model.Intent, profile *model.Profile) string {
	h := sha256.New()
	_, _ = h.Write([]byte(intent.ContentKey()))
	_, _ = h.Write([]byte{0x1f})
	_, _ = h.Write([]byte(profile.ContentKey()))
	return hex.EncodeToString(h.Sum(nil))
}
