package http

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter manages per-domain request rate limiting using a token bucket.
// On rate limit errors it backs the affected domain off exponentially and
// temporarily reduces its request rate.
type RateLimiter struct {
	limiters     map[string]*rate.Limiter
	backoffState map[string]*BackoffState
	mu           sync.RWMutex
	config       RateLimiterConfig
}

// BackoffState tracks rate limit backoff for a domain.
type BackoffState struct {
	// CurrentBackoff is the current backoff duration
	CurrentBackoff time.Duration
	// LastError is when the last rate limit error occurred
	LastError time.Time
	// ConsecutiveErrors is the count of consecutive rate limit errors
	ConsecutiveErrors int
	// OriginalRPS is the original configured rate to restore after cooldown
	OriginalRPS float64
	// ReducedRPS is the current reduced rate (0 means using original)
	ReducedRPS float64
}

const (
	// InitialBackoff is the starting backoff after a rate limit error.
	InitialBackoff = 1 * time.Second
	// MaxBackoff caps the exponential backoff.
	MaxBackoff = 60 * time.Second
	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier = 2.0
	// BackoffCooldownPeriod is how long after the last error before resetting backoff.
	BackoffCooldownPeriod = 5 * time.Minute
	// MinRPSMultiplier is the floor for rate reduction (25% of the configured rate).
	MinRPSMultiplier = 0.25
)

// RateLimiterConfig defines rate limiting behavior.
type RateLimiterConfig struct {
	// DataAPIRPS is requests per second against the YouTube Data API.
	DataAPIRPS float64
	// FeedRPS is requests per second against youtube.com feed endpoints.
	FeedRPS float64
	// GeneratorRPS is requests per second against the text generation endpoint.
	// Generation calls are long; keep this low so concurrent chunk requests
	// queue instead of piling onto the model server.
	GeneratorRPS float64
	// CustomRates maps domains to RPS values, overriding the defaults above.
	CustomRates map[string]float64
	// EnableDynamicBackoff enables automatic rate reduction on errors.
	EnableDynamicBackoff bool
}

// DefaultRateLimiterConfig returns conservative defaults for the endpoints
// the tracker talks to.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		DataAPIRPS:           1.0,
		FeedRPS:              10.0,
		GeneratorRPS:         2.0,
		CustomRates:          make(map[string]float64),
		EnableDynamicBackoff: true,
	}
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	def := DefaultRateLimiterConfig()
	if cfg.DataAPIRPS == 0 {
		cfg.DataAPIRPS = def.DataAPIRPS
	}
	if cfg.FeedRPS == 0 {
		cfg.FeedRPS = def.FeedRPS
	}
	if cfg.GeneratorRPS == 0 {
		cfg.GeneratorRPS = def.GeneratorRPS
	}
	if cfg.CustomRates == nil {
		cfg.CustomRates = make(map[string]float64)
	}

	return &RateLimiter{
		limiters:     make(map[string]*rate.Limiter),
		backoffState: make(map[string]*BackoffState),
		config:       cfg,
	}
}

// Wait blocks until the rate limit allows a request for the given URL.
// Returns an error if the context is canceled.
func (rl *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	if rl == nil {
		return nil
	}

	limiter := rl.getLimiter(urlStr)
	if limiter == nil {
		// No rate limiting for this domain
		return nil
	}

	if !limiter.Allow() {
		reservation := limiter.Reserve()
		if !reservation.OK() {
			return fmt.Errorf("rate limit: cannot reserve token")
		}

		select {
		case <-time.After(reservation.Delay()):
			return nil
		case <-ctx.Done():
			reservation.Cancel()
			return ctx.Err()
		}
	}

	return nil
}

// getLimiter returns the rate limiter for a given URL, creating one if necessary.
func (rl *RateLimiter) getLimiter(urlStr string) *rate.Limiter {
	domain := rl.extractDomain(urlStr)
	rps := rl.getRPS(domain)

	// 0 RPS means unlimited
	if rps == 0 {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limiters[domain]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	rl.limiters[domain] = limiter
	return limiter
}

// getRPS returns the requests per second for a given domain.
func (rl *RateLimiter) getRPS(domain string) float64 {
	if rps, ok := rl.config.CustomRates[domain]; ok {
		return rps
	}

	switch domain {
	case "www.googleapis.com", "googleapis.com", "youtube.googleapis.com":
		return rl.config.DataAPIRPS
	case "www.youtube.com", "youtube.com":
		return rl.config.FeedRPS
	default:
		// Anything else is assumed to be the generation endpoint.
		return rl.config.GeneratorRPS
	}
}

// extractDomain extracts the host, without port, from a URL string.
func (rl *RateLimiter) extractDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "unknown"
	}

	host := u.Host
	if idx := strings.IndexByte(host, ':'); idx != -1 {
		host = host[:idx]
	}
	return host
}

// SetCustomRate sets a custom rate limit for a specific domain.
func (rl *RateLimiter) SetCustomRate(domain string, rps float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.config.CustomRates[domain] = rps

	// Clear existing limiter to force recreation with the new rate
	delete(rl.limiters, domain)
}

// RecordRateLimitError records a rate limit error for a domain and updates
// its backoff state. Returns the recommended backoff before retrying.
func (rl *RateLimiter) RecordRateLimitError(urlStr string, retryAfter time.Duration) time.Duration {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		if retryAfter > 0 {
			return retryAfter
		}
		return InitialBackoff
	}

	domain := rl.extractDomain(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, exists := rl.backoffState[domain]
	if !exists {
		state = &BackoffState{
			CurrentBackoff: InitialBackoff,
			LastError:      time.Now(),
			OriginalRPS:    rl.getRPS(domain),
		}
		rl.backoffState[domain] = state
	}

	state.LastError = time.Now()
	state.ConsecutiveErrors++

	// 1s, 2s, 4s, ... up to MaxBackoff
	if state.ConsecutiveErrors > 1 {
		state.CurrentBackoff = time.Duration(float64(state.CurrentBackoff) * BackoffMultiplier)
		if state.CurrentBackoff > MaxBackoff {
			state.CurrentBackoff = MaxBackoff
		}
	}

	// Honor a longer server-specified Retry-After
	effectiveBackoff := state.CurrentBackoff
	if retryAfter > effectiveBackoff {
		effectiveBackoff = retryAfter
		state.CurrentBackoff = retryAfter
	}

	rl.reduceRate(domain, state)

	return effectiveBackoff
}

// reduceRate reduces the rate limit for a domain based on backoff state.
// Must be called with the mutex held.
func (rl *RateLimiter) reduceRate(domain string, state *BackoffState) {
	// 1 error: 75%, 2 errors: 50%, 3+ errors: 25%
	reductionFactor := 1.0
	switch {
	case state.ConsecutiveErrors >= 3:
		reductionFactor = MinRPSMultiplier
	case state.ConsecutiveErrors == 2:
		reductionFactor = 0.5
	case state.ConsecutiveErrors == 1:
		reductionFactor = 0.75
	}

	newRPS := state.OriginalRPS * reductionFactor
	if newRPS < state.OriginalRPS*MinRPSMultiplier {
		newRPS = state.OriginalRPS * MinRPSMultiplier
	}

	state.ReducedRPS = newRPS

	if limiter, ok := rl.limiters[domain]; ok {
		limiter.SetLimit(rate.Limit(newRPS))
	}
}

// RecordSuccess records a successful request, potentially restoring the
// original rate after the cooldown period.
func (rl *RateLimiter) RecordSuccess(urlStr string) {
	if rl == nil || !rl.config.EnableDynamicBackoff {
		return
	}

	domain := rl.extractDomain(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, exists := rl.backoffState[domain]
	if !exists {
		return
	}

	if time.Since(state.LastError) > BackoffCooldownPeriod {
		if limiter, ok := rl.limiters[domain]; ok && state.ReducedRPS > 0 {
			limiter.SetLimit(rate.Limit(state.OriginalRPS))
		}
		delete(rl.backoffState, domain)
		return
	}

	if state.ConsecutiveErrors > 0 {
		state.ConsecutiveErrors--

		// Partial recovery to 50% of the original rate; full recovery
		// happens after the cooldown.
		if state.ReducedRPS > 0 && state.ConsecutiveErrors == 0 {
			newRPS := state.OriginalRPS * 0.5
			if newRPS > state.ReducedRPS {
				state.ReducedRPS = newRPS
				if limiter, ok := rl.limiters[domain]; ok {
					limiter.SetLimit(rate.Limit(newRPS))
				}
			}
		}
	}
}

// GetBackoffState returns a copy of the current backoff state for a domain,
// or nil if the domain is not backed off.
func (rl *RateLimiter) GetBackoffState(urlStr string) *BackoffState {
	if rl == nil {
		return nil
	}

	domain := rl.extractDomain(urlStr)

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	if state, ok := rl.backoffState[domain]; ok {
		cp := *state
		return &cp
	}
	return nil
}

// WaitForBackoff waits for the current backoff period to expire.
// Returns immediately if the domain is not in a backoff state.
func (rl *RateLimiter) WaitForBackoff(ctx context.Context, urlStr string) error {
	state := rl.GetBackoffState(urlStr)
	if state == nil {
		return nil
	}

	remaining := state.CurrentBackoff - time.Since(state.LastError)
	if remaining <= 0 {
		return nil
	}

	select {
	case <-time.After(remaining):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
