package notifier

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	MaxPerWindow int           // Maximum notifications per window (default: 10)
	Window       time.Duration // Time window (default: 1 minute)
	Enabled      bool          // Whether rate limiting is enabled (default: true)
}

// DefaultRateLimitConfig returns default rate limit settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPerWindow: 10,
		Window:       time.Minute,
		Enabled:      true,
	}
}

// RateLimiter caps how many notifications go out per window. It guards
// against a misconfigured rule set flooding inboxes on every run.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	dropped int64
	enabled bool

	maxPerWindow int
	window       time.Duration
}

// NewRateLimiter creates a rate limiter from the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.MaxPerWindow <= 0 {
		config.MaxPerWindow = 10
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return &RateLimiter{
		limiter:      rate.NewLimiter(rate.Every(config.Window/time.Duration(config.MaxPerWindow)), config.MaxPerWindow),
		enabled:      config.Enabled,
		maxPerWindow: config.MaxPerWindow,
		window:       config.Window,
	}
}

// Allow reports whether one more notification may go out now.
func (r *RateLimiter) Allow() bool {
	if !r.enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.limiter.Allow() {
		return true
	}
	r.dropped++
	return false
}

// Dropped returns the number of notifications dropped so far.
func (r *RateLimiter) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// RateLimitStats contains rate limiter statistics.
type RateLimitStats struct {
	Dropped      int64
	MaxPerWindow int
	Window       time.Duration
	Enabled      bool
}

// Stats returns rate limiter statistics.
func (r *RateLimiter) Stats() RateLimitStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RateLimitStats{
		Dropped:      r.dropped,
		MaxPerWindow: r.maxPerWindow,
		Window:       r.window,
		Enabled:      r.enabled,
	}
}
