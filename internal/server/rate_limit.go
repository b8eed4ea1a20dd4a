package server

import (
	"fmt"
	"math"
	"net/netip"
	"sync"
	"time"

	"github.com/ip4live/checkipdns/internal/config"
)

// This file implements pre-parse admission control using token bucket
// rate limiting at three levels:
//   - Global: server-wide query rate limit
//   - Prefix: per network prefix (/24 for IPv4, /64 for IPv6)
//   - IP: per source IP
//
// A datagram must pass all three levels before it is handed to the codec.

// RateLimiter combines global, prefix, and per-IP rate limiters.
type RateLimiter struct {
	global *TokenBucketRateLimiter
	prefix *TokenBucketRateLimiter
	ip     *TokenBucketRateLimiter
}

// RateLimitSettings contains rate limiting configuration values.
type RateLimitSettings struct {
	CleanupSeconds   float64
	MaxIPEntries     int
	MaxPrefixEntries int
	GlobalQPS        float64
	GlobalBurst      int
	PrefixQPS        float64
	PrefixBurst      int
	IPQPS            float64
	IPBurst          int
}

// RateLimitSettingsFromConfig maps the rate limit configuration section
// onto limiter settings.
func RateLimitSettingsFromConfig(cfg *config.Config) RateLimitSettings {
	return RateLimitSettings{
		CleanupSeconds:   cfg.RateLimit.CleanupSeconds,
		MaxIPEntries:     cfg.RateLimit.MaxIPEntries,
		MaxPrefixEntries: cfg.RateLimit.MaxPrefixEntries,
		GlobalQPS:        cfg.RateLimit.GlobalQPS,
		GlobalBurst:      cfg.RateLimit.GlobalBurst,
		PrefixQPS:        cfg.RateLimit.PrefixQPS,
		PrefixBurst:      cfg.RateLimit.PrefixBurst,
		IPQPS:            cfg.RateLimit.IPQPS,
		IPBurst:          cfg.RateLimit.IPBurst,
	}
}

// NewRateLimiter creates a RateLimiter from the provided settings.
func NewRateLimiter(s RateLimitSettings) *RateLimiter {
	cleanupInterval := time.Duration(math.Max(0.0, s.CleanupSeconds) * float64(time.Second))
	if cleanupInterval <= 0 {
		cleanupInterval = 60 * time.Second
	}

	return &RateLimiter{
		global: NewTokenBucketRateLimiter(
			TokenBucketConfig{Rate: s.GlobalQPS, Burst: s.GlobalBurst, CleanupInterval: cleanupInterval, MaxEntries: 1},
		),
		prefix: NewTokenBucketRateLimiter(
			TokenBucketConfig{Rate: s.PrefixQPS, Burst: s.PrefixBurst, CleanupInterval: cleanupInterval, MaxEntries: s.MaxPrefixEntries},
		),
		ip: NewTokenBucketRateLimiter(
			TokenBucketConfig{Rate: s.IPQPS, Burst: s.IPBurst, CleanupInterval: cleanupInterval, MaxEntries: s.MaxIPEntries},
		),
	}
}

// AllowAddr checks if a datagram from the given address should be admitted.
// Checks fail fast in order: global, prefix, IP.
func (r *RateLimiter) AllowAddr(ip netip.Addr) bool {
	if r == nil {
		return true
	}
	if !r.global.Allow("*") {
		return false
	}
	if !r.prefix.Allow(prefixKeyFromAddr(ip)) {
		return false
	}
	return r.ip.Allow(ip.String())
}

// prefixKeyFromAddr returns the prefix key for a netip.Addr.
// Uses /24 for IPv4 and /64 for IPv6.
func prefixKeyFromAddr(ip netip.Addr) string {
	if ip.Is4() {
		prefix, _ := ip.Prefix(24)
		return prefix.String()
	}
	prefix, _ := ip.Prefix(64)
	return prefix.String()
}

// FormatRateLimitsLog returns a human-readable summary of the configuration.
func FormatRateLimitsLog(s RateLimitSettings) string {
	fmtLimiter := func(name string, rate float64, burst int) string {
		if rate <= 0.0 || burst <= 0 {
			return name + "=disabled"
		}
		return fmt.Sprintf("%s=%gqps/%d", name, rate, burst)
	}

	return fmt.Sprintf(
		"%s %s %s cleanup_s=%g max_ip=%d max_prefix=%d",
		fmtLimiter("global", s.GlobalQPS, s.GlobalBurst),
		fmtLimiter("prefix", s.PrefixQPS, s.PrefixBurst),
		fmtLimiter("ip", s.IPQPS, s.IPBurst),
		s.CleanupSeconds,
		s.MaxIPEntries,
		s.MaxPrefixEntries,
	)
}

// TokenBucketConfig configures a token bucket rate limiter.
type TokenBucketConfig struct {
	Rate            float64       // Tokens replenished per second
	Burst           int           // Maximum tokens (burst capacity)
	CleanupInterval time.Duration // How often stale entries are removed
	MaxEntries      int           // Maximum tracked keys
}

// TokenBucketRateLimiter implements per-key token bucket rate limiting.
//
// Each key holds a bucket of at most Burst tokens replenished at Rate
// tokens per second; a request consumes one token and is denied when the
// bucket is empty. Rate or Burst <= 0 disables the limiter.
type TokenBucketRateLimiter struct {
	rate            float64
	burst           float64
	cleanupInterval time.Duration
	maxEntries      int

	mu          sync.Mutex
	lastCleanup time.Time
	lastUpdate  map[string]time.Time
	tokens      map[string]float64
}

// NewTokenBucketRateLimiter creates a new rate limiter with the given configuration.
func NewTokenBucketRateLimiter(cfg TokenBucketConfig) *TokenBucketRateLimiter {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1
	}
	ci := cfg.CleanupInterval
	if ci <= 0 {
		ci = 60 * time.Second
	}
	return &TokenBucketRateLimiter{
		rate:            cfg.Rate,
		burst:           float64(cfg.Burst),
		cleanupInterval: ci,
		maxEntries:      maxEntries,
		lastCleanup:     time.Now(),
		lastUpdate:      map[string]time.Time{},
		tokens:          map[string]float64{},
	}
}

// Allow checks if a request for the given key should be allowed,
// consuming a token when it is.
func (l *TokenBucketRateLimiter) Allow(key string) bool {
	if l.rate <= 0 || l.burst <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.maybeCleanup(now)

	tokens, tracked := l.tokens[key]
	if tracked {
		elapsed := now.Sub(l.lastUpdate[key]).Seconds()
		tokens = math.Min(l.burst, tokens+elapsed*l.rate)
	} else {
		if len(l.tokens) >= l.maxEntries {
			// Table full even after cleanup: fail open rather than
			// letting one noisy key starve untracked sources.
			return true
		}
		tokens = l.burst
	}

	allowed := tokens >= 1
	if allowed {
		tokens--
	}
	l.tokens[key] = tokens
	l.lastUpdate[key] = now
	return allowed
}

// maybeCleanup removes keys idle long enough for their bucket to have
// fully refilled. Caller must hold l.mu.
func (l *TokenBucketRateLimiter) maybeCleanup(now time.Time) {
	if now.Sub(l.lastCleanup) < l.cleanupInterval {
		return
	}
	l.lastCleanup = now

	staleAfter := l.cleanupInterval
	if l.rate > 0 {
		refill := time.Duration(l.burst / l.rate * float64(time.Second))
		if refill > staleAfter {
			staleAfter = refill
		}
	}
	for key, last := range l.lastUpdate {
		if now.Sub(last) >= staleAfter {
			delete(l.lastUpdate, key)
			delete(l.tokens, key)
		}
	}
}
