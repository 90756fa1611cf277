package config

import "time"

// RateLimitConfig describes one Redis token bucket.  Every request spends a
// token; RefillTokens come back each RefillInterval up to Capacity.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads the general /v1 bucket.
func LoadRateLimitConfig() RateLimitConfig {
    return RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }.clamped()
}

// LoadReservationRateLimitConfig reads the bucket guarding reservation
// writes (create and reschedule).  It is keyed per user and shared by both
// routes, so a burst of Capacity writes drains it whichever endpoint is hit.
// It stays off whenever the general limiter is disabled.
func LoadReservationRateLimitConfig() RateLimitConfig {
    base := LoadRateLimitConfig()
    return RateLimitConfig{
        Enabled:        base.Enabled && envBool("RESERVATION_RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RESERVATION_RATE_LIMIT_CAPACITY", 5),
        RefillTokens:   1,
        RefillInterval: envDur("RESERVATION_RATE_LIMIT_REFILL_INTERVAL", time.Minute),
        TTL:            envDur("RESERVATION_RATE_LIMIT_TTL", time.Hour),
        KeyStrategy:    "user",
        Prefix:         base.Prefix + ":reservations",
        Debug:          base.Debug,
    }.clamped()
}

// clamped keeps the bucket usable and lets an idle key outlive a few
// refills so a burst cannot reset it by waiting for expiry.
func (c RateLimitConfig) clamped() RateLimitConfig {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}
