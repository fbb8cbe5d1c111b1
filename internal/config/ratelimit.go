package config

import "time"

// RateLimitConfig configures the Redis token bucket in front of the
// booking and cancellation endpoints.  A partner (or IP, depending on
// KeyStrategy) may send Capacity writes in a burst and then RefillTokens
// every RefillInterval.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration // idle buckets expire after this
	KeyStrategy    string        // ip, partner, route, ip_partner, partner_route, ip_partner_route
	Prefix         string
	Debug          bool // log blocked keys and expose X-RateLimit-Key
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables.
// RATE_LIMIT_REFILL_EVERY is a shorthand for one token per interval.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_partner_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "ticketboss:rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		cfg.RefillTokens, cfg.RefillInterval = 1, every
	}
	return cfg.normalize()
}

// normalize clamps values that would make the bucket unusable.  Buckets
// live at least five refill intervals so a slow client is not handed a
// full bucket after every pause.
func (c RateLimitConfig) normalize() RateLimitConfig {
	c.Capacity = max(c.Capacity, 1)
	c.RefillTokens = max(c.RefillTokens, 1)
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	c.TTL = max(c.TTL, 5*c.RefillInterval)
	return c
}
