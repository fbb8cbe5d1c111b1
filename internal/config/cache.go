package config

import (
	"strings"
	"time"
)

// CacheConfig configures the Redis response cache on the summary read.
// The summary is already a weakly consistent read and successful writes
// drop the cached copy, so a short TTL only matters for other partners'
// bookings.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool // upper-case HTTP methods eligible for caching
	TTL          time.Duration
	KeyStrategy  string // route, method_route, route_query, method_route_query
	Prefix       string
	MaxBodyBytes int // responses larger than this are not stored; 0 = no limit
}

// LoadCacheConfig reads the CACHE_* variables.  Caching is off unless
// CACHE_ENABLED is set.
func LoadCacheConfig() CacheConfig {
	methods := map[string]bool{}
	for _, m := range envList("CACHE_METHODS", "GET") {
		methods[strings.ToUpper(m)] = true
	}
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", false),
		Methods:      methods,
		TTL:          envDur("CACHE_TTL", time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "ticketboss:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
