package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/ticketboss/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTokenBucket_BlocksWhenEmpty(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "partner",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/api/reservations", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	}, NewTokenBucket(cfg, rdb, zap.NewNop()))

	partnerA := map[string]string{PartnerHeader: "partner-a"}
	for i, wantRemaining := range []string{"1", "0"} {
		rec := serve(e, http.MethodPost, "/api/reservations", partnerA)
		require.Equal(t, http.StatusCreated, rec.Code, "request %d", i)
		require.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, wantRemaining, rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := serve(e, http.MethodPost, "/api/reservations", partnerA)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "rate limit exceeded")

	// buckets are per partner
	rec = serve(e, http.MethodPost, "/api/reservations", map[string]string{PartnerHeader: "partner-b"})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestTokenBucket_FailsOpenWithoutRedis(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.Close()

	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	e := echo.New()
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, nil))

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/x", nil).Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/reservations", nil)
	req.Header.Set(PartnerHeader, " acme ")
	req.RemoteAddr = "10.0.0.7:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/reservations")

	cases := map[string]string{
		"ip":            "rl:ip:10.0.0.7",
		"partner":       "rl:partner:acme",
		"partner_route": "rl:partner:acme:route:POST /api/reservations",
		"":              "rl:ip:10.0.0.7:partner:acme:route:POST /api/reservations",
	}
	for strategy, want := range cases {
		got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		require.Equal(t, want, got, strategy)
	}
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func TestRedisCache_HitAfterMissAndInvalidation(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := cacheConfig()

	reads, available := 0, 500
	e := echo.New()
	e.GET("/api/reservations", func(c echo.Context) error {
		reads++
		return c.JSON(http.StatusOK, echo.Map{"availableSeats": available})
	}, NewRedisCache(cfg, rdb))
	e.POST("/api/reservations", func(c echo.Context) error {
		available -= 2
		return c.NoContent(http.StatusCreated)
	}, NewCacheInvalidator(cfg, rdb, "/api/reservations"))

	rec := serve(e, http.MethodGet, "/api/reservations", nil)
	require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.JSONEq(t, `{"availableSeats":500}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/api/reservations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	require.JSONEq(t, `{"availableSeats":500}`, rec.Body.String())
	require.Equal(t, 1, reads)

	require.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/api/reservations", nil).Code)

	rec = serve(e, http.MethodGet, "/api/reservations", nil)
	require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.JSONEq(t, `{"availableSeats":498}`, rec.Body.String())
	require.Equal(t, 2, reads)
}

func TestRedisCache_SkipsErrors(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := cacheConfig()

	e := echo.New()
	e.GET("/api/reservations", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Event not found"})
	}, NewRedisCache(cfg, rdb))

	rec := serve(e, http.MethodGet, "/api/reservations", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, mr.Keys())
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	cr, ok := decodePayload(bs)
	require.True(t, ok)
	require.Equal(t, http.StatusOK, cr.Status)
	require.Equal(t, hdr, cr.Header)
	require.Equal(t, `{"ok":true}`, string(cr.Body))

	_, ok = decodePayload(bs[:5])
	require.False(t, ok)
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewRedisCache(config.CacheConfig{}, nil),
		NewTokenBucket(config.RateLimitConfig{}, nil, nil),
		NewCacheInvalidator(config.CacheConfig{}, nil))

	rec := serve(e, http.MethodGet, "/x", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-Cache"))
}
