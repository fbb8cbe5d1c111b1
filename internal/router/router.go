package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/ticketboss/internal/config"
	"github.com/iliyamo/ticketboss/internal/handler"
	"github.com/iliyamo/ticketboss/internal/middleware"
)

const reservationsPath = "/api/reservations"

// Deps groups what New needs to build the router.  Redis may be nil, in
// which case rate limiting and caching are disabled.
type Deps struct {
	Handler    *handler.ReservationHandler
	Validator  *handler.RequestValidator
	Logger     *zap.Logger
	Redis      *redis.Client
	RateLimit  config.RateLimitConfig
	Cache      config.CacheConfig
	Gatherer   prometheus.Gatherer
	Production bool
}

// New returns an Echo instance with the global middleware stack and all
// routes registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = d.Validator
	e.HTTPErrorHandler = handler.NewErrorHandler(d.Logger, d.Production)

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.CORS())

	RegisterRoutes(e, d.Gatherer)
	RegisterReservations(e, d)
	return e
}

// RegisterRoutes registers routes that are not part of the reservation
// API: the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, g prometheus.Gatherer) {
	e.GET("/api/health", handler.Health)
	if g != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
	}
}

// RegisterReservations registers the booking, cancellation and summary
// endpoints.  Writes pass through the token bucket and, on success, drop
// the cached summary; the summary read goes through the response cache.
func RegisterReservations(e *echo.Echo, d Deps) {
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger)
	invalidate := middleware.NewCacheInvalidator(d.Cache, d.Redis, reservationsPath)
	cache := middleware.NewRedisCache(d.Cache, d.Redis)

	g := e.Group(reservationsPath)
	g.POST("", d.Handler.CreateReservation, limit, invalidate)
	g.DELETE("/:reservationId", d.Handler.CancelReservation, limit, invalidate)
	g.GET("", d.Handler.GetSummary, cache)
	g.GET("/:reservationId", d.Handler.GetReservation)
}
