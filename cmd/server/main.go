package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/ticketboss/internal/config"
	"github.com/iliyamo/ticketboss/internal/database"
	"github.com/iliyamo/ticketboss/internal/handler"
	"github.com/iliyamo/ticketboss/internal/logger"
	"github.com/iliyamo/ticketboss/internal/observability"
	"github.com/iliyamo/ticketboss/internal/publisher"
	"github.com/iliyamo/ticketboss/internal/repository"
	"github.com/iliyamo/ticketboss/internal/router"
	"github.com/iliyamo/ticketboss/internal/service"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, config.LoadTracingConfig())
	if err != nil {
		zl.Warn("tracing disabled", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := database.Open(database.Options{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		LockWaitTimeout: cfg.DBLockWaitTimeout,
	})
	if err != nil {
		zl.Fatal("unable to connect to the database", zap.Error(err))
	}
	defer db.Close()
	zl.Info("database connection established", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		zl.Warn("redis unavailable, rate limiting and caching disabled", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	pub, err := publisher.New(config.LoadBrokerConfig(), zl)
	if err != nil {
		zl.Fatal("invalid broker configuration", zap.Error(err))
	}
	defer pub.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := service.NewReservationService(db,
		repository.NewEventRepo(db),
		repository.NewReservationRepo(db),
		pub, zl, service.NewMetrics(reg),
		service.Options{AcquireTimeout: cfg.DBAcquireTimeout},
	)
	validator := handler.NewRequestValidator()
	e := router.New(router.Deps{
		Handler:    handler.NewReservationHandler(svc, validator, cfg.EventID, zl),
		Validator:  validator,
		Logger:     zl,
		Redis:      rdb,
		RateLimit:  config.LoadRateLimitConfig(),
		Cache:      config.LoadCacheConfig(),
		Gatherer:   reg,
		Production: cfg.IsProduction(),
	})

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("event_id", cfg.EventID))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("forced shutdown", zap.Error(err))
	}
}
