package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iliyamo/ticketboss/internal/config"
	"github.com/iliyamo/ticketboss/internal/logger"
	"github.com/iliyamo/ticketboss/internal/queue"
)

// The audit consumer records every reservation notification published
// to RabbitMQ in a local log file.
func main() {
	zl, err := logger.New(config.EnvOr("APP_ENV", "development"), config.EnvOr("LOG_LEVEL", "info"))
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bc := config.LoadBrokerConfig()
	zl.Info("audit consumer starting", zap.String("log_path", bc.AuditLogPath))
	if err := queue.NewAuditConsumer(bc.AMQPURL, bc.AuditLogPath, zl).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Fatal("audit consumer stopped", zap.Error(err))
	}
	zl.Info("audit consumer stopped")
}
