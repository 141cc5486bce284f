package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"practice-management-api/internal/config"
	"practice-management-api/internal/dispatch"
	"practice-management-api/internal/metrics"
	"practice-management-api/internal/notify"
	"practice-management-api/internal/store"
	"practice-management-api/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("component", "dispatcher")

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	logger.Info("connected to postgres")

	var sender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		sender = sg
	} else {
		logger.Warn("no sendgrid api key, emails will be logged only")
		sender = notify.NewStubEmailSender(logger)
	}

	m := metrics.NewSchedulingMetrics(prometheus.NewRegistry())
	worker := dispatch.NewWorker(store.New(pool), sender, logger).
		WithInterval(cfg.DispatchInterval).
		WithBuffer(cfg.DispatchBuffer).
		WithBatchSize(cfg.DispatchBatchSize).
		WithMetrics(m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("dispatcher started", "interval", cfg.DispatchInterval.String())
	worker.Run(ctx)
	logger.Info("dispatcher stopped")
}
