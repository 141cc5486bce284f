package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"practice-management-api/internal/config"
	"practice-management-api/internal/emailsched"
	"practice-management-api/internal/handler"
	"practice-management-api/internal/metrics"
	"practice-management-api/internal/middleware"
	"practice-management-api/internal/notify"
	"practice-management-api/internal/schedule"
	"practice-management-api/internal/store"
	"practice-management-api/internal/video"
	"practice-management-api/pkg/logging"

	"github.com/go-chi/chi/v5"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	logger.Info("connected to postgres")

	// run migrations
	if migration, err := os.ReadFile("db/migrations/001_init.sql"); err != nil {
		logger.Warn("migration file not found, skipping", "error", err)
	} else if _, err := pool.Exec(context.Background(), string(migration)); err != nil {
		logger.Warn("migration warning", "error", err)
	} else {
		logger.Info("migration applied")
	}

	st := store.New(pool)

	reg := prometheus.NewRegistry()
	m := metrics.NewSchedulingMetrics(reg)

	var sender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		sender = sg
	} else {
		sender = notify.NewStubEmailSender(logger)
	}

	var issuer *video.Issuer
	if cfg.VideoTokenSecret != "" {
		issuer, err = video.NewIssuer(cfg.VideoTokenSecret, "practice-management-api")
		if err != nil {
			log.Fatalf("video issuer: %v", err)
		}
	}

	resolver := schedule.NewResolver(st)
	checker := schedule.NewChecker(st)
	expander := schedule.NewExpander(checker)
	emails := emailsched.NewScheduler(st, logger)

	deps := schedule.ManagerDeps{
		Store:    st,
		Resolver: resolver,
		Checker:  checker,
		Expander: expander,
		Emails:   emails,
		Notifier: notify.NewService(sender, logger),
		Metrics:  m,
		Logger:   logger,
	}
	if issuer != nil {
		deps.Video = issuer
	}
	mgr := schedule.NewManager(deps)

	h := handler.New(st, mgr, resolver, cfg.JWTSecret, logger)
	rl := middleware.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Mount("/", h.Routes(rl))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
