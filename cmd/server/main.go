package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"vetnux-newsletter/internal/config"
	"vetnux-newsletter/internal/db"
	"vetnux-newsletter/internal/handlers"
	"vetnux-newsletter/internal/logging"
	"vetnux-newsletter/internal/middleware"
	"vetnux-newsletter/internal/subscription"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	err := godotenv.Load()
	if err != nil {
		logrus.Info("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to create schema: %v", err)
	}
	logger.WithField("schema", db.Schema).Info("Database schema ready")

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(cfg, store, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Graceful shutdown failed")
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":            cfg.Port,
		"commit":          CommitSHA,
		"allowed_origins": len(cfg.AllowedOrigins),
	}).Info("Starting server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal(err)
	}
	logger.Info("Server stopped")
}

// newServer wires the write pathway, the router and the outer middleware.
// CORS wraps the router so preflight requests never reach route matching.
func newServer(cfg *config.Config, store *db.Store, logger logrus.FieldLogger) http.Handler {
	svc := subscription.NewService(store, db.SubscriberRepository{}, logger)
	limiter := middleware.NewRateLimiterMiddleware(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, logger)

	var h http.Handler = handlers.New(svc, cfg.AllowedOrigins, logger).Router(limiter.Middleware)
	h = middleware.CORSMiddleware(cfg.AllowedOrigins)(h)
	h = middleware.LoggingMiddleware(logger)(h)
	h = middleware.RequestIDMiddleware(h)
	return h
}
