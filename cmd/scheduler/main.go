package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nemt_portal_backend/internal/datastore"
	"nemt_portal_backend/internal/rides/history"
	"nemt_portal_backend/internal/scheduler"
	"nemt_portal_backend/internal/signatures"
	"nemt_portal_backend/platform/config"
	"nemt_portal_backend/platform/db"
	"nemt_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	cleanupInterval := getDurationEnv("HISTORY_CLEANUP_INTERVAL", time.Hour)
	historyCleanup := scheduler.NewHistoryCleanup(
		history.NewRepository(pool),
		log,
		cleanupInterval,
		cfg.GetHistoryRetentionSuccess(),
		cfg.GetHistoryRetentionFailure(),
	)
	go historyCleanup.Run(ctx)

	if !cfg.IsSignatureExportEnabled() {
		log.Warn("SIGNATURE_EXPORT_WEBHOOK_URL or REDIS_URL not configured; only history cleanup runs")
		<-ctx.Done()
		return
	}

	directory := datastore.New(cfg, cfg.GetWebhookTimeout(), log)
	exporter := signatures.NewExporter(directory, cfg.GetSignatureExportURL(), cfg.GetWebhookAPIKey(), cfg.GetWebhookTimeout(), log)

	worker, err := scheduler.NewWorker(cfg, exporter, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
