package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nemt_portal_backend/internal/datastore"
	"nemt_portal_backend/internal/events"
	apphttp "nemt_portal_backend/internal/http"
	"nemt_portal_backend/internal/http/router"
	"nemt_portal_backend/internal/rides"
	"nemt_portal_backend/internal/rides/submission"
	"nemt_portal_backend/internal/rides/wizard"
	"nemt_portal_backend/internal/scheduler"
	"nemt_portal_backend/internal/signatures"
	"nemt_portal_backend/migrations"
	"nemt_portal_backend/platform/config"
	"nemt_portal_backend/platform/db"
	"nemt_portal_backend/platform/logger"
	"nemt_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const guardKeyPrefix = "rides:lock:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	sessions, guard, closeRedis := initSessionState(ctx, cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	directory := datastore.New(cfg, cfg.GetWebhookTimeout(), log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	ridesModule := rides.NewModule(pool, eventBus, directory, sessions, guard, cfg, val, log)
	modules := []apphttp.Module{ridesModule}

	exportQueue, closeQueue := initExportQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}
	if exportQueue != nil {
		modules = append(modules, signatures.NewModule(exportQueue, directory, eventBus, log))
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules:  modules,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initSessionState picks Redis-backed sessions and guards when REDIS_URL is
// set, and process-local ones otherwise.
func initSessionState(ctx context.Context, cfg *config.Config, log *logger.Logger) (wizard.SessionStore, submission.Guard, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; wizard sessions and submission locks are process-local")
		return wizard.NewMemoryStore(cfg.GetWizardSessionTTL()), submission.NewMemoryGuard(), nil
	}

	client, err := newRedisClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		panic("invalid REDIS_URL: " + err.Error())
	}
	if err := withRetry(ctx, log, "redis connection", 5, time.Second, func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	log.Info("redis connection established")

	store := wizard.NewRedisStore(client, cfg.GetWizardSessionTTL())
	guard := submission.NewRedisGuard(client, guardKeyPrefix, cfg.GetSubmissionLockTTL())
	return store, guard, func() {
		_ = client.Close()
	}
}

func initExportQueue(cfg *config.Config, log *logger.Logger) (*scheduler.Client, func()) {
	if !cfg.IsSignatureExportEnabled() {
		log.Warn("SIGNATURE_EXPORT_WEBHOOK_URL or REDIS_URL not configured; signature export disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize signature export queue", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func newRedisClient(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if tlsInsecure {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return redis.NewClient(opt), nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
