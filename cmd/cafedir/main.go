package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ryanbastic/cafedir/internal/admin"
	"github.com/ryanbastic/cafedir/internal/api"
	"github.com/ryanbastic/cafedir/internal/config"
	"github.com/ryanbastic/cafedir/internal/directory"
	"github.com/ryanbastic/cafedir/internal/id"
	"github.com/ryanbastic/cafedir/internal/metrics"
	"github.com/ryanbastic/cafedir/internal/moderation"
	"github.com/ryanbastic/cafedir/internal/storage"
)

func main() {
	// Config warnings are emitted before the configured level is known.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := config.LoadEnvFile(); err != nil {
		slog.Error("failed to load .env file", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if cfg.DefaultAdminTokenUsed {
		logger.Warn("ADMIN_TOKEN is not set, using the built-in default admin token")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Connect to PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	if err := storage.RunMigrations(ctx, pool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete")

	ids, err := id.NewGenerator(int64(cfg.SnowflakeNode))
	if err != nil {
		logger.Error("failed to create id generator", "node", cfg.SnowflakeNode, "error", err)
		os.Exit(1)
	}
	store := storage.NewPostgresStore(pool, ids, cfg.QueryTimeout)
	prometheus.MustRegister(metrics.NewPoolCollector(pool))

	gate := admin.NewGate(cfg.AdminToken, cfg.SessionMaxAge)
	workflow := moderation.NewWorkflow(store, gate, logger)
	dir := directory.NewService(store, gate, workflow, logger)

	// Start HTTP server
	handler := api.NewServer(logger, gate, workflow, dir, map[string]api.Pinger{"postgres": pool})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
