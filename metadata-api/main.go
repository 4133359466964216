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

	"github.com/animus-labs/animus-indexer/internal/catalog"
	"github.com/animus-labs/animus-indexer/internal/platform/env"
	"github.com/animus-labs/animus-indexer/internal/platform/httpserver"
	"github.com/animus-labs/animus-indexer/internal/platform/postgres"
)

const serviceName = "metadata-api"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("METADATA_API_HTTP_ADDR", ":8082")
	shutdownTimeout, err := env.Duration("METADATA_API_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}
	ensureSchema, err := env.Bool("METADATA_API_ENSURE_SCHEMA", true)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	store := catalog.NewPostgresStore(db)
	if ensureSchema {
		startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := store.EnsureSchema(startupCtx)
		cancel()
		if err != nil {
			logger.Error("segment schema unavailable", "error", err)
			os.Exit(1)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz(serviceName))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			serviceName,
			httpserver.ReadinessCheck{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					return postgres.Ping(ctx, db, 750*time.Millisecond)
				},
			},
		),
	)
	mux.Handle("/metrics", httpserver.Metrics())

	api := newMetadataAPI(logger, store)
	api.register(mux)

	cfg := httpserver.Config{
		Service:         serviceName,
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, serviceName, mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
