package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/animus-labs/animus-indexer/internal/catalog"
	"github.com/animus-labs/animus-indexer/internal/platform/postgres"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "indexer-spec",
		Short:        "Resolve batch ingestion specs against the segment catalog",
		SilenceUsage: true,
	}
	root.AddCommand(newResolveCmd())
	root.AddCommand(newPublishSegmentsCmd())
	return root
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, nil))
}

// openCatalog connects to the Postgres catalog configured by DATABASE_* env vars.
func openCatalog(ctx context.Context, ensureSchema bool) (*catalog.PostgresStore, *sql.DB, error) {
	cfg, err := postgres.ConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store := catalog.NewPostgresStore(db)
	if ensureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return store, db, nil
}
