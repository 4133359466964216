package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/animus-labs/animus-indexer/internal/catalog"
	"github.com/animus-labs/animus-indexer/internal/ingestspec"
	"github.com/animus-labs/animus-indexer/internal/platform/env"
	"github.com/animus-labs/animus-indexer/internal/platform/objectstore"
	"github.com/animus-labs/animus-indexer/internal/specarchive"
)

type resolveOptions struct {
	catalogURL   string
	archive      bool
	createBucket bool
	output       string
	metricsFile  string
}

func newResolveCmd() *cobra.Command {
	opts := &resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve [spec-file]",
		Short: "Attach the used segments of a dataSource input spec and print the resolved spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.catalogURL == "" {
				url, err := env.URL("INDEXER_CATALOG_URL", "")
				if err != nil {
					return err
				}
				opts.catalogURL = url
			}
			return runResolve(cmd.Context(), cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVar(&opts.catalogURL, "catalog-url", "", "metadata API base URL (defaults to INDEXER_CATALOG_URL, else the Postgres catalog)")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "store the resolved spec in object storage")
	cmd.Flags().BoolVar(&opts.createBucket, "create-bucket", true, "create the specs bucket when missing; when false the bucket must already exist")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write segment lookup metrics in Prometheus text format to this file on exit")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the resolved spec to this file instead of stdout")
	return cmd
}

func runResolve(ctx context.Context, cmd *cobra.Command, opts *resolveOptions, specPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cmd.ErrOrStderr())
	if opts.metricsFile != "" {
		defer func() {
			if err := prometheus.WriteToTextfile(opts.metricsFile, prometheus.DefaultGatherer); err != nil {
				logger.Error("write metrics file failed", "path", opts.metricsFile, "error", err)
			}
		}()
	}

	spec, err := ingestspec.LoadFile(specPath)
	if err != nil {
		return err
	}

	var lister ingestspec.SegmentLister
	if opts.catalogURL != "" {
		httpLister, err := catalog.NewHTTPLister(opts.catalogURL, nil)
		if err != nil {
			return err
		}
		lister = httpLister
	} else {
		store, db, err := openCatalog(ctx, false)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer func() { _ = db.Close() }()
		lister = store
	}

	var archive *specarchive.Archive
	if opts.archive {
		archive, err = openArchive(ctx, opts.createBucket)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}

	resolved, err := ingestspec.NewResolver(lister, logger).Resolve(ctx, spec)
	if err != nil {
		return err
	}

	if archive != nil {
		key, err := archive.Put(ctx, resolved)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		logger.Info("resolved spec archived", "key", key)
	}

	out, err := json.MarshalIndent(resolved, "", "  ")
	if err != nil {
		return fmt.Errorf("encode resolved spec: %w", err)
	}
	out = append(out, '\n')

	if opts.output == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	return os.WriteFile(opts.output, out, 0o644)
}

// openArchive connects to object storage before any catalog lookups run. With
// createBucket unset the specs bucket must already exist.
func openArchive(ctx context.Context, createBucket bool) (*specarchive.Archive, error) {
	cfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	client, err := objectstore.NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if createBucket {
		err = objectstore.EnsureBucket(startupCtx, client, cfg)
	} else {
		err = objectstore.CheckBucket(startupCtx, client, cfg)
	}
	cancel()
	if err != nil {
		return nil, err
	}
	store, err := objectstore.NewMinioStore(client)
	if err != nil {
		return nil, err
	}
	return specarchive.New(store, cfg.BucketSpecs)
}
