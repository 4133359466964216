package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/animus-labs/animus-indexer/internal/domain"
)

type publishOptions struct {
	ensureSchema bool
}

func newPublishSegmentsCmd() *cobra.Command {
	opts := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish-segments [descriptors.json]",
		Short: "Publish a JSON array of segment descriptors into the Postgres catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			segments, err := readSegments(args[0])
			if err != nil {
				return err
			}

			store, db, err := openCatalog(ctx, opts.ensureSchema)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer func() { _ = db.Close() }()

			inserted, err := store.PublishSegments(ctx, segments...)
			if err != nil {
				return err
			}
			newLogger(cmd.ErrOrStderr()).Info("segments published",
				"requested", len(segments),
				"inserted", inserted,
				"skipped", len(segments)-inserted,
			)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "published %d of %d segments\n", inserted, len(segments))
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.ensureSchema, "ensure-schema", true, "create the segments table if it is missing")
	return cmd
}

func readSegments(path string) ([]domain.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var segments []domain.Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(segments) == 0 {
		return nil, errors.New("no segment descriptors in " + path)
	}
	for i, seg := range segments {
		if err := seg.Validate(); err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", i, err)
		}
	}
	return segments, nil
}
