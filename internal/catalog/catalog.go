// Package catalog holds the segment catalog adapters: a Postgres-backed store
// that owns the segments table and an HTTP client over the metadata API.
package catalog

import (
	"context"
	"errors"

	"github.com/animus-labs/animus-indexer/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Inventory is the read side served by the metadata API.
type Inventory interface {
	// AllDataSourceNames lists every dataset known to the catalog, including
	// those without used segments. Order is unspecified and may repeat.
	AllDataSourceNames(ctx context.Context) ([]string, error)
	DataSources(ctx context.Context) ([]domain.DataSource, error)
	// DataSource returns ErrNotFound when the dataset has no used segments.
	DataSource(ctx context.Context, name string) (domain.DataSource, error)
}
