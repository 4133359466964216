// Package specarchive stores resolved ingestion specs in object storage so a
// submitted job can be traced back to the exact segment list it ran with.
package specarchive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/animus-labs/animus-indexer/internal/ingestspec"
	"github.com/animus-labs/animus-indexer/internal/platform/objectstore"
)

const keyPrefix = "ingestion-specs"

type Archive struct {
	store  objectstore.Store
	bucket string
	now    func() time.Time
	newID  func() (uuid.UUID, error)
}

func New(store objectstore.Store, bucket string) (*Archive, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	return &Archive{store: store, bucket: bucket, now: time.Now, newID: uuid.NewRandom}, nil
}

// Put writes spec as JSON and returns the object key.
func (a *Archive) Put(ctx context.Context, spec ingestspec.IngestionSpec) (string, error) {
	if a == nil || a.store == nil {
		return "", errors.New("spec archive not initialized")
	}
	body, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("encode spec: %w", err)
	}
	id, err := a.newID()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	key := objectKey(spec.DataSchema().DataSource, a.now().UTC(), id)
	if err := a.store.Put(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

// Get reads back an archived spec.
func (a *Archive) Get(ctx context.Context, key string) (ingestspec.IngestionSpec, error) {
	if a == nil || a.store == nil {
		return ingestspec.IngestionSpec{}, errors.New("spec archive not initialized")
	}
	rc, _, err := a.store.Get(ctx, a.bucket, key)
	if err != nil {
		return ingestspec.IngestionSpec{}, fmt.Errorf("get %s: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return ingestspec.IngestionSpec{}, fmt.Errorf("read %s: %w", key, err)
	}
	return ingestspec.ParseJSON(data)
}

func objectKey(dataSource string, at time.Time, id uuid.UUID) string {
	dataSource = strings.TrimSpace(dataSource)
	if dataSource == "" {
		dataSource = "unknown"
	}
	return path.Join(
		keyPrefix,
		dataSource,
		at.Format("2006"),
		at.Format("01"),
		at.Format("02"),
		id.String()+".json",
	)
}
