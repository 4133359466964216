package ingestspec

import (
	"errors"
	"fmt"

	"github.com/animus-labs/animus-indexer/internal/domain"
)

var (
	// ErrConfigShape matches every *ShapeError.
	ErrConfigShape = errors.New("ingestion spec has an unexpected shape")
	// ErrLookup matches every *LookupError.
	ErrLookup = errors.New("used segment lookup failed")
)

// ShapeError reports a configuration node that lacks an expected field or has
// the wrong JSON kind. Job submission must be aborted.
type ShapeError struct {
	Field  string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("ingestion spec: %s %s", e.Field, e.Reason)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrConfigShape
}

// LookupError reports a failed catalog lookup. It is never retried here.
type LookupError struct {
	DataSource string
	Interval   domain.Interval
	Err        error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup used segments of %q over %s: %v", e.DataSource, e.Interval, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}
