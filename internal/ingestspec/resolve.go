package ingestspec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/animus-labs/animus-indexer/internal/domain"
)

// SegmentLister is the catalog capability the resolver depends on. Lookups may
// block on I/O; cancellation and timeouts belong to ctx.
type SegmentLister interface {
	UsedSegmentsForInterval(ctx context.Context, dataSource string, interval domain.Interval) ([]domain.Segment, error)
}

// Resolver fills the dataSource path spec of an ingestion spec with the used
// segments the catalog reports for its interval.
//
// Only the top-level node and, for a multi node, its direct children are
// inspected. When several direct children are dataSource nodes the first one
// wins and the rest are left untouched.
type Resolver struct {
	lister SegmentLister
	logger *slog.Logger
}

func NewResolver(lister SegmentLister, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Resolver{lister: lister, logger: logger}
}

// Resolve is NewResolver(lister, nil).Resolve(ctx, spec).
func Resolve(ctx context.Context, spec IngestionSpec, lister SegmentLister) (IngestionSpec, error) {
	return NewResolver(lister, nil).Resolve(ctx, spec)
}

// Resolve returns spec with its dataSource path spec populated. The input is
// never modified: the returned spec holds a new tree that shares every
// untouched node with the original. A spec without a dataSource reference is
// returned as is.
func (r *Resolver) Resolve(ctx context.Context, spec IngestionSpec) (IngestionSpec, error) {
	if r == nil || r.lister == nil {
		return IngestionSpec{}, errors.New("segment lister is required")
	}

	root := spec.IOConfig().PathSpec
	if root == nil {
		return IngestionSpec{}, &ShapeError{Field: "ioConfig.inputSpec", Reason: "is required"}
	}

	t, ok := findTarget(root)
	if !ok {
		return spec, nil
	}
	if t.ignored > 0 {
		r.logger.Warn("multiple dataSource path specs found, resolving the first only",
			"child_index", t.childIndex,
			"ignored", t.ignored,
		)
	}
	if err := t.node.IngestionSpec.validate(t.path); err != nil {
		return IngestionSpec{}, err
	}

	dataSource := t.node.IngestionSpec.DataSource
	interval := t.node.IngestionSpec.Interval
	segments, err := r.lookup(ctx, dataSource, interval)
	if err != nil {
		return IngestionSpec{}, err
	}
	r.logger.Debug("resolved dataSource path spec",
		"data_source", dataSource,
		"interval", interval.String(),
		"segments", len(segments),
	)

	resolved := t.node.WithSegments(segments)
	var next PathSpec = resolved
	if t.parent != nil {
		next = t.parent.WithChild(t.childIndex, resolved)
	}
	return spec.WithIOConfig(spec.IOConfig().WithPathSpec(next)), nil
}

func (r *Resolver) lookup(ctx context.Context, dataSource string, interval domain.Interval) ([]domain.Segment, error) {
	start := time.Now()
	segments, err := r.lister.UsedSegmentsForInterval(ctx, dataSource, interval)
	segmentLookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		segmentLookups.WithLabelValues("error").Inc()
		var lookupErr *LookupError
		if errors.As(err, &lookupErr) {
			return nil, err
		}
		return nil, &LookupError{DataSource: dataSource, Interval: interval, Err: err}
	}
	segmentLookups.WithLabelValues("ok").Inc()
	return segments, nil
}

type target struct {
	node       *DataSourcePathSpec
	parent     *MultiPathSpec
	childIndex int
	path       string
	ignored    int
}

func findTarget(root PathSpec) (target, bool) {
	switch node := root.(type) {
	case *DataSourcePathSpec:
		if node == nil {
			return target{}, false
		}
		return target{node: node, childIndex: -1, path: "ioConfig.inputSpec." + keyIngestionSpec}, true
	case *MultiPathSpec:
		if node == nil {
			return target{}, false
		}
		found := target{childIndex: -1}
		for i, child := range node.Children {
			ds, ok := child.(*DataSourcePathSpec)
			if !ok || ds == nil {
				continue
			}
			if found.node != nil {
				found.ignored++
				continue
			}
			found.node = ds
			found.parent = node
			found.childIndex = i
			found.path = fmt.Sprintf("ioConfig.inputSpec.%s[%d].%s", keyChildren, i, keyIngestionSpec)
		}
		return found, found.node != nil
	default:
		return target{}, false
	}
}
