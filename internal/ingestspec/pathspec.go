package ingestspec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/animus-labs/animus-indexer/internal/domain"
)

const (
	PathSpecTypeDataSource = "dataSource"
	PathSpecTypeMulti      = "multi"
)

const (
	keyType          = "type"
	keyChildren      = "children"
	keyIngestionSpec = "ingestionSpec"
	keySegments      = "segments"
	keyDataSource    = "dataSource"
	keyInterval      = "interval"
)

// PathSpec is a node of the input description tree. Concrete nodes are
// *DataSourcePathSpec, *MultiPathSpec and *OpaquePathSpec.
type PathSpec interface {
	Type() string
	MarshalJSON() ([]byte, error)
}

// DataSourceIngestionSpec names the dataset and interval whose used segments
// feed the job. Keys other than dataSource and interval are carried through.
type DataSourceIngestionSpec struct {
	DataSource string
	Interval   domain.Interval
	extra      map[string]json.RawMessage

	// Set when the decoded object could not be read. raw is re-emitted as is
	// and problem surfaces only if the node is resolved.
	raw     json.RawMessage
	problem *fieldProblem
}

// fieldProblem is a deferred shape error. field is relative to the
// ingestionSpec object; empty means the object itself.
type fieldProblem struct {
	field  string
	reason string
}

func (s DataSourceIngestionSpec) Validate() error {
	return s.validate(keyIngestionSpec)
}

func (s DataSourceIngestionSpec) validate(path string) error {
	if s.problem != nil {
		field := path
		if s.problem.field != "" {
			field = path + "." + s.problem.field
		}
		return &ShapeError{Field: field, Reason: s.problem.reason}
	}
	if strings.TrimSpace(s.DataSource) == "" {
		return &ShapeError{Field: path + "." + keyDataSource, Reason: "is required"}
	}
	if err := s.Interval.Validate(); err != nil {
		return &ShapeError{Field: path + "." + keyInterval, Reason: err.Error()}
	}
	return nil
}

func (s DataSourceIngestionSpec) MarshalJSON() ([]byte, error) {
	if s.problem != nil {
		if len(s.raw) == 0 {
			return []byte("null"), nil
		}
		return s.raw, nil
	}
	obj := cloneRaw(s.extra)
	ds, err := json.Marshal(s.DataSource)
	if err != nil {
		return nil, err
	}
	in, err := json.Marshal(s.Interval)
	if err != nil {
		return nil, err
	}
	obj[keyDataSource] = ds
	obj[keyInterval] = in
	return json.Marshal(obj)
}

// DataSourcePathSpec reads the used segments of another dataset. Segments is
// nil until the spec has been resolved.
type DataSourcePathSpec struct {
	IngestionSpec DataSourceIngestionSpec
	Segments      []domain.Segment
	extra         map[string]json.RawMessage
	// rawSegments holds a segments value that did not decode; it is
	// re-emitted until the node is resolved.
	rawSegments json.RawMessage
}

func (p *DataSourcePathSpec) Type() string { return PathSpecTypeDataSource }

// WithSegments returns a copy of p carrying segments. A nil or empty input
// still yields a non-nil, empty list so the resolved node says "no segments".
func (p *DataSourcePathSpec) WithSegments(segments []domain.Segment) *DataSourcePathSpec {
	next := *p
	next.rawSegments = nil
	next.Segments = make([]domain.Segment, len(segments))
	copy(next.Segments, segments)
	return &next
}

func (p *DataSourcePathSpec) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	obj := cloneRaw(p.extra)
	obj[keyType] = json.RawMessage(`"` + PathSpecTypeDataSource + `"`)
	if in := p.IngestionSpec; in.problem == nil || len(in.raw) > 0 {
		ingestion, err := in.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", keyIngestionSpec, err)
		}
		obj[keyIngestionSpec] = ingestion
	}
	switch {
	case p.Segments != nil:
		segments, err := json.Marshal(p.Segments)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", keySegments, err)
		}
		obj[keySegments] = segments
	case len(p.rawSegments) > 0:
		obj[keySegments] = p.rawSegments
	}
	return json.Marshal(obj)
}

// MultiPathSpec aggregates child path specs in declaration order.
type MultiPathSpec struct {
	Children []PathSpec
	extra    map[string]json.RawMessage
}

func (p *MultiPathSpec) Type() string { return PathSpecTypeMulti }

// WithChild returns a copy of p whose child at index i is replaced.
func (p *MultiPathSpec) WithChild(i int, child PathSpec) *MultiPathSpec {
	next := *p
	next.Children = make([]PathSpec, len(p.Children))
	copy(next.Children, p.Children)
	next.Children[i] = child
	return &next
}

func (p *MultiPathSpec) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	obj := cloneRaw(p.extra)
	obj[keyType] = json.RawMessage(`"` + PathSpecTypeMulti + `"`)
	children := make([]json.RawMessage, 0, len(p.Children))
	for i, child := range p.Children {
		if child == nil {
			children = append(children, json.RawMessage("null"))
			continue
		}
		raw, err := child.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode %s[%d]: %w", keyChildren, i, err)
		}
		children = append(children, raw)
	}
	encoded, err := json.Marshal(children)
	if err != nil {
		return nil, err
	}
	obj[keyChildren] = encoded
	return json.Marshal(obj)
}

// OpaquePathSpec is any path spec kind this package does not interpret. Its
// payload is carried through unchanged.
type OpaquePathSpec struct {
	Kind string
	Raw  json.RawMessage
}

func (p *OpaquePathSpec) Type() string { return p.Kind }

func (p *OpaquePathSpec) MarshalJSON() ([]byte, error) {
	if p == nil || len(p.Raw) == 0 {
		return []byte("null"), nil
	}
	return p.Raw, nil
}

func NewDataSourcePathSpec(dataSource string, interval domain.Interval) *DataSourcePathSpec {
	return &DataSourcePathSpec{
		IngestionSpec: DataSourceIngestionSpec{DataSource: dataSource, Interval: interval},
	}
}

func NewMultiPathSpec(children ...PathSpec) *MultiPathSpec {
	return &MultiPathSpec{Children: children}
}

// DecodePathSpec builds the typed tree from its JSON form. Only the root and
// the direct children of a root multi node are interpreted; anything deeper is
// kept as an opaque node. dataSource nodes are not validated here: a problem
// in one is reported by the resolver, and only for the node it acts on.
func DecodePathSpec(raw json.RawMessage) (PathSpec, error) {
	return decodePathSpec(raw, "inputSpec")
}

func decodePathSpec(raw json.RawMessage, path string) (PathSpec, error) {
	obj, err := decodeObject(raw, path)
	if err != nil {
		return nil, err
	}
	kind, err := stringField(obj, keyType, path)
	if err != nil {
		return nil, err
	}

	switch kind {
	case PathSpecTypeDataSource:
		return decodeDataSourcePathSpec(obj), nil
	case PathSpecTypeMulti:
		return decodeMultiPathSpec(obj, path)
	default:
		return opaque(kind, raw), nil
	}
}

// decodeChild never fails: a child that cannot be classified is opaque.
func decodeChild(raw json.RawMessage) PathSpec {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return opaque("", raw)
	}
	var kind string
	if rawKind, ok := obj[keyType]; !ok || json.Unmarshal(rawKind, &kind) != nil {
		return opaque("", raw)
	}
	if kind == PathSpecTypeDataSource {
		return decodeDataSourcePathSpec(obj)
	}
	return opaque(kind, raw)
}

func opaque(kind string, raw json.RawMessage) *OpaquePathSpec {
	return &OpaquePathSpec{Kind: kind, Raw: append(json.RawMessage(nil), raw...)}
}

func decodeDataSourcePathSpec(obj map[string]json.RawMessage) *DataSourcePathSpec {
	rawIngestion, ok := obj[keyIngestionSpec]
	node := &DataSourcePathSpec{
		IngestionSpec: decodeDataSourceIngestionSpec(rawIngestion, ok),
		extra:         without(obj, keyType, keyIngestionSpec, keySegments),
	}
	if rawSegments, ok := obj[keySegments]; ok && !isJSONNull(rawSegments) {
		var segments []domain.Segment
		if err := json.Unmarshal(rawSegments, &segments); err != nil {
			node.rawSegments = append(json.RawMessage(nil), rawSegments...)
		} else {
			node.Segments = segments
		}
	}
	return node
}

func decodeDataSourceIngestionSpec(raw json.RawMessage, present bool) DataSourceIngestionSpec {
	if !present {
		return DataSourceIngestionSpec{problem: &fieldProblem{reason: "is required"}}
	}
	invalid := func(field, reason string) DataSourceIngestionSpec {
		return DataSourceIngestionSpec{
			raw:     append(json.RawMessage(nil), raw...),
			problem: &fieldProblem{field: field, reason: reason},
		}
	}

	obj, err := decodeObject(raw, keyIngestionSpec)
	if err != nil {
		return invalid("", shapeReason(err))
	}
	dataSource, err := stringField(obj, keyDataSource, keyIngestionSpec)
	if err != nil {
		return invalid(keyDataSource, shapeReason(err))
	}
	intervalRaw, err := stringField(obj, keyInterval, keyIngestionSpec)
	if err != nil {
		return invalid(keyInterval, shapeReason(err))
	}
	interval, err := domain.ParseInterval(intervalRaw)
	if err != nil {
		return invalid(keyInterval, err.Error())
	}
	return DataSourceIngestionSpec{
		DataSource: dataSource,
		Interval:   interval,
		extra:      without(obj, keyDataSource, keyInterval),
	}
}

func decodeMultiPathSpec(obj map[string]json.RawMessage, path string) (*MultiPathSpec, error) {
	childrenPath := path + "." + keyChildren
	rawChildren, ok := obj[keyChildren]
	if !ok {
		return nil, &ShapeError{Field: childrenPath, Reason: "is required"}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawChildren, &items); err != nil || items == nil {
		return nil, &ShapeError{Field: childrenPath, Reason: "must be a JSON array"}
	}
	children := make([]PathSpec, 0, len(items))
	for _, item := range items {
		children = append(children, decodeChild(item))
	}
	return &MultiPathSpec{Children: children, extra: without(obj, keyType, keyChildren)}, nil
}

func decodeObject(raw json.RawMessage, path string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, &ShapeError{Field: path, Reason: "must be a JSON object"}
	}
	return obj, nil
}

func stringField(obj map[string]json.RawMessage, key, path string) (string, error) {
	raw, ok := obj[key]
	if !ok || isJSONNull(raw) {
		return "", &ShapeError{Field: path + "." + key, Reason: "is required"}
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", &ShapeError{Field: path + "." + key, Reason: "must be a string"}
	}
	return value, nil
}

func shapeReason(err error) string {
	var shapeErr *ShapeError
	if errors.As(err, &shapeErr) {
		return shapeErr.Reason
	}
	return err.Error()
}

func without(obj map[string]json.RawMessage, keys ...string) map[string]json.RawMessage {
	out := cloneRaw(obj)
	for _, key := range keys {
		delete(out, key)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneRaw(obj map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(obj)+3)
	for k, v := range obj {
		out[k] = v
	}
	return out
}
