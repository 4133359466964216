package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	ShardSpecNone   = "none"
	ShardSpecLinear = "linear"
)

// ShardSpec places a segment within its interval's partition set.
type ShardSpec struct {
	Type         string `json:"type"`
	PartitionNum int    `json:"partitionNum,omitempty"`
}

// Segment is an immutable, identifiable unit of ingested data covering one
// interval of one dataset. Segments are read from the catalog; nothing in the
// resolution path constructs them.
type Segment struct {
	DataSource    string
	Interval      Interval
	Version       string
	LoadSpec      Metadata
	Dimensions    []string
	Metrics       []string
	ShardSpec     ShardSpec
	BinaryVersion int
	Size          int64
}

// Identifier renders dataSource_start_end_version, suffixed with the partition
// number for non-zero partitions.
func (s Segment) Identifier() string {
	var b strings.Builder
	b.WriteString(s.DataSource)
	b.WriteByte('_')
	b.WriteString(s.Interval.Start.UTC().Format(IntervalTimeFormat))
	b.WriteByte('_')
	b.WriteString(s.Interval.End.UTC().Format(IntervalTimeFormat))
	b.WriteByte('_')
	b.WriteString(s.Version)
	if s.ShardSpec.PartitionNum != 0 {
		fmt.Fprintf(&b, "_%d", s.ShardSpec.PartitionNum)
	}
	return b.String()
}

func (s Segment) Validate() error {
	if strings.TrimSpace(s.DataSource) == "" {
		return errors.New("segment dataSource is required")
	}
	if err := s.Interval.Validate(); err != nil {
		return fmt.Errorf("segment interval: %w", err)
	}
	if strings.TrimSpace(s.Version) == "" {
		return errors.New("segment version is required")
	}
	if s.Size < 0 {
		return errors.New("segment size must be >= 0")
	}
	return nil
}

type segmentPayload struct {
	DataSource    string    `json:"dataSource"`
	Interval      Interval  `json:"interval"`
	Version       string    `json:"version"`
	LoadSpec      Metadata  `json:"loadSpec"`
	Dimensions    string    `json:"dimensions"`
	Metrics       string    `json:"metrics"`
	ShardSpec     ShardSpec `json:"shardSpec"`
	BinaryVersion int       `json:"binaryVersion"`
	Size          int64     `json:"size"`
	Identifier    string    `json:"identifier"`
}

func (s Segment) MarshalJSON() ([]byte, error) {
	shard := s.ShardSpec
	if shard.Type == "" {
		shard.Type = ShardSpecNone
	}
	return json.Marshal(segmentPayload{
		DataSource:    s.DataSource,
		Interval:      s.Interval,
		Version:       s.Version,
		LoadSpec:      s.LoadSpec.Clone(),
		Dimensions:    strings.Join(s.Dimensions, ","),
		Metrics:       strings.Join(s.Metrics, ","),
		ShardSpec:     shard,
		BinaryVersion: s.BinaryVersion,
		Size:          s.Size,
		Identifier:    s.Identifier(),
	})
}

// UnmarshalJSON accepts the wire shape. The identifier field is derived and
// ignored on input.
func (s *Segment) UnmarshalJSON(data []byte) error {
	var payload segmentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	shard := payload.ShardSpec
	if shard.Type == "" {
		shard.Type = ShardSpecNone
	}
	*s = Segment{
		DataSource:    payload.DataSource,
		Interval:      payload.Interval,
		Version:       payload.Version,
		LoadSpec:      payload.LoadSpec,
		Dimensions:    splitList(payload.Dimensions),
		Metrics:       splitList(payload.Metrics),
		ShardSpec:     shard,
		BinaryVersion: payload.BinaryVersion,
		Size:          payload.Size,
	}
	return nil
}

func splitList(value string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
