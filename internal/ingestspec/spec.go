package ingestspec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DataSchema describes the target dataset. Its validity is checked by the job
// framework, not here.
type DataSchema struct {
	DataSource      string           `json:"dataSource"`
	Parser          map[string]any   `json:"parser,omitempty"`
	MetricsSpec     []map[string]any `json:"metricsSpec,omitempty"`
	GranularitySpec map[string]any   `json:"granularitySpec,omitempty"`
}

// IOConfig carries the path spec tree under the wire key "inputSpec".
type IOConfig struct {
	Type               string
	PathSpec           PathSpec
	MetadataUpdateSpec map[string]any
	SegmentOutputPath  string
}

func (c IOConfig) WithPathSpec(spec PathSpec) IOConfig {
	c.PathSpec = spec
	return c
}

type ioConfigPayload struct {
	Type               string          `json:"type,omitempty"`
	InputSpec          json.RawMessage `json:"inputSpec"`
	MetadataUpdateSpec map[string]any  `json:"metadataUpdateSpec,omitempty"`
	SegmentOutputPath  string          `json:"segmentOutputPath,omitempty"`
}

func (c IOConfig) MarshalJSON() ([]byte, error) {
	payload := ioConfigPayload{
		Type:               c.Type,
		MetadataUpdateSpec: c.MetadataUpdateSpec,
		SegmentOutputPath:  c.SegmentOutputPath,
		InputSpec:          json.RawMessage("null"),
	}
	if c.PathSpec != nil {
		raw, err := c.PathSpec.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode inputSpec: %w", err)
		}
		payload.InputSpec = raw
	}
	return json.Marshal(payload)
}

func (c *IOConfig) UnmarshalJSON(data []byte) error {
	var payload ioConfigPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return &ShapeError{Field: "ioConfig", Reason: "must be a JSON object"}
	}
	if isJSONNull(payload.InputSpec) {
		return &ShapeError{Field: "ioConfig.inputSpec", Reason: "is required"}
	}
	pathSpec, err := decodePathSpec(payload.InputSpec, "ioConfig.inputSpec")
	if err != nil {
		return err
	}
	*c = IOConfig{
		Type:               payload.Type,
		PathSpec:           pathSpec,
		MetadataUpdateSpec: payload.MetadataUpdateSpec,
		SegmentOutputPath:  payload.SegmentOutputPath,
	}
	return nil
}

// IngestionSpec is the immutable job configuration. The With* methods return
// siblings that share every unchanged field with the receiver.
type IngestionSpec struct {
	dataSchema   DataSchema
	ioConfig     IOConfig
	tuningConfig TuningConfig
}

func New(dataSchema DataSchema, ioConfig IOConfig, tuningConfig *TuningConfig) IngestionSpec {
	return IngestionSpec{
		dataSchema:   dataSchema,
		ioConfig:     ioConfig,
		tuningConfig: TuningConfigOrDefault(tuningConfig),
	}
}

func (s IngestionSpec) DataSchema() DataSchema     { return s.dataSchema }
func (s IngestionSpec) IOConfig() IOConfig         { return s.ioConfig }
func (s IngestionSpec) TuningConfig() TuningConfig { return s.tuningConfig }

func (s IngestionSpec) WithDataSchema(schema DataSchema) IngestionSpec {
	return New(schema, s.ioConfig, &s.tuningConfig)
}

func (s IngestionSpec) WithIOConfig(cfg IOConfig) IngestionSpec {
	return New(s.dataSchema, cfg, &s.tuningConfig)
}

func (s IngestionSpec) WithTuningConfig(cfg TuningConfig) IngestionSpec {
	return New(s.dataSchema, s.ioConfig, &cfg)
}

type ingestionSpecPayload struct {
	DataSchema   *DataSchema   `json:"dataSchema"`
	IOConfig     *IOConfig     `json:"ioConfig"`
	TuningConfig *TuningConfig `json:"tuningConfig"`
}

func (s IngestionSpec) MarshalJSON() ([]byte, error) {
	tuning := s.tuningConfig
	return json.Marshal(ingestionSpecPayload{
		DataSchema:   &s.dataSchema,
		IOConfig:     &s.ioConfig,
		TuningConfig: &tuning,
	})
}

func (s *IngestionSpec) UnmarshalJSON(data []byte) error {
	var payload ingestionSpecPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.DataSchema == nil {
		return &ShapeError{Field: "dataSchema", Reason: "is required"}
	}
	if payload.IOConfig == nil {
		return &ShapeError{Field: "ioConfig", Reason: "is required"}
	}
	*s = New(*payload.DataSchema, *payload.IOConfig, payload.TuningConfig)
	return nil
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
