package ingestspec

import "encoding/json"

const (
	DefaultWorkingPath      = "/tmp/druid-indexing"
	DefaultRowFlushBoundary = 80000
)

type TuningConfig struct {
	WorkingPath       string            `json:"workingPath,omitempty"`
	Version           string            `json:"version,omitempty"`
	PartitionsSpec    map[string]any    `json:"partitionsSpec,omitempty"`
	RowFlushBoundary  int               `json:"rowFlushBoundary"`
	LeaveIntermediate bool              `json:"leaveIntermediate"`
	CleanupOnFailure  bool              `json:"cleanupOnFailure"`
	OverwriteFiles    bool              `json:"overwriteFiles"`
	IgnoreInvalidRows bool              `json:"ignoreInvalidRows"`
	JobProperties     map[string]string `json:"jobProperties,omitempty"`
	CombineText       bool              `json:"combineText"`
	UseCombiner       bool              `json:"useCombiner"`
}

// DefaultTuningConfig is the tuning policy applied when a spec carries none.
// An empty Version is assigned by the job framework at submission.
func DefaultTuningConfig() TuningConfig {
	return TuningConfig{
		WorkingPath:      DefaultWorkingPath,
		RowFlushBoundary: DefaultRowFlushBoundary,
		CleanupOnFailure: true,
	}
}

func TuningConfigOrDefault(cfg *TuningConfig) TuningConfig {
	if cfg == nil {
		return DefaultTuningConfig()
	}
	return *cfg
}

// UnmarshalJSON fills keys absent from the document with their defaults.
func (t *TuningConfig) UnmarshalJSON(data []byte) error {
	type plain TuningConfig
	out := plain(DefaultTuningConfig())
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*t = TuningConfig(out)
	return nil
}
