package ingestspec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ParseJSON decodes an ingestion spec document.
func ParseJSON(data []byte) (IngestionSpec, error) {
	var spec IngestionSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return IngestionSpec{}, fmt.Errorf("decode ingestion spec: %w", err)
	}
	return spec, nil
}

// ParseYAML decodes a YAML ingestion spec by converting it to its JSON form.
func ParseYAML(data []byte) (IngestionSpec, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return IngestionSpec{}, fmt.Errorf("decode yaml: %w", err)
	}
	normalized, err := jsonCompatible(doc, "")
	if err != nil {
		return IngestionSpec{}, err
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return IngestionSpec{}, fmt.Errorf("encode yaml as json: %w", err)
	}
	return ParseJSON(raw)
}

// LoadFile reads a spec from disk. Files ending in .yaml or .yml are YAML,
// everything else is JSON.
func LoadFile(path string) (IngestionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return IngestionSpec{}, fmt.Errorf("read spec: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

func jsonCompatible(v any, path string) (any, error) {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			converted, err := jsonCompatible(item, path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = converted
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("yaml key %v at %q must be a string", k, path)
			}
			converted, err := jsonCompatible(item, path+"."+key)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			converted, err := jsonCompatible(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case time.Time:
		return value.UTC().Format(time.RFC3339Nano), nil
	default:
		return value, nil
	}
}
