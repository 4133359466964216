package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/animus-labs/animus-indexer/internal/domain"
)

const wikipediaSpec = `{
  "dataSchema": {"dataSource": "wikipedia"},
  "ioConfig": {
    "type": "hadoop",
    "inputSpec": {
      "type": "multi",
      "children": [
        {"type": "static", "paths": "/data/extra.json"},
        {"type": "dataSource", "ingestionSpec": {"dataSource": "wikipedia", "interval": "2014-10-22T00:00:00.000Z/2014-10-23T00:00:00.000Z"}}
      ]
    }
  }
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func catalogServer(t *testing.T, segments []domain.Segment) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/datasources/wikipedia/segments" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(segments)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestResolve_WritesResolvedSpec(t *testing.T) {
	seg := domain.Segment{
		DataSource: "wikipedia",
		Interval:   domain.MustParseInterval("2014-10-22T00:00:00Z/2014-10-23T00:00:00Z"),
		Version:    "v1",
		LoadSpec:   domain.Metadata{"type": "local", "path": "/segments/wikipedia/v1"},
		ShardSpec:  domain.ShardSpec{Type: domain.ShardSpecNone},
	}
	srv := catalogServer(t, []domain.Segment{seg})
	specPath := writeTemp(t, "spec.json", wikipediaSpec)

	out, err := runCmd(t, "resolve", specPath, "--catalog-url", srv.URL)
	require.NoError(t, err)

	var resolved map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resolved))

	children := resolved["ioConfig"].(map[string]any)["inputSpec"].(map[string]any)["children"].([]any)
	require.Len(t, children, 2)
	assert.NotContains(t, children[0].(map[string]any), "segments")

	segments := children[1].(map[string]any)["segments"].([]any)
	require.Len(t, segments, 1)
	assert.Equal(t, seg.Identifier(), segments[0].(map[string]any)["identifier"])

	tuning := resolved["tuningConfig"].(map[string]any)
	assert.Equal(t, "/tmp/druid-indexing", tuning["workingPath"])
}

func TestResolve_OutputFile(t *testing.T) {
	srv := catalogServer(t, nil)
	specPath := writeTemp(t, "spec.json", wikipediaSpec)
	outPath := filepath.Join(t.TempDir(), "resolved.json")

	stdout, err := runCmd(t, "resolve", specPath, "--catalog-url", srv.URL, "--output", outPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"segments": []`)
}

func TestResolve_CatalogFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	specPath := writeTemp(t, "spec.json", wikipediaSpec)

	_, err := runCmd(t, "resolve", specPath, "--catalog-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wikipedia")
}

func TestResolve_ShapeError(t *testing.T) {
	specPath := writeTemp(t, "spec.json", `{"dataSchema":{},"ioConfig":{"type":"hadoop"}}`)

	_, err := runCmd(t, "resolve", specPath, "--catalog-url", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ioConfig.inputSpec")
}

func TestResolve_MetricsFile(t *testing.T) {
	srv := catalogServer(t, nil)
	specPath := writeTemp(t, "spec.json", wikipediaSpec)
	metricsPath := filepath.Join(t.TempDir(), "resolve.prom")

	_, err := runCmd(t, "resolve", specPath, "--catalog-url", srv.URL, "--metrics-file", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ingestspec_segment_lookups_total{result="ok"}`)
	assert.Contains(t, string(data), "ingestspec_segment_lookup_duration_seconds_count")
}

func TestResolve_MetricsFileWrittenOnLookupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	specPath := writeTemp(t, "spec.json", wikipediaSpec)
	metricsPath := filepath.Join(t.TempDir(), "resolve.prom")

	_, err := runCmd(t, "resolve", specPath, "--catalog-url", srv.URL, "--metrics-file", metricsPath)
	require.Error(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `ingestspec_segment_lookups_total{result="error"}`)
}

func TestResolve_MissingBucketFailsBeforeLookup(t *testing.T) {
	var lookups int
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lookups++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer catalog.Close()
	s3 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected object storage request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer s3.Close()
	t.Setenv("INDEXER_MINIO_ENDPOINT", strings.TrimPrefix(s3.URL, "http://"))
	t.Setenv("INDEXER_MINIO_BUCKET_SPECS", "ingestion-specs")
	specPath := writeTemp(t, "spec.json", wikipediaSpec)

	_, err := runCmd(t, "resolve", specPath, "--catalog-url", catalog.URL, "--archive", "--create-bucket=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "specs bucket missing")
	assert.Zero(t, lookups)
}

func TestResolve_RequiresOneArg(t *testing.T) {
	_, err := runCmd(t, "resolve")
	require.Error(t, err)
}

func TestReadSegments(t *testing.T) {
	good := writeTemp(t, "segments.json", `[
	  {"dataSource":"wikipedia","interval":"2014-10-22T00:00:00.000Z/2014-10-23T00:00:00.000Z","version":"v1","loadSpec":{"type":"local"},"dimensions":"page","metrics":"count","shardSpec":{"type":"none"},"binaryVersion":9,"size":10}
	]`)
	segments, err := readSegments(good)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, []string{"page"}, segments[0].Dimensions)

	tests := map[string]string{
		"empty list":      `[]`,
		"not a list":      `{"dataSource":"wikipedia"}`,
		"missing version": `[{"dataSource":"wikipedia","interval":"2014-10-22/2014-10-23"}]`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := readSegments(writeTemp(t, "segments.json", content))
			assert.Error(t, err)
		})
	}

	_, err = readSegments(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPublishSegments_InvalidDescriptorsFailBeforeConnecting(t *testing.T) {
	path := writeTemp(t, "segments.json", `[]`)
	t.Setenv("DATABASE_URL", "postgres://nobody@127.0.0.1:1/none?sslmode=disable")

	_, err := runCmd(t, "publish-segments", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no segment descriptors")
}
