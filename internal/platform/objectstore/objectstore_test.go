package objectstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Endpoint:    "localhost:9000",
		AccessKey:   "a",
		SecretKey:   "b",
		Region:      "us-east-1",
		BucketSpecs: "ingestion-specs",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	invalid := valid
	invalid.Endpoint = "http://localhost:9000"
	if err := invalid.Validate(); err == nil {
		t.Fatalf("Validate() expected error for scheme in endpoint")
	}

	invalid = valid
	invalid.BucketSpecs = " "
	if err := invalid.Validate(); err == nil {
		t.Fatalf("Validate() expected error for empty bucket")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("INDEXER_MINIO_BUCKET_SPECS", "specs-archive")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.BucketSpecs != "specs-archive" {
		t.Fatalf("BucketSpecs=%q, want specs-archive", cfg.BucketSpecs)
	}

	t.Setenv("INDEXER_MINIO_USE_SSL", "maybe")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("ConfigFromEnv() expected error for invalid bool")
	}
}

func TestNewMinioStore_RequiresClient(t *testing.T) {
	if _, err := NewMinioStore(nil); err == nil {
		t.Fatalf("NewMinioStore(nil) expected error")
	}
	var s *MinioStore
	if err := s.Put(context.Background(), "b", "k", strings.NewReader("x"), 1, "text/plain"); err == nil {
		t.Fatalf("Put() on nil store expected error")
	}
}

func TestCheckBucket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead && strings.Trim(r.URL.Path, "/") == "ingestion-specs" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := Config{
		Endpoint:    strings.TrimPrefix(srv.URL, "http://"),
		AccessKey:   "a",
		SecretKey:   "b",
		Region:      "us-east-1",
		BucketSpecs: "ingestion-specs",
	}
	client, err := NewMinIOClient(cfg)
	if err != nil {
		t.Fatalf("NewMinIOClient() err=%v", err)
	}
	if err := CheckBucket(context.Background(), client, cfg); err != nil {
		t.Fatalf("CheckBucket() err=%v", err)
	}

	missing := cfg
	missing.BucketSpecs = "other-specs"
	err = CheckBucket(context.Background(), client, missing)
	if err == nil || !strings.Contains(err.Error(), "specs bucket missing") {
		t.Fatalf("CheckBucket()=%v, want missing bucket error", err)
	}
}
