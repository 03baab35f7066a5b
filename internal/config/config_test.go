package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	clearKnownEnv(t)

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", s.HTTPAddr)
	}
	if s.MinIOBucket != "knowhub" {
		t.Fatalf("MinIOBucket = %q, want knowhub", s.MinIOBucket)
	}
	if s.PresignExpiry != 900*time.Second {
		t.Fatalf("PresignExpiry = %v, want 900s", s.PresignExpiry)
	}
	if !s.AllowsExtension(".pdf") || s.AllowsExtension(".exe") {
		t.Fatalf("unexpected default allow-list: %v", s.AllowedExtensions)
	}
}

func TestLoadPrefersEnvOverDefaults(t *testing.T) {
	clearKnownEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("MINIO_BUCKET", "custom-bucket")
	t.Setenv("PRESIGN_EXPIRY_SECONDS", "60")

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.HTTPAddr != ":9999" {
		t.Fatalf("HTTPAddr = %q, want :9999", s.HTTPAddr)
	}
	if s.MinIOBucket != "custom-bucket" {
		t.Fatalf("MinIOBucket = %q, want custom-bucket", s.MinIOBucket)
	}
	if s.PresignExpiry != 60*time.Second {
		t.Fatalf("PresignExpiry = %v, want 60s", s.PresignExpiry)
	}
}

func TestLoadOverridesAllowedExtensionsFromFile(t *testing.T) {
	clearKnownEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "allow.json")
	if err := os.WriteFile(path, []byte(`{"allowed_extensions": [".csv", ".json"]}`), 0o644); err != nil {
		t.Fatalf("write allow-list file: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.AllowsExtension(".csv") || s.AllowsExtension(".pdf") {
		t.Fatalf("expected allow-list overridden from file, got %v", s.AllowedExtensions)
	}
}

func clearKnownEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"HTTP_ADDR", "MINIO_ENDPOINT", "MINIO_PUBLIC_ENDPOINT", "MINIO_ROOT_USER",
		"MINIO_ROOT_PASSWORD", "MINIO_BUCKET", "MINIO_SECURE", "REDIS_ADDR",
		"REDIS_PASSWORD", "REDIS_DB", "POSTGRES_DSN", "LLM_PROVIDER", "LLM_API_KEY",
		"LLM_BASE_URL", "LLM_MODEL", "EMBEDDING_ENDPOINT", "EMBEDDING_MODEL",
		"EMBEDDING_BATCH_SIZE", "MAX_UPLOAD_BYTES", "PRESIGN_EXPIRY_SECONDS",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "SERVICE_NAME",
	} {
		t.Setenv(k, "")
	}
}
