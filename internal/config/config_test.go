package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "db.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, `
DB:
  url: "postgres://localhost/hyve"
HydraRPC:
  url: "http://localhost:3389"
HyDbClient:
  url: "http://localhost:8080"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB.URL != "postgres://localhost/hyve" {
		t.Fatalf("got %q", cfg.DB.URL)
	}
	if cfg.HydraRPC.URL != "http://localhost:3389" {
		t.Fatalf("got %q", cfg.HydraRPC.URL)
	}
}

func TestLoadMissingFieldsFailsFast(t *testing.T) {
	path := writeConfig(t, `
DB:
  url: "postgres://localhost/hyve"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing HydraRPC.url/HyDbClient.url")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBadFernetLength(t *testing.T) {
	path := writeConfig(t, `
DB:
  url: "postgres://localhost/hyve"
  fernet: "short"
HydraRPC:
  url: "http://localhost:3389"
HyDbClient:
  url: "http://localhost:8080"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for fernet key not 44 bytes")
	}
}
