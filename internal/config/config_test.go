package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load empty path: %v", err)
	}
	if cfg.DataDir != "data" {
		t.Fatalf("default data_dir = %q, want data", cfg.DataDir)
	}
	if cfg.HTTPAddr != ":8080" || cfg.GRPCAddr != ":9090" {
		t.Fatalf("default addrs = %q %q", cfg.HTTPAddr, cfg.GRPCAddr)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlbridge.yml")
	body := "data_dir: /var/lib/sqlbridge\nhttp_addr: \":7070\"\nauto_extensions: [json, fts5]\ndebug: true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/var/lib/sqlbridge" {
		t.Errorf("data_dir = %q", cfg.DataDir)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Errorf("http_addr = %q", cfg.HTTPAddr)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("grpc_addr should keep default, got %q", cfg.GRPCAddr)
	}
	if len(cfg.AutoExtensions) != 2 || cfg.AutoExtensions[0] != "json" {
		t.Errorf("auto_extensions = %v", cfg.AutoExtensions)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("data_dir: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}

	path2 := filepath.Join(t.TempDir(), "empty.yml")
	if err := os.WriteFile(path2, []byte("data_dir: \"\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path2); err == nil {
		t.Fatal("expected validation error for empty data_dir")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
