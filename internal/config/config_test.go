package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0ld3ull/operator/internal/config"
)

func TestLoad_DefaultsWhenNoPath(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("want default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.ExpiryHours != 48 {
		t.Errorf("want default expiry hours 48, got %d", cfg.ExpiryHours)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("data_dir: /tmp/opdata\nexpiry_hours: 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/tmp/opdata" {
		t.Errorf("want file override, got %q", cfg.DataDir)
	}
	if cfg.ExpiryHours != 12 {
		t.Errorf("want 12, got %d", cfg.ExpiryHours)
	}
	// Untouched fields keep their defaults.
	if cfg.ListenAddr != ":8080" {
		t.Errorf("want default listen addr preserved, got %q", cfg.ListenAddr)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("data_dir: /tmp/opdata\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPERATOR_DATA_DIR", "/tmp/from-env")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/tmp/from-env" {
		t.Errorf("want env override, got %q", cfg.DataDir)
	}
}
