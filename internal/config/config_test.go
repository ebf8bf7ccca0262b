package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "does-not-exist.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.General.Port != 8080 {
		t.Fatalf("General.Port = %d, want 8080", cfg.General.Port)
	}
	if cfg.Security.Enabled {
		t.Fatal("Security.Enabled default should be false")
	}
}

func TestLoadFromTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "push_config.toml")
	content := []byte(`
[general]
port = 9000
workers = 8

[security]
enabled = true
key = "supersecret"

[log]
level = "debug"
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.General.Port != 9000 || cfg.General.Workers != 8 {
		t.Fatalf("General = %+v, want port=9000 workers=8", cfg.General)
	}
	if !cfg.Security.Enabled || cfg.Security.Key != "supersecret" {
		t.Fatalf("Security = %+v", cfg.Security)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("PUSH_SECURITY_ENABLED", "true")
	t.Setenv("PUSH_SECURITY_KEY", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Security.Enabled {
		t.Fatal("push_security_enabled=true should enable security")
	}
	if cfg.Security.Key != "from-env" {
		t.Fatalf("Security.Key = %q, want from-env", cfg.Security.Key)
	}
}
