package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("username: alice\npassword: hunter2\ncache: /tmp/tokens\ntimeout: 15\ntrace:\n  exporter: stdout\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SKYMSG_PASSWORD", "from-env")
	t.Setenv("SKYMSG_TRACE_EXPORTER", "otlp")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Username != "alice" || cfg.Cache != "/tmp/tokens" || cfg.Timeout != 15 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Password != "from-env" {
		t.Fatalf("env override lost: %q", cfg.Password)
	}
	if cfg.Trace.Exporter != "otlp" {
		t.Fatalf("nested env override lost: %q", cfg.Trace.Exporter)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadConfigEnvOnly(t *testing.T) {
	t.Setenv("SKYMSG_USERNAME", "bob")
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Username != "bob" {
		t.Fatalf("cfg = %+v", cfg)
	}
}
