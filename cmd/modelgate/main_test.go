package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"modelgate/internal/config"
)

func TestResolveConfigLayering(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "cfg.yaml")
	if err := os.WriteFile(p, []byte("addr: :1111\nruntime_url: http://file\nram_budget_mb: 1000\n"), 0o644); err != nil {
		t.Fatalf("write cfg: %v", err)
	}
	t.Setenv("MODELGATE_ADDR", ":2222")

	flags := config.Config{RAMBudgetMB: 3000}
	cfg, err := resolveConfig(p, flags, &cobra.Command{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":2222" {
		t.Fatalf("env must override file, got %q", cfg.Addr)
	}
	if cfg.RAMBudgetMB != 3000 {
		t.Fatalf("flag must override file, got %d", cfg.RAMBudgetMB)
	}
	if cfg.RuntimeURL != "http://file" {
		t.Fatalf("file value must survive, got %q", cfg.RuntimeURL)
	}
	if cfg.MaxConcurrent != 2 {
		t.Fatalf("defaults must be applied, got %d", cfg.MaxConcurrent)
	}
}

func TestResolveConfigBadPath(t *testing.T) {
	if _, err := resolveConfig("/no/such/cfg.yaml", config.Config{}, &cobra.Command{}); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	l := newLogger(config.Config{LogLevel: "debug"})
	if l.GetLevel().String() != "debug" {
		t.Fatalf("level=%s", l.GetLevel())
	}
	l = newLogger(config.Config{LogLevel: "bogus"})
	if l.GetLevel().String() != "info" {
		t.Fatalf("bad level must fall back to info, got %s", l.GetLevel())
	}
}
