package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CGROUP_ANALYZER_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":50051" || cfg.Cache.Backend != CacheBackendNone {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Analysis.Periodicity || cfg.Analysis.ClusterGap != 10 {
		t.Fatalf("unexpected analysis defaults: %+v", cfg.Analysis)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(`
analysis:
  workers: 4
  outputDir: /tmp/out
cache:
  backend: memory
  ttl: 1m
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CGROUP_ANALYZER_CACHE_SIZE", "16")
	t.Setenv("CGROUP_ANALYZER_PERIODICITY", "false")
	t.Setenv("CGROUP_ANALYZER_LOG_FORMAT", "json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Analysis.Workers != 4 || cfg.Analysis.OutputDir != "/tmp/out" {
		t.Fatalf("file values not applied: %+v", cfg.Analysis)
	}
	if cfg.Cache.Backend != CacheBackendMemory || cfg.Cache.TTL != time.Minute || cfg.Cache.Size != 16 {
		t.Fatalf("cache values not applied: %+v", cfg.Cache)
	}
	if cfg.Analysis.Periodicity || !cfg.Logging.JSON {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.Source.Timeout != 30*time.Second {
		t.Fatalf("defaults should survive partial files, got %v", cfg.Source.Timeout)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("CGROUP_ANALYZER_CACHE_BACKEND", "valkey")
	t.Setenv("CGROUP_ANALYZER_CACHE_ADDR", "")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "cache.addr") {
		t.Fatalf("expected missing addr error, got %v", err)
	}

	t.Setenv("CGROUP_ANALYZER_CACHE_BACKEND", "memcached")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
