package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
schedule:
  cron: "0 */6 * * *"
  timezone: "UTC"
searches:
  - keywords: ["engineer"]
    job_boards: ["indeed"]
database:
  url: "mongodb://file-configured:27017"
  database: "jobwatch"
llm:
  provider: "ollama"
`

func TestLoadFromFileParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobwatch.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Database.URL != "mongodb://file-configured:27017" {
		t.Fatalf("Database.URL = %q", cfg.Database.URL)
	}
	if len(cfg.Searches) != 1 || cfg.Searches[0].Keywords[0] != "engineer" {
		t.Fatalf("Searches = %+v", cfg.Searches)
	}
	if cfg.Governor.MinDelay != DefaultConfig().Governor.MinDelay {
		t.Fatalf("expected unset governor fields to keep their defaults, got %v", cfg.Governor.MinDelay)
	}
}

func TestLoadAppliesFlatEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobwatch.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	t.Setenv("JOBWATCH_DATABASE_URL", "mongodb://env-configured:27017")
	t.Setenv("JOBWATCH_LLM_MODEL_KEY", "secret-key")
	t.Setenv("JOBWATCH_MAX_CONCURRENT_PER_DOMAIN", "7")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Database.URL != "mongodb://env-configured:27017" {
		t.Fatalf("Database.URL = %q, want env override to win over the file", cfg.Database.URL)
	}
	if cfg.LLM.ModelKey != "secret-key" {
		t.Fatalf("LLM.ModelKey = %q", cfg.LLM.ModelKey)
	}
	if cfg.Governor.MaxConcurrentPerDomain != 7 {
		t.Fatalf("Governor.MaxConcurrentPerDomain = %d, want 7", cfg.Governor.MaxConcurrentPerDomain)
	}
}

func TestLoadAppliesProxyURLOverrideByAppending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobwatch.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	t.Setenv("JOBWATCH_PROXY_URL", "http://env-proxy:8080")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	found := false
	for _, u := range cfg.Proxy.URLs {
		if u == "http://env-proxy:8080" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Proxy.URLs = %v, want it to include the env-provided proxy", cfg.Proxy.URLs)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer func() { _ = os.Chdir(cwd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no config file present: %v", err)
	}
	if cfg.Governor.MinDelay != DefaultConfig().Governor.MinDelay {
		t.Fatalf("expected defaults when no config file is found, got %v", cfg.Governor.MinDelay)
	}
}

func TestDefaultConfigGovernorBounds(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Governor.MinDelay != 2*time.Second || cfg.Governor.MaxDelay != 7*time.Second {
		t.Fatalf("default delay bounds = %v/%v", cfg.Governor.MinDelay, cfg.Governor.MaxDelay)
	}
}
