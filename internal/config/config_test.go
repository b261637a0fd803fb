package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"NEWSWATCH_CONFIG", "NEWSWATCH_DATA_DIR", "NEWSWATCH_PROXY_URL", "NEWSWATCH_LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Transport.Timeout() != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.Transport.Timeout())
	}
	if cfg.Pipeline.Concurrency != 8 || cfg.Pipeline.MinBodyChars != 200 {
		t.Fatalf("pipeline defaults = %+v", cfg.Pipeline)
	}
	if cfg.Scheduler.Enabled {
		t.Fatal("scheduler enabled by default")
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
logging:
  level: debug
data:
  dir: /var/lib/newswatch
transport:
  retries: 5
scheduler:
  enabled: true
  intervalMinutes: 60
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NEWSWATCH_CONFIG", path)
	t.Setenv("NEWSWATCH_DATA_DIR", "/srv/newswatch")
	t.Setenv("NEWSWATCH_PROXY_URL", "socks5://127.0.0.1:9050")

	cfg := Load()

	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if cfg.Transport.Retries != 5 {
		t.Fatalf("retries = %d", cfg.Transport.Retries)
	}
	// File value loses to the environment override.
	if cfg.Data.Dir != "/srv/newswatch" {
		t.Fatalf("data dir = %q", cfg.Data.Dir)
	}
	if cfg.Transport.ProxyURL != "socks5://127.0.0.1:9050" {
		t.Fatalf("proxy = %q", cfg.Transport.ProxyURL)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.Interval() != time.Hour {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	// Unset file keys keep their defaults.
	if cfg.Transport.TimeoutSeconds != 30 {
		t.Fatalf("timeout seconds = %d", cfg.Transport.TimeoutSeconds)
	}
}

func TestDataPaths(t *testing.T) {
	d := DataConfig{Dir: "/data"}
	if d.SourcesPath() != filepath.Join("/data", "sources.json") {
		t.Fatalf("sources path = %q", d.SourcesPath())
	}
	if d.RunsDir() != filepath.Join("/data", "runs") {
		t.Fatalf("runs dir = %q", d.RunsDir())
	}
	if d.CatalogPath() != filepath.Join("/data", "catalog.db") {
		t.Fatalf("catalog path = %q", d.CatalogPath())
	}
}
