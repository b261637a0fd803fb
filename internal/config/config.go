package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "NEWSWATCH_CONFIG"
	dataDirEnv    = "NEWSWATCH_DATA_DIR"
	proxyURLEnv   = "NEWSWATCH_PROXY_URL"
	logLevelEnv   = "NEWSWATCH_LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Data      DataConfig      `yaml:"data"`
	Transport TransportConfig `yaml:"transport"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DataConfig roots all on-disk state under one directory.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// SourcesPath locates the monitored-publisher catalog.
func (d DataConfig) SourcesPath() string {
	return filepath.Join(d.Dir, "sources.json")
}

// NationalKeywordsPath locates the national-interest keyword set.
func (d DataConfig) NationalKeywordsPath() string {
	return filepath.Join(d.Dir, "keywords_national.json")
}

// ThreatKeywordsPath locates the threat keyword set.
func (d DataConfig) ThreatKeywordsPath() string {
	return filepath.Join(d.Dir, "keywords_threat.json")
}

// RunsDir locates the immutable run containers.
func (d DataConfig) RunsDir() string {
	return filepath.Join(d.Dir, "runs")
}

// CatalogPath locates the sqlite run catalog.
func (d DataConfig) CatalogPath() string {
	return filepath.Join(d.Dir, "catalog.db")
}

// TransportConfig describes the proxied HTTP fetch collaborator.
type TransportConfig struct {
	ProxyURL       string `yaml:"proxyUrl"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	Retries        int    `yaml:"retries"`
	MaxBodyBytes   int64  `yaml:"maxBodyBytes"`
}

// Timeout resolves the per-request deadline.
func (t TransportConfig) Timeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// PipelineConfig bounds concurrency and extraction quality.
type PipelineConfig struct {
	Concurrency      int `yaml:"concurrency"`
	EndpointURLLimit int `yaml:"endpointUrlLimit"`
	MinBodyChars     int `yaml:"minBodyChars"`
}

// SchedulerConfig defines the unattended execution cadence.
type SchedulerConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalMinutes int  `yaml:"intervalMinutes"`
}

// Interval resolves the pause between scheduled runs.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(dataDirEnv); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv(proxyURLEnv); v != "" {
		c.Transport.ProxyURL = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Data.Dir != "" {
		base.Data = override.Data
	}
	if override.Transport.ProxyURL != "" {
		base.Transport.ProxyURL = override.Transport.ProxyURL
	}
	if override.Transport.TimeoutSeconds > 0 {
		base.Transport.TimeoutSeconds = override.Transport.TimeoutSeconds
	}
	if override.Transport.Retries > 0 {
		base.Transport.Retries = override.Transport.Retries
	}
	if override.Transport.MaxBodyBytes > 0 {
		base.Transport.MaxBodyBytes = override.Transport.MaxBodyBytes
	}
	if override.Pipeline.Concurrency > 0 {
		base.Pipeline.Concurrency = override.Pipeline.Concurrency
	}
	if override.Pipeline.EndpointURLLimit > 0 {
		base.Pipeline.EndpointURLLimit = override.Pipeline.EndpointURLLimit
	}
	if override.Pipeline.MinBodyChars > 0 {
		base.Pipeline.MinBodyChars = override.Pipeline.MinBodyChars
	}
	if override.Scheduler.IntervalMinutes > 0 {
		base.Scheduler.IntervalMinutes = override.Scheduler.IntervalMinutes
	}
	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Data:    DataConfig{Dir: "data"},
		Transport: TransportConfig{
			TimeoutSeconds: 30,
			Retries:        3,
			MaxBodyBytes:   3_000_000,
		},
		Pipeline: PipelineConfig{
			Concurrency:      8,
			EndpointURLLimit: 100,
			MinBodyChars:     200,
		},
		Scheduler: SchedulerConfig{Enabled: false, IntervalMinutes: 360},
	}
}
