package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend     BackendConfig     `yaml:"backend"`
	Sync        SyncConfig        `yaml:"sync"`
	HTTP        HTTPConfig        `yaml:"http"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	Annotations AnnotationsConfig `yaml:"annotations"`
	Log         LogConfig         `yaml:"log"`
}

// BackendConfig points at the upstream restaurant backend that owns all
// order state. This service only reads orders and submits transitions.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TenantID       string `yaml:"tenant_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type SyncConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	PageSize        int    `yaml:"page_size"`
	StatusFilter    string `yaml:"status_filter"`
	AutoRefresh     bool   `yaml:"auto_refresh"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type RabbitMQConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// AnnotationsConfig selects the backing for the per-session prepared-item
// checklist. With an empty data_dir the store lives in memory only.
type AnnotationsConfig struct {
	DataDir           string `yaml:"data_dir"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("backend.base_url is required")
	}
	if cfg.Backend.TenantID == "" {
		return nil, fmt.Errorf("backend.tenant_id is required")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 15
	}
	if c.Sync.IntervalSeconds == 0 {
		c.Sync.IntervalSeconds = 5
	}
	if c.Sync.PageSize == 0 {
		c.Sync.PageSize = 100
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 3000
	}
	if c.Annotations.SessionTTLMinutes == 0 {
		c.Annotations.SessionTTLMinutes = 240
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

func (c *AnnotationsConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}
