package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when SALON_CONFIG_PATH is not set.
const DefaultPath = "configs/config.yaml"

type Config struct {
	Server struct {
		Port                int     `yaml:"port"`
		ReadTimeoutSeconds  int     `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int     `yaml:"write_timeout_seconds"`
		RateLimitPerSecond  float64 `yaml:"rate_limit_per_second"`
		RateLimitBurst      int     `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Scheduling struct {
		SlotIntervalMinutes int    `yaml:"slot_interval_minutes"`
		LookaheadMinutes    int    `yaml:"lookahead_minutes"`
		BufferMinutes       int    `yaml:"buffer_minutes"`
		Timezone            string `yaml:"timezone"`
		SchedulableRole     string `yaml:"schedulable_role"`
	} `yaml:"scheduling"`

	RosterPath                  string `yaml:"roster_path"`
	RosterReloadIntervalSeconds int    `yaml:"roster_reload_interval_seconds"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console or json
	} `yaml:"logging"`
}

// PathFromEnv returns SALON_CONFIG_PATH or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("SALON_CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads an optional .env next to the working directory, then the YAML file at
// path with ${ENV_VAR} placeholders expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = 10
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = 15
	}
	if c.Server.RateLimitPerSecond <= 0 {
		c.Server.RateLimitPerSecond = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 20
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/salonbook.db"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Redis.CacheTTLSeconds <= 0 {
		c.Redis.CacheTTLSeconds = 60
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8081
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Scheduling.SlotIntervalMinutes <= 0 {
		c.Scheduling.SlotIntervalMinutes = 30
	}
	if c.Scheduling.LookaheadMinutes == 0 {
		c.Scheduling.LookaheadMinutes = 30
	}
	if c.Scheduling.SchedulableRole == "" {
		c.Scheduling.SchedulableRole = "Stylist"
	}
	if c.RosterPath == "" {
		c.RosterPath = DefaultRosterPath
	}
	if c.RosterReloadIntervalSeconds <= 0 {
		c.RosterReloadIntervalSeconds = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	if c.Scheduling.LookaheadMinutes < 0 {
		return fmt.Errorf("scheduling.lookahead_minutes cannot be negative")
	}
	if c.Scheduling.BufferMinutes < 0 {
		return fmt.Errorf("scheduling.buffer_minutes cannot be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("scheduling.timezone: %w", err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// Location returns the salon's timezone; empty means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Scheduling.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Scheduling.Timezone)
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) RosterReloadInterval() time.Duration {
	return time.Duration(c.RosterReloadIntervalSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}
