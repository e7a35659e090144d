// Package config provides configuration management for the face gate.
// It loads configuration from YAML files with sensible defaults and
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all face gate configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Face     FaceConfig     `yaml:"face"`
	Liveness LivenessConfig `yaml:"liveness"`
	Quota    QuotaConfig    `yaml:"quota"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	APIKey   string `yaml:"api_key"`
	AdminKey string `yaml:"admin_key"`
}

// FaceConfig holds detector and matching settings.
type FaceConfig struct {
	Backend        string        `yaml:"backend"` // "dlib" or "onnx"
	ModelPath      string        `yaml:"model_path"`
	MatchThreshold float64       `yaml:"match_threshold"`
	SampleCount    int           `yaml:"sample_count"`
	SampleInterval time.Duration `yaml:"sample_interval"`
	SampleTimeout  time.Duration `yaml:"sample_timeout"`
}

// LivenessConfig holds liveness detection settings.
type LivenessConfig struct {
	EARThreshold float64 `yaml:"ear_threshold"`
}

// QuotaConfig holds per-user daily attempt limits.
type QuotaConfig struct {
	Backend    string `yaml:"backend"` // "memory" or "redis"
	DailyLimit int    `yaml:"daily_limit"`
}

// StorageConfig holds template store settings.
type StorageConfig struct {
	Backend           string `yaml:"backend"` // "file" or "postgres"
	DataDir           string `yaml:"data_dir"`
	EncryptionEnabled bool   `yaml:"encryption_enabled"`
	RetentionPolicy   string `yaml:"retention_policy"` // "append" or "replace"

	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds connection settings for the pgvector backend.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

// DSN returns the postgres connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.Name)
}

// RedisConfig holds connection settings for the redis quota backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// WatcherConfig holds the continuous presence poll settings.
type WatcherConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Face: FaceConfig{
			Backend:        "dlib",
			ModelPath:      "/var/lib/facegate/models",
			MatchThreshold: 0.6,
			SampleCount:    5,
			SampleInterval: time.Second,
			SampleTimeout:  5 * time.Second,
		},
		Liveness: LivenessConfig{
			EARThreshold: 0.25,
		},
		Quota: QuotaConfig{
			Backend:    "memory",
			DailyLimit: 5,
		},
		Storage: StorageConfig{
			Backend:           "file",
			DataDir:           "/var/lib/facegate",
			EncryptionEnabled: true,
			RetentionPolicy:   "append",
			Postgres: PostgresConfig{
				Port:     5432,
				MaxConns: 10,
			},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Watcher: WatcherConfig{
			Enabled:  false,
			Interval: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the specified file on top of the
// defaults, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDefault tries the system config location and falls back to defaults.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat("/etc/facegate/facegate.yaml"); err == nil {
		return Load("/etc/facegate/facegate.yaml")
	}
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FACEGATE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FACEGATE_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FACEGATE_ADMIN_KEY"); v != "" {
		cfg.Server.AdminKey = v
	}
	if v := os.Getenv("FACEGATE_MODEL_PATH"); v != "" {
		cfg.Face.ModelPath = v
	}
	if v := os.Getenv("FACEGATE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("FACEGATE_DB_HOST"); v != "" {
		cfg.Storage.Postgres.Host = v
	}
	if v := os.Getenv("FACEGATE_DB_PASSWORD"); v != "" {
		cfg.Storage.Postgres.Password = v
	}
	if v := os.Getenv("FACEGATE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Face.Backend != "dlib" && c.Face.Backend != "onnx" {
		return fmt.Errorf("invalid face backend: %s (must be dlib or onnx)", c.Face.Backend)
	}
	if c.Face.MatchThreshold <= 0 || c.Face.MatchThreshold > 1 {
		return fmt.Errorf("match_threshold must be in (0,1], got %f", c.Face.MatchThreshold)
	}
	if c.Face.SampleCount <= 0 {
		return fmt.Errorf("sample_count must be positive, got %d", c.Face.SampleCount)
	}
	if c.Face.SampleTimeout <= 0 {
		return fmt.Errorf("sample_timeout must be positive, got %s", c.Face.SampleTimeout)
	}

	if c.Liveness.EARThreshold <= 0 || c.Liveness.EARThreshold >= 1 {
		return fmt.Errorf("ear_threshold must be in (0,1), got %f", c.Liveness.EARThreshold)
	}

	if c.Quota.Backend != "memory" && c.Quota.Backend != "redis" {
		return fmt.Errorf("invalid quota backend: %s (must be memory or redis)", c.Quota.Backend)
	}
	if c.Quota.DailyLimit <= 0 {
		return fmt.Errorf("daily_limit must be positive, got %d", c.Quota.DailyLimit)
	}

	if c.Storage.Backend != "file" && c.Storage.Backend != "postgres" {
		return fmt.Errorf("invalid storage backend: %s (must be file or postgres)", c.Storage.Backend)
	}
	if c.Storage.RetentionPolicy != "append" && c.Storage.RetentionPolicy != "replace" {
		return fmt.Errorf("invalid retention_policy: %s (must be append or replace)", c.Storage.RetentionPolicy)
	}

	if c.Watcher.Enabled && c.Watcher.Interval <= 0 {
		return fmt.Errorf("watcher interval must be positive, got %s", c.Watcher.Interval)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}
