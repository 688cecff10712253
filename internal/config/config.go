// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
	Audit    AuditConfig    `yaml:"audit"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	MaxBodySize     int64         `yaml:"max_body_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`
}

// SessionConfig configures verification of externally-issued session
// tokens.
type SessionConfig struct {
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	PublicKeyFile string `yaml:"public_key_file"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AuditConfig configures the audit event sink.
type AuditConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Type           string `yaml:"type"`
	FilePath       string `yaml:"file_path"`
	FileMaxSize    int    `yaml:"file_max_size"`
	FileMaxAge     int    `yaml:"file_max_age"`
	FileMaxBackups int    `yaml:"file_max_backups"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxBodySize:     1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			MigrateOnStart:  true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Audit: AuditConfig{
			Enabled:        true,
			Type:           "stdout",
			FileMaxSize:    100,
			FileMaxAge:     30,
			FileMaxBackups: 10,
		},
	}
}

// Load reads configuration from path, if non-empty, on top of the
// defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.Session.Issuer == "" {
		return fmt.Errorf("session issuer is required")
	}
	if c.Session.PublicKeyFile == "" {
		return fmt.Errorf("session public key file is required")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("AUTHCORE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("AUTHCORE_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("AUTHCORE_SESSION_ISSUER"); v != "" {
		cfg.Session.Issuer = v
	}
	if v := os.Getenv("AUTHCORE_SESSION_AUDIENCE"); v != "" {
		cfg.Session.Audience = v
	}
	if v := os.Getenv("AUTHCORE_SESSION_PUBLIC_KEY_FILE"); v != "" {
		cfg.Session.PublicKeyFile = v
	}
	if v := os.Getenv("AUTHCORE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("AUTHCORE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("AUTHCORE_AUDIT_TYPE"); v != "" {
		cfg.Audit.Type = v
	}
	if v := os.Getenv("AUTHCORE_AUDIT_FILE_PATH"); v != "" {
		cfg.Audit.FilePath = v
	}
}
