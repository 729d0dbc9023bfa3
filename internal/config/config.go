// Package config loads the camxfer configuration: a TOML base file, an
// optional environment overlay, and environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/camxfer/internal/transfer"
	"github.com/JaimeStill/camxfer/internal/verify"
	"github.com/JaimeStill/camxfer/pkg/database"
	"github.com/JaimeStill/camxfer/pkg/source"
	"github.com/JaimeStill/camxfer/pkg/storage"
)

const (
	BaseConfigFile       = "camxfer.toml"
	OverlayConfigPattern = "camxfer.%s.toml"

	EnvCamxferEnv             = "CAMXFER_ENV"
	EnvCamxferLogLevel        = "CAMXFER_LOG_LEVEL"
	EnvCamxferShutdownTimeout = "CAMXFER_SHUTDOWN_TIMEOUT"
)

var databaseEnv = &database.Env{
	Enabled:     "CAMXFER_DB_ENABLED",
	Host:        "CAMXFER_DB_HOST",
	Port:        "CAMXFER_DB_PORT",
	Name:        "CAMXFER_DB_NAME",
	User:        "CAMXFER_DB_USER",
	Password:    "CAMXFER_DB_PASSWORD",
	SSLMode:     "CAMXFER_DB_SSL_MODE",
	MaxConns:    "CAMXFER_DB_MAX_CONNS",
	ConnTimeout: "CAMXFER_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ConnectionString: "CAMXFER_STORAGE_CONNECTION_STRING",
	AccountURL:       "CAMXFER_STORAGE_ACCOUNT_URL",
	AccountName:      "CAMXFER_STORAGE_ACCOUNT_NAME",
	AccountKey:       "CAMXFER_STORAGE_ACCOUNT_KEY",
	BucketPrefix:     "CAMXFER_STORAGE_BUCKET_PREFIX",
	MaxListSize:      "CAMXFER_STORAGE_MAX_LIST_SIZE",
}

var sourceEnv = &source.Env{
	Kind:       "CAMXFER_SOURCE_KIND",
	Root:       "CAMXFER_SOURCE_ROOT",
	Host:       "CAMXFER_SOURCE_HOST",
	Port:       "CAMXFER_SOURCE_PORT",
	User:       "CAMXFER_SOURCE_USER",
	Password:   "CAMXFER_SOURCE_PASSWORD",
	KeyFile:    "CAMXFER_SOURCE_KEY_FILE",
	KnownHosts: "CAMXFER_SOURCE_KNOWN_HOSTS",
	Timeout:    "CAMXFER_SOURCE_TIMEOUT",
}

var transferEnv = &transfer.Env{
	Matching:       "CAMXFER_TRANSFER_MATCHING",
	CorrectSpecies: "CAMXFER_TRANSFER_CORRECT_SPECIES",
	Archives:       "CAMXFER_TRANSFER_ARCHIVES",
	AuditLog:       "CAMXFER_TRANSFER_AUDIT_LOG",
	ScratchDir:     "CAMXFER_TRANSFER_SCRATCH_DIR",
	RulesFile:      "CAMXFER_TRANSFER_RULES_FILE",
}

var verifyEnv = &verify.Env{
	MinLongitude: "CAMXFER_VERIFY_MIN_LONGITUDE",
	MaxLongitude: "CAMXFER_VERIFY_MAX_LONGITUDE",
	MinLatitude:  "CAMXFER_VERIFY_MIN_LATITUDE",
	MaxLatitude:  "CAMXFER_VERIFY_MAX_LATITUDE",
	Tool:         "CAMXFER_VERIFY_TOOL",
}

// Config is the root configuration for camxfer.
type Config struct {
	Storage         storage.Config  `toml:"storage"`
	Source          source.Config   `toml:"source"`
	Transfer        transfer.Config `toml:"transfer"`
	Verify          verify.Config   `toml:"verify"`
	Database        database.Config `toml:"database"`
	LogLevel        string          `toml:"log_level"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
}

// Env returns the CAMXFER_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvCamxferEnv); env != "" {
		return env
	}
	return "local"
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config at base (BaseConfigFile when empty) if present,
// applies the overlay for CAMXFER_ENV found beside it, and finalizes all
// values. Without any file, defaults and environment variables provide all
// configuration.
func Load(base string) (*Config, error) {
	explicit := base != ""
	if !explicit {
		base = BaseConfigFile
	}

	cfg := &Config{}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if explicit {
		return nil, fmt.Errorf("config %s: %w", base, err)
	}

	if path := overlayPath(filepath.Dir(base)); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	c.Storage.Merge(&overlay.Storage)
	c.Source.Merge(&overlay.Source)
	c.Transfer.Merge(&overlay.Transfer)
	c.Verify.Merge(&overlay.Verify)
	c.Database.Merge(&overlay.Database)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Source.Finalize(sourceEnv); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Transfer.Finalize(transferEnv); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if err := c.Verify.Finalize(verifyEnv); err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvCamxferLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvCamxferShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
}

func (c *Config) validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvCamxferEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ApplyCredentials sets the destination identity and credential pair given
// on the command line. Empty values leave the configuration unchanged.
func (c *Config) ApplyCredentials(user, password string) error {
	if user != "" {
		c.Storage.AccountName = user
	}
	if password != "" {
		c.Storage.AccountKey = password
	}
	if c.Storage.AccountKey != "" && c.Storage.AccountName == "" {
		return fmt.Errorf("storage: user required with password")
	}
	return nil
}
