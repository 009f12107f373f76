// Package config handles loading mapmend.toml configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied when a config file omits the value.
const (
	// DefaultLockTTL bounds how long an abandoned edit lock survives.
	DefaultLockTTL = time.Hour

	// DefaultStaleClaim bounds how long an untouched review claim
	// survives before the maintenance sweep reclaims it.
	DefaultStaleClaim = 24 * time.Hour

	// DefaultDriver is the database driver used when none is configured.
	DefaultDriver = "sqlite"

	// DefaultDSN is the database location used when none is configured.
	DefaultDSN = "mapmend.db"
)

// Config represents the mapmend.toml configuration file.
type Config struct {
	Database Database `toml:"database"`
	Lock     Lock     `toml:"lock"`
	Review   Review   `toml:"review"`
}

// Database configures the relational store connection.
type Database struct {
	// Driver selects the database dialect ("postgres" or "sqlite").
	Driver string `toml:"driver"`

	// DSN is the connection string (postgres) or file path (sqlite).
	DSN string `toml:"dsn"`
}

// Lock configures the edit-lock protocol.
type Lock struct {
	// TTL is how long an edit lock survives without being refreshed,
	// e.g. "1h" or "30m".
	TTL Duration `toml:"ttl"`
}

// Review configures the review workflow.
type Review struct {
	// StaleClaim is how long a claimed-but-unfinished review survives
	// before the sweep resets it to unclaimed.
	StaleClaim Duration `toml:"stale-claim"`
}

// Duration wraps time.Duration for TOML decoding of strings like "45m".
type Duration struct {
	value time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	trimmed := strings.TrimSpace(string(text))
	if trimmed == "" {
		d.value = 0
		return nil
	}
	parsed, err := time.ParseDuration(trimmed)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", trimmed, err)
	}
	d.value = parsed
	return nil
}

// Or returns the configured duration, or fallback when unset.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if d.value <= 0 {
		return fallback
	}
	return d.value
}

// Load loads configuration from dir and the global config file.
// Returns defaults if no config files exist.
func Load(dir string) (*Config, error) {
	globalPath, err := globalConfigPath()
	if err != nil {
		return nil, err
	}

	globalCfg, globalMeta, err := loadConfigFile(globalPath)
	if err != nil {
		return nil, err
	}

	projectCfg, projectMeta, err := loadConfigFile(filepath.Join(dir, "mapmend.toml"))
	if err != nil {
		return nil, err
	}

	return mergeConfigs(globalCfg, projectCfg, globalMeta, projectMeta), nil
}

// DriverName returns the configured database driver or the default.
func (c *Config) DriverName() string {
	if strings.TrimSpace(c.Database.Driver) == "" {
		return DefaultDriver
	}
	return strings.TrimSpace(c.Database.Driver)
}

// DSNValue returns the configured DSN or the default.
func (c *Config) DSNValue() string {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return DefaultDSN
	}
	return strings.TrimSpace(c.Database.DSN)
}

func globalConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "mapmend", "config.toml"), nil
}

func loadConfigFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return &cfg, meta, nil
}

func mergeConfigs(globalCfg, projectCfg *Config, globalMeta, projectMeta toml.MetaData) *Config {
	if globalCfg == nil {
		globalCfg = &Config{}
	}
	if projectCfg == nil {
		projectCfg = &Config{}
	}

	merged := Config{}
	merged.Database.Driver = mergeString(projectMeta.IsDefined("database", "driver"), projectCfg.Database.Driver, globalCfg.Database.Driver)
	merged.Database.DSN = mergeString(projectMeta.IsDefined("database", "dsn"), projectCfg.Database.DSN, globalCfg.Database.DSN)
	merged.Lock.TTL = mergeDuration(projectMeta.IsDefined("lock", "ttl"), projectCfg.Lock.TTL, globalCfg.Lock.TTL)
	merged.Review.StaleClaim = mergeDuration(projectMeta.IsDefined("review", "stale-claim"), projectCfg.Review.StaleClaim, globalCfg.Review.StaleClaim)
	return &merged
}

func mergeString(projectDefined bool, projectValue, globalValue string) string {
	value := globalValue
	if projectDefined {
		value = projectValue
	}
	return strings.TrimSpace(value)
}

func mergeDuration(projectDefined bool, projectValue, globalValue Duration) Duration {
	if projectDefined {
		return projectValue
	}
	return globalValue
}
