// Package config loads tasksync settings from a TOML file and TASKSYNC_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverGorm   = "gorm"
)

// Config holds the application configuration.
type Config struct {
	OwnerID     string            `toml:"owner_id"`
	Database    DatabaseConfig    `toml:"database"`
	Attachments AttachmentsConfig `toml:"attachments"`
	Engine      EngineConfig      `toml:"engine"`
	Sync        SyncConfig        `toml:"sync"`
	Telegram    TelegramConfig    `toml:"telegram"`
	Log         LogConfig         `toml:"log"`
}

type DatabaseConfig struct {
	Path   string `toml:"path"`
	Driver string `toml:"driver"`
}

type AttachmentsConfig struct {
	Dir string `toml:"dir"`
}

// EngineConfig tunes the optimistic mutation engine.
type EngineConfig struct {
	SettleWindow time.Duration `toml:"settle_window"`
	MaxHold      time.Duration `toml:"max_hold"`
	StoreTimeout time.Duration `toml:"store_timeout"`
}

// SyncConfig drives the long-running sync loop.
type SyncConfig struct {
	RefreshInterval  time.Duration `toml:"refresh_interval"`
	ReminderInterval time.Duration `toml:"reminder_interval"`
}

type TelegramConfig struct {
	Token  string `toml:"token"`
	ChatID int64  `toml:"chat_id"`
}

type LogConfig struct {
	Level    string `toml:"level"`
	UseCases bool   `toml:"use_cases"`
}

// Default returns the default configuration.
func Default() *Config {
	dir := defaultDir()
	return &Config{
		OwnerID: "local",
		Database: DatabaseConfig{
			Path:   filepath.Join(dir, "tasksync.db"),
			Driver: DriverSQLite,
		},
		Attachments: AttachmentsConfig{Dir: filepath.Join(dir, "attachments")},
		Engine: EngineConfig{
			SettleWindow: 2 * time.Second,
			MaxHold:      30 * time.Second,
			StoreTimeout: 15 * time.Second,
		},
		Sync: SyncConfig{
			RefreshInterval:  30 * time.Second,
			ReminderInterval: time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

func defaultDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".tasksync"
	}
	return filepath.Join(homeDir, ".tasksync")
}

// DefaultPath is where Load looks for the config file.
func DefaultPath() string {
	if v := os.Getenv("TASKSYNC_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(defaultDir(), "config.toml")
}

// Load reads the config from DefaultPath.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads configuration from path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Attachments.Dir = expandPath(cfg.Attachments.Dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return errors.New("owner_id is required")
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverGorm:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Engine.SettleWindow < 0 || c.Engine.MaxHold <= 0 || c.Engine.StoreTimeout <= 0 {
		return errors.New("engine durations must be positive")
	}
	if c.Sync.RefreshInterval <= 0 || c.Sync.ReminderInterval <= 0 {
		return errors.New("sync intervals must be positive")
	}
	return nil
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TASKSYNC_OWNER_ID"); v != "" {
		cfg.OwnerID = v
	}
	if v := os.Getenv("TASKSYNC_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("TASKSYNC_DB_DRIVER"); v != "" {
		cfg.Database.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("TASKSYNC_ATTACHMENTS_DIR"); v != "" {
		cfg.Attachments.Dir = v
	}
	errs := []error{
		applyDurationEnv(&cfg.Engine.SettleWindow, "TASKSYNC_SETTLE_WINDOW"),
		applyDurationEnv(&cfg.Engine.MaxHold, "TASKSYNC_MAX_HOLD"),
		applyDurationEnv(&cfg.Engine.StoreTimeout, "TASKSYNC_STORE_TIMEOUT"),
		applyDurationEnv(&cfg.Sync.RefreshInterval, "TASKSYNC_REFRESH_INTERVAL"),
		applyDurationEnv(&cfg.Sync.ReminderInterval, "TASKSYNC_REMINDER_INTERVAL"),
	}
	if v := os.Getenv("TASKSYNC_TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = strings.TrimSpace(v)
	}
	if v := os.Getenv("TASKSYNC_TELEGRAM_CHAT_ID"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKSYNC_TELEGRAM_CHAT_ID: %q is not an integer", v))
		} else {
			cfg.Telegram.ChatID = n
		}
	}
	if v := os.Getenv("TASKSYNC_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TASKSYNC_LOG_USE_CASES"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("TASKSYNC_LOG_USE_CASES: %q is not a boolean", v))
		} else {
			cfg.Log.UseCases = b
		}
	}
	return errors.Join(errs...)
}

func applyDurationEnv(dst *time.Duration, envName string) error {
	v := os.Getenv(envName)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d < 0 {
		return fmt.Errorf("%s: %q is not a non-negative duration", envName, v)
	}
	*dst = d
	return nil
}

// expandPath expands ~ to the home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
