package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api"`
	Loader   LoaderConfig   `toml:"loader"`
	Database DatabaseConfig `toml:"database"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Log      LogConfig      `toml:"log"`
}

// APIConfig describes the school-management backend.
type APIConfig struct {
	BaseURL      string        `toml:"base_url"`
	Token        string        `toml:"token"`
	PageSize     int           `toml:"page_size"`
	Timeout      time.Duration `toml:"timeout"`
	MaxRetries   int           `toml:"max_retries"`
	RetryBackoff time.Duration `toml:"retry_backoff"`
}

// LoaderConfig tunes the background drain and the scroll trigger.
type LoaderConfig struct {
	AutoDrain       bool          `toml:"auto_drain"`
	PagePause       time.Duration `toml:"page_pause"`
	ScrollDebounce  time.Duration `toml:"scroll_debounce"`
	ScrollThreshold int           `toml:"scroll_threshold"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SnapshotConfig names the session snapshots are scoped to.
type SnapshotConfig struct {
	Session string `toml:"session"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks the values that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("%w: api.page_size must be positive", ErrInvalidConfig)
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("%w: api.max_retries cannot be negative", ErrInvalidConfig)
	}
	if c.Loader.ScrollThreshold < 0 {
		return fmt.Errorf("%w: loader.scroll_threshold cannot be negative", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Snapshot.Session) == "" {
		return fmt.Errorf("%w: snapshot.session is required", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
