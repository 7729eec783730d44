// Package config loads clsync configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all clsync configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Sync    SyncConfig    `yaml:"sync"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// BrowserConfig configures the Chrome connection.
type BrowserConfig struct {
	// DebuggerURL attaches to an already-running Chrome. When empty a new
	// instance is launched via ChromeBin.
	DebuggerURL         string `yaml:"debugger_url"`
	ChromeBin           string `yaml:"chrome_bin"`
	Headless            bool   `yaml:"headless"`
	ViewportWidth       int    `yaml:"viewport_width"`
	ViewportHeight      int    `yaml:"viewport_height"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
	ReadyTimeoutMs      int    `yaml:"ready_timeout_ms"`
}

// NavigationTimeout returns the navigation timeout.
func (c BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 60 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// ReadyTimeout bounds page-readiness waits before extraction gives up.
func (c BrowserConfig) ReadyTimeout() time.Duration {
	if c.ReadyTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ReadyTimeoutMs) * time.Millisecond
}

// SyncConfig configures the orchestrator.
type SyncConfig struct {
	BaseURL          string `yaml:"base_url"`
	MaxRetries       int    `yaml:"max_retries"`
	InitialBackoffMs int    `yaml:"initial_backoff_ms"`
	MaxBackoffMs     int    `yaml:"max_backoff_ms"`
	SettleDelayMs    int    `yaml:"settle_delay_ms"`
}

// SettleDelay is the short wait given to UI animation after navigation or
// modal activation before reading page state.
func (c SyncConfig) SettleDelay() time.Duration {
	if c.SettleDelayMs == 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// StorageConfig configures local persistence.
type StorageConfig struct {
	Root      string `yaml:"root"`
	StateDB   string `yaml:"state_db"`
	MaxSavers int    `yaml:"max_savers"` // concurrent disk writers
}

// LoggingConfig mirrors logging.Options.
type LoggingConfig struct {
	Debug      bool            `yaml:"debug"`
	Dir        string          `yaml:"dir"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns sensible defaults rooted under the user home.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	root := filepath.Join(home, ".clsync")
	return &Config{
		Browser: BrowserConfig{
			Headless:            false,
			ViewportWidth:       1920,
			ViewportHeight:      1080,
			NavigationTimeoutMs: 60000,
			ReadyTimeoutMs:      30000,
		},
		Sync: SyncConfig{
			BaseURL:          "https://claude.ai",
			MaxRetries:       3,
			InitialBackoffMs: 1000,
			MaxBackoffMs:     8000,
			SettleDelayMs:    1500,
		},
		Storage: StorageConfig{
			Root:      filepath.Join(root, "projects"),
			StateDB:   filepath.Join(root, "state.db"),
			MaxSavers: 4,
		},
		Logging: LoggingConfig{
			Dir:   filepath.Join(root, "logs"),
			Level: "info",
		},
	}
}

// Load reads the config file at path, falling back to defaults when it does
// not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides lets deployment environment trump the file values.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("CLSYNC_DEBUGGER_URL"); url != "" {
		c.Browser.DebuggerURL = url
	}
	if bin := os.Getenv("CLSYNC_CHROME_BIN"); bin != "" {
		c.Browser.ChromeBin = bin
	}
	if v := os.Getenv("CLSYNC_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if root := os.Getenv("CLSYNC_STORAGE_ROOT"); root != "" {
		c.Storage.Root = root
	}
	if db := os.Getenv("CLSYNC_STATE_DB"); db != "" {
		c.Storage.StateDB = db
	}
	if v := os.Getenv("CLSYNC_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.Debug = b
		}
	}
}
