// Package config loads searchtools settings from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hnoss/searchtools/internal/filelock"
	"gopkg.in/yaml.v3"
)

// FlatDBConfig holds defaults for database builds and searches.
type FlatDBConfig struct {
	// MaxFiles caps the number of matches a build collects
	MaxFiles int `yaml:"max_files"`

	// PruneExcluded makes --exclude prune the walk instead of being ignored
	PruneExcluded bool `yaml:"prune_excluded"`

	// ProgressEvery is the number of scanned entries between progress events
	ProgressEvery int `yaml:"progress_every"`

	// CaseSensitive is the default search mode
	CaseSensitive bool `yaml:"case_sensitive"`
}

// LocateConfig holds the external updatedb/locate settings.
type LocateConfig struct {
	UpdatedbPath  string        `yaml:"updatedb_path"`
	LocatePath    string        `yaml:"locate_path"`
	BuildTimeout  time.Duration `yaml:"build_timeout"`
	LookupTimeout time.Duration `yaml:"lookup_timeout"`
}

// FreyjaConfig holds the external freyja settings.
type FreyjaConfig struct {
	Path    string        `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
	// Cutoff is the default abundance below which lineages are dropped
	Cutoff float64 `yaml:"cutoff"`
}

// Config represents searchtools configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Progress enables progress lines on stderr
	Progress bool `yaml:"progress"`

	// ExtensionMaxIdle stops extension discovery after this many files
	// without a new extension
	ExtensionMaxIdle int `yaml:"extension_max_idle"`

	FlatDB FlatDBConfig `yaml:"flatdb"`
	Locate LocateConfig `yaml:"locate"`
	Freyja FreyjaConfig `yaml:"freyja"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		Progress:         true,
		ExtensionMaxIdle: 100000,
		FlatDB: FlatDBConfig{
			MaxFiles:      100000000,
			PruneExcluded: false,
			ProgressEvery: 1000,
			CaseSensitive: false,
		},
		Locate: LocateConfig{
			UpdatedbPath:  "updatedb",
			LocatePath:    "locate",
			BuildTimeout:  10 * time.Minute,
			LookupTimeout: 30 * time.Second,
		},
		Freyja: FreyjaConfig{
			Path:    "freyja",
			Timeout: 2 * time.Hour,
			Cutoff:  0.05,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/searchtools/config.yaml, falling back
// to the user config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return filepath.Join(".searchtools", "config.yaml")
		}
	}
	return filepath.Join(dir, "searchtools", "config.yaml")
}

// yamlConfig mirrors Config with durations as strings so "30s" parses.
type yamlConfig struct {
	LogLevel         string       `yaml:"log_level"`
	Progress         *bool        `yaml:"progress"`
	ExtensionMaxIdle int          `yaml:"extension_max_idle"`
	FlatDB           FlatDBConfig `yaml:"flatdb"`
	Locate           struct {
		UpdatedbPath  string `yaml:"updatedb_path"`
		LocatePath    string `yaml:"locate_path"`
		BuildTimeout  string `yaml:"build_timeout"`
		LookupTimeout string `yaml:"lookup_timeout"`
	} `yaml:"locate"`
	Freyja struct {
		Path    string  `yaml:"path"`
		Timeout string  `yaml:"timeout"`
		Cutoff  float64 `yaml:"cutoff"`
	} `yaml:"freyja"`
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.Progress != nil {
		cfg.Progress = *yc.Progress
	}
	if yc.ExtensionMaxIdle != 0 {
		cfg.ExtensionMaxIdle = yc.ExtensionMaxIdle
	}
	if yc.FlatDB.MaxFiles != 0 {
		cfg.FlatDB.MaxFiles = yc.FlatDB.MaxFiles
	}
	if yc.FlatDB.ProgressEvery != 0 {
		cfg.FlatDB.ProgressEvery = yc.FlatDB.ProgressEvery
	}
	if yc.FlatDB.PruneExcluded {
		cfg.FlatDB.PruneExcluded = true
	}
	if yc.FlatDB.CaseSensitive {
		cfg.FlatDB.CaseSensitive = true
	}
	if yc.Locate.UpdatedbPath != "" {
		cfg.Locate.UpdatedbPath = yc.Locate.UpdatedbPath
	}
	if yc.Locate.LocatePath != "" {
		cfg.Locate.LocatePath = yc.Locate.LocatePath
	}
	if err := parseDuration("locate.build_timeout", yc.Locate.BuildTimeout, &cfg.Locate.BuildTimeout); err != nil {
		return nil, err
	}
	if err := parseDuration("locate.lookup_timeout", yc.Locate.LookupTimeout, &cfg.Locate.LookupTimeout); err != nil {
		return nil, err
	}
	if yc.Freyja.Path != "" {
		cfg.Freyja.Path = yc.Freyja.Path
	}
	if err := parseDuration("freyja.timeout", yc.Freyja.Timeout, &cfg.Freyja.Timeout); err != nil {
		return nil, err
	}
	if yc.Freyja.Cutoff != 0 {
		cfg.Freyja.Cutoff = yc.Freyja.Cutoff
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(field, raw string, dst *time.Duration) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s format %q: %w", field, raw, err)
	}
	*dst = d
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.FlatDB.MaxFiles < 0 {
		return fmt.Errorf("flatdb.max_files must be >= 0, got %d", c.FlatDB.MaxFiles)
	}
	if c.FlatDB.ProgressEvery < 0 {
		return fmt.Errorf("flatdb.progress_every must be >= 0, got %d", c.FlatDB.ProgressEvery)
	}
	if c.ExtensionMaxIdle < 0 {
		return fmt.Errorf("extension_max_idle must be >= 0, got %d", c.ExtensionMaxIdle)
	}
	if c.Locate.BuildTimeout < 0 || c.Locate.LookupTimeout < 0 || c.Freyja.Timeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.Freyja.Cutoff < 0 || c.Freyja.Cutoff > 1 {
		return fmt.Errorf("freyja.cutoff must be within [0,1], got %v", c.Freyja.Cutoff)
	}
	return nil
}

// Save writes cfg to path as YAML, atomically.
func Save(path string, cfg *Config) error {
	out := map[string]any{
		"log_level":          cfg.LogLevel,
		"progress":           cfg.Progress,
		"extension_max_idle": cfg.ExtensionMaxIdle,
		"flatdb":             cfg.FlatDB,
		"locate": map[string]any{
			"updatedb_path":  cfg.Locate.UpdatedbPath,
			"locate_path":    cfg.Locate.LocatePath,
			"build_timeout":  cfg.Locate.BuildTimeout.String(),
			"lookup_timeout": cfg.Locate.LookupTimeout.String(),
		},
		"freyja": map[string]any{
			"path":    cfg.Freyja.Path,
			"timeout": cfg.Freyja.Timeout.String(),
			"cutoff":  cfg.Freyja.Cutoff,
		},
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return filelock.AtomicWrite(path, data)
}
