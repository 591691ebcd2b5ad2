// Package config provides configuration management for mapsync. It handles
// loading, validating and saving the YAML configuration (FastDL sources and
// sync settings), supports the original plain-text sources file format, and
// applies environment overrides.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hl2dm-community/mapsync/pkg/errors"
	"github.com/hl2dm-community/mapsync/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// FastDL roots to enumerate, in priority order.
	Sources []*SourceConfig `yaml:"sources"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// SourceConfig represents a single FastDL root.
type SourceConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// Settings represents general application settings.
type Settings struct {
	// DownloadDir is the local target directory for map files.
	DownloadDir string `yaml:"download_dir,omitempty"`

	// Recursive controls whether listings and the local scan descend into
	// subdirectories.
	Recursive bool `yaml:"recursive"`
	// MaxDepth bounds listing recursion below each root.
	MaxDepth int `yaml:"max_depth"`

	// Keyword filters, case-insensitive substring match on file names.
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`

	// Worker pool sizes. Zero means the per-stage default.
	MaxWorkers      int `yaml:"max_workers"`
	ExtractWorkers  int `yaml:"extract_workers"`
	EnumConcurrency int `yaml:"enum_concurrency"`

	// Decompression behavior.
	Decompress       bool `yaml:"decompress"`
	DeleteCompressed bool `yaml:"delete_compressed"`

	// SkipSizeCheck disables the per-file size probe; byte totals become
	// unknown and gating falls back to item count alone.
	SkipSizeCheck bool `yaml:"skip_size_check"`

	// Network settings.
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	MaxRetries     int           `yaml:"max_retries"`

	// HookDir holds tengo hook scripts, one per phase.
	HookDir string `yaml:"hook_dir,omitempty"`

	// Output settings.
	LogLevel string `yaml:"log_level"`
}

// Default configuration values.
const (
	// DefaultHTTPTimeout bounds listing fetches and size probes.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultAttemptTimeout bounds a single download attempt; a stalled
	// attempt is retried with the next address family.
	DefaultAttemptTimeout = 10 * time.Minute

	// DefaultMaxRetries is the number of download attempts per item.
	DefaultMaxRetries = 3

	// DefaultEnumConcurrency bounds concurrent listing fetches.
	DefaultEnumConcurrency = 4

	// DefaultMaxDepth bounds listing recursion below a root.
	DefaultMaxDepth = 3
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Sources: []*SourceConfig{},
		Settings: Settings{
			Recursive:       false,
			MaxDepth:        DefaultMaxDepth,
			Decompress:      true,
			HTTPTimeout:     DefaultHTTPTimeout,
			AttemptTimeout:  DefaultAttemptTimeout,
			MaxRetries:      DefaultMaxRetries,
			EnumConcurrency: DefaultEnumConcurrency,
			MaxWorkers:      defaultWorkers(),
			ExtractWorkers:  defaultWorkers(),
			LogLevel:        "info",
		},
	}
}

func defaultWorkers() int {
	return max(1, runtime.NumCPU()/2)
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()
	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	if err := os.MkdirAll(filepath.Dir(path), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	if err := os.WriteFile(path, data, fsutil.FileModeDefault); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", path)
	}
	return nil
}

// applyDefaults fills zero values with defaults after unmarshalling.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = def.Settings.HTTPTimeout
	}
	if c.Settings.AttemptTimeout == 0 {
		c.Settings.AttemptTimeout = def.Settings.AttemptTimeout
	}
	if c.Settings.MaxRetries == 0 {
		c.Settings.MaxRetries = def.Settings.MaxRetries
	}
	if c.Settings.EnumConcurrency == 0 {
		c.Settings.EnumConcurrency = def.Settings.EnumConcurrency
	}
	if c.Settings.MaxDepth == 0 {
		c.Settings.MaxDepth = def.Settings.MaxDepth
	}
	if c.Settings.MaxWorkers == 0 {
		c.Settings.MaxWorkers = def.Settings.MaxWorkers
	}
	if c.Settings.ExtractWorkers == 0 {
		c.Settings.ExtractWorkers = def.Settings.ExtractWorkers
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = def.Settings.LogLevel
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Sources))
	for _, src := range c.Sources {
		if src.URL == "" {
			return errors.Wrapf(errors.ErrInvalidSourceURL, "source %q has no URL", src.Name)
		}
		if _, err := NormalizeRootURL(src.URL); err != nil {
			return err
		}
		if _, dup := seen[src.URL]; dup {
			return errors.Wrapf(errors.ErrConfigValidation, "duplicate source URL %s", src.URL)
		}
		seen[src.URL] = struct{}{}
	}
	if c.Settings.MaxWorkers < 0 || c.Settings.ExtractWorkers < 0 {
		return fmt.Errorf("worker counts cannot be negative")
	}
	if c.Settings.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1")
	}
	return nil
}

// EnabledSources returns the enabled sources in configuration order.
func (c *Config) EnabledSources() []*SourceConfig {
	out := make([]*SourceConfig, 0, len(c.Sources))
	for _, src := range c.Sources {
		if src.Enabled {
			out = append(out, src)
		}
	}
	return out
}

// GetDefaultConfigPath returns the platform config file location,
// e.g. ~/.config/mapsync/config.yaml on Linux.
func GetDefaultConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to determine user config dir")
	}
	return filepath.Join(base, "mapsync", "config.yaml"), nil
}
