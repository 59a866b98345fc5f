// Package config loads the tool configuration from YAML. Every field has
// a default, so running without a config file is the common case.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML carries human-readable values
// like "1s" or "250ms"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the scan and attach configuration. Immutable after load.
type Config struct {
	// ProcessName is the executable name the attacher looks for
	ProcessName string `yaml:"process_name"`

	// FastScan restricts scanning to regions at or above FastScanStart
	FastScan bool `yaml:"fast_scan"`

	// FastScanStart is the empirical lowest address the table has been
	// observed at; regions below it are skipped by a fast pass
	FastScanStart uint64 `yaml:"fast_scan_start"`

	// AttachRetry is the delay between attach attempts while the process
	// does not exist yet
	AttachRetry Duration `yaml:"attach_retry"`

	// ScanDelay is the settle time between attaching and the first scan;
	// the game is still populating its heap right after launch
	ScanDelay Duration `yaml:"scan_delay"`

	// ChunkSize bounds a single region read during scanning
	ChunkSize uint `yaml:"chunk_size"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		ProcessName:   "castle.exe",
		FastScan:      true,
		FastScanStart: 0x07000000,
		AttachRetry:   Duration(time.Second),
		ScanDelay:     Duration(3 * time.Second),
		ChunkSize:     1 << 20,
	}
}

// Load reads a YAML config file. Fields absent from the file keep their
// defaults, so a one-line file overriding process_name is valid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if c.ProcessName == "" {
		return fmt.Errorf("process_name is required")
	}
	if c.AttachRetry <= 0 {
		return fmt.Errorf("attach_retry must be positive, got %s", c.AttachRetry.Std())
	}
	if c.ScanDelay < 0 {
		return fmt.Errorf("scan_delay must not be negative, got %s", c.ScanDelay.Std())
	}
	if c.ChunkSize == 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	return nil
}
