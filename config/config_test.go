package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "crashmem.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `process_name: castle.exe
fast_scan: true
fast_scan_start: 0x07000000
attach_retry: 1s
scan_delay: 3s
chunk_size: 1048576
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "castle.exe", cfg.ProcessName)
	assert.True(t, cfg.FastScan)
	assert.Equal(t, uint64(0x07000000), cfg.FastScanStart)
	assert.Equal(t, time.Second, cfg.AttachRetry.Std())
	assert.Equal(t, 3*time.Second, cfg.ScanDelay.Std())
	assert.Equal(t, uint(1<<20), cfg.ChunkSize)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `process_name: other.exe
fast_scan: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other.exe", cfg.ProcessName)
	assert.False(t, cfg.FastScan)

	// Everything else stays at the defaults
	def := Default()
	assert.Equal(t, def.FastScanStart, cfg.FastScanStart)
	assert.Equal(t, def.AttachRetry, cfg.AttachRetry)
	assert.Equal(t, def.ScanDelay, cfg.ScanDelay)
	assert.Equal(t, def.ChunkSize, cfg.ChunkSize)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/crashmem.yml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "process_name: [unterminated\n")

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, "attach_retry: soon\n")

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty process name", func(c *Config) { c.ProcessName = "" }, "process_name"},
		{"zero attach retry", func(c *Config) { c.AttachRetry = 0 }, "attach_retry"},
		{"negative attach retry", func(c *Config) { c.AttachRetry = Duration(-time.Second) }, "attach_retry"},
		{"negative scan delay", func(c *Config) { c.ScanDelay = Duration(-time.Second) }, "scan_delay"},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, "chunk_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
