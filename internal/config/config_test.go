package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5.0, cfg.Risk.CostThreshold)
	assert.True(t, cfg.Validator.EnableCaching)
	assert.Equal(t, time.Hour, cfg.Validator.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.Validator.RequestTimeout)
	assert.Equal(t, 3, cfg.Validator.MaxRetries)
	assert.Equal(t, "high", cfg.Risk.SeverityUnrestricted)
	assert.Equal(t, "medium", cfg.Risk.SeverityExpensive)
	assert.Equal(t, []string{"proxy"}, cfg.Monitor.MonitoredTools)
	assert.Equal(t, "table", cfg.Report.Format)
	assert.True(t, cfg.Risk.CreateFindings)
	assert.False(t, cfg.Database.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero retries", func(c *Config) { c.Validator.MaxRetries = 0 }},
		{"zero timeout", func(c *Config) { c.Validator.RequestTimeout = 0 }},
		{"negative threshold", func(c *Config) { c.Risk.CostThreshold = -1 }},
		{"bad report format", func(c *Config) { c.Report.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Risk.CostThreshold, cfg.Risk.CostThreshold)
}

func TestLoadFileOverridesAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gmapper.yaml")
	content := []byte(`
risk:
  cost_threshold: 10.0
validator:
  cache_ttl: 30m
monitor:
  excluded_hosts:
    - internal.example.com
pricing_overrides:
  maps_javascript: 8.0
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.Risk.CostThreshold)
	assert.Equal(t, 30*time.Minute, cfg.Validator.CacheTTL)
	assert.Equal(t, []string{"internal.example.com"}, cfg.Monitor.ExcludedHosts)
	assert.Equal(t, 8.0, cfg.PricingOverrides["maps_javascript"])

	// Unset keys are filled from defaults, not left zero.
	assert.Equal(t, 3, cfg.Validator.MaxRetries)
	assert.Equal(t, "table", cfg.Report.Format)
	assert.Equal(t, []string{"proxy"}, cfg.Monitor.MonitoredTools)
}

func TestLoadBrokenFileDegradesToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gmapper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{{not yaml"), 0o600))

	cfg, err := Load(path)
	assert.Error(t, err)
	// The returned config is still usable.
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())
}
