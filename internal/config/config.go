package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Report    ReportConfig    `mapstructure:"report"`

	// PricingOverrides maps service id to a per-1k USD price that
	// replaces the catalog's primary-tier cost at load time.
	PricingOverrides map[string]float64 `mapstructure:"pricing_overrides"`
}

type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	ExporterType string  `mapstructure:"exporter_type"`
	Endpoint     string  `mapstructure:"endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type ValidatorConfig struct {
	EnableCaching  bool          `mapstructure:"enable_caching"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`

	// ServiceAccountKey is the path to a Google Cloud service account
	// key. When set, key restriction metadata is fetched out-of-band
	// instead of inferred.
	ServiceAccountKey string `mapstructure:"google_service_account_key"`
}

type RiskConfig struct {
	// CostThreshold is the per-1k USD total above which a valid key is
	// flagged even when its restriction status is unknown.
	CostThreshold        float64 `mapstructure:"cost_threshold"`
	CreateFindings       bool    `mapstructure:"create_findings"`
	SeverityUnrestricted string  `mapstructure:"severity_unrestricted"`
	SeverityExpensive    string  `mapstructure:"severity_expensive"`
}

type MonitorConfig struct {
	// MonitoredTools names the traffic-source tools whose exchanges are
	// inspected for keys.
	MonitoredTools []string `mapstructure:"monitored_tools"`
	ExcludedHosts  []string `mapstructure:"excluded_hosts"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	BurstSize         int           `mapstructure:"burst_size"`
	MinDelay          time.Duration `mapstructure:"min_delay"`
}

type ReportConfig struct {
	// Format selects finding rendering: "table" or "json".
	Format string `mapstructure:"format"`
}

// Validate sanity-checks settings that would make the engine misbehave.
func (c *Config) Validate() error {
	if c.Validator.MaxRetries < 1 {
		return fmt.Errorf("validator.max_retries must be >= 1, got %d", c.Validator.MaxRetries)
	}
	if c.Validator.RequestTimeout <= 0 {
		return fmt.Errorf("validator.request_timeout must be positive, got %s", c.Validator.RequestTimeout)
	}
	if c.Risk.CostThreshold < 0 {
		return fmt.Errorf("risk.cost_threshold must not be negative, got %f", c.Risk.CostThreshold)
	}
	if c.Report.Format != "table" && c.Report.Format != "json" {
		return fmt.Errorf("report.format must be \"table\" or \"json\", got %q", c.Report.Format)
	}
	return nil
}

// DefaultConfig returns the built-in defaults. Missing or broken
// configuration degrades to these instead of aborting startup.
func DefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ServiceName:  "gmapper",
			ExporterType: "otlp",
			Endpoint:     "localhost:4318",
			SampleRate:   1.0,
		},
		Database: DatabaseConfig{
			Enabled:         false,
			Driver:          "postgres",
			MaxConnections:  10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Validator: ValidatorConfig{
			EnableCaching:  true,
			CacheTTL:       time.Hour,
			RequestTimeout: 5 * time.Second,
			MaxRetries:     3,
		},
		Risk: RiskConfig{
			CostThreshold:        5.0,
			CreateFindings:       true,
			SeverityUnrestricted: "high",
			SeverityExpensive:    "medium",
		},
		Monitor: MonitorConfig{
			MonitoredTools: []string{"proxy"},
			ExcludedHosts:  []string{},
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10.0,
			BurstSize:         10,
			MinDelay:          50 * time.Millisecond,
		},
		Report: ReportConfig{
			Format: "table",
		},
	}
}

// Load reads configuration from an optional file plus GMAPPER_* env vars.
// Any load or unmarshal failure falls back to defaults; config problems
// never stop a scan.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GMAPPER")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gmapper")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gmapper")
	}

	cfg := DefaultConfig()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound || path == "" {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero values the file left unset so a partial
// config does not zero out operational settings.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = def.Logger.Level
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = def.Logger.Format
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = def.Telemetry.ServiceName
	}
	if cfg.Telemetry.ExporterType == "" {
		cfg.Telemetry.ExporterType = def.Telemetry.ExporterType
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = def.Telemetry.SampleRate
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = def.Database.Driver
	}
	if cfg.Database.MaxConnections == 0 {
		cfg.Database.MaxConnections = def.Database.MaxConnections
	}
	if cfg.Validator.CacheTTL == 0 {
		cfg.Validator.CacheTTL = def.Validator.CacheTTL
	}
	if cfg.Validator.RequestTimeout == 0 {
		cfg.Validator.RequestTimeout = def.Validator.RequestTimeout
	}
	if cfg.Validator.MaxRetries == 0 {
		cfg.Validator.MaxRetries = def.Validator.MaxRetries
	}
	if cfg.Risk.SeverityUnrestricted == "" {
		cfg.Risk.SeverityUnrestricted = def.Risk.SeverityUnrestricted
	}
	if cfg.Risk.SeverityExpensive == "" {
		cfg.Risk.SeverityExpensive = def.Risk.SeverityExpensive
	}
	if len(cfg.Monitor.MonitoredTools) == 0 {
		cfg.Monitor.MonitoredTools = def.Monitor.MonitoredTools
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = def.RateLimit.RequestsPerSecond
	}
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = def.RateLimit.BurstSize
	}
	if cfg.RateLimit.MinDelay == 0 {
		cfg.RateLimit.MinDelay = def.RateLimit.MinDelay
	}
	if cfg.Report.Format == "" {
		cfg.Report.Format = def.Report.Format
	}
}
