package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/config"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/database"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/httpclient"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/logger"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/ratelimit"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/report"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/catalog"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/costs"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/monitor"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/probe"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/risk"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
	"github.com/shopspring/decimal"

	validatorpkg "github.com/CodeMonkeyCybersecurity/gmapper/pkg/validator"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg *config.Config
	log *logger.Logger
	tel telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "gmapper",
	Short: "Google Maps API key scanner",
	Long: `gmapper discovers Google Maps API keys in observed traffic, validates
them against the live API surface, and quantifies the financial risk of
abuse: enabled services, per-request pricing, and projected spend under
fixed abuse volumes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initRuntime(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if tel != nil {
			_ = tel.Shutdown(cmd.Context())
		}
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./gmapper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
}

// initRuntime loads configuration and builds the shared logger and
// telemetry. Config problems degrade to defaults; only a broken logger
// setup is fatal.
func initRuntime(ctx context.Context) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		// Defaults were substituted; report the problem and continue.
		fmt.Fprintf(os.Stderr, "[gmapper] config problem, using defaults: %v\n", err)
	}

	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logger.Format = logFormat
	}

	log, err = logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	tel, err = telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		log.Warnw("Telemetry disabled", "error", err.Error())
		tel, _ = telemetry.New(ctx, config.TelemetryConfig{Enabled: false})
	}

	return nil
}

// pipeline bundles the components a command needs to process keys.
type pipeline struct {
	catalog   *catalog.Catalog
	validator *validatorpkg.Validator
	model     *costs.Model
	decider   *risk.Decider
	monitor   *monitor.Monitor
	store     *database.Store
}

// buildPipeline wires catalog, prober, validator, cost model, risk
// decider and sinks from the loaded config.
func buildPipeline(ctx context.Context) (*pipeline, error) {
	cat := catalog.New().WithOverrides(cfg.PricingOverrides)

	client := httpclient.NewProbeClient(httpclient.ProbeClientConfig{
		ConnectTimeout: cfg.Validator.RequestTimeout,
		ReadTimeout:    cfg.Validator.RequestTimeout,
	})
	prober := probe.New(client, cfg.Validator.MaxRetries, log)

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		MinDelay:          cfg.RateLimit.MinDelay,
	})

	validator := validatorpkg.New(cat, prober, limiter, nil, tel, log, validatorpkg.Options{
		EnableCaching: cfg.Validator.EnableCaching,
		CacheTTL:      cfg.Validator.CacheTTL,
	})

	model := costs.NewModel(cat)

	decider := risk.NewDecider(risk.Config{
		CostThreshold:        decimal.NewFromFloat(cfg.Risk.CostThreshold),
		SeverityUnrestricted: types.ParseSeverity(cfg.Risk.SeverityUnrestricted, types.SeverityHigh),
		SeverityExpensive:    types.ParseSeverity(cfg.Risk.SeverityExpensive, types.SeverityMedium),
	}, log)

	sinks := []monitor.Sink{report.NewRenderer(cfg.Report, os.Stdout)}

	p := &pipeline{
		catalog:   cat,
		validator: validator,
		model:     model,
		decider:   decider,
	}

	if cfg.Database.Enabled {
		store, err := database.NewStore(cfg.Database, log)
		if err != nil {
			log.Warnw("Findings store unavailable, persisting disabled", "error", err.Error())
		} else {
			p.store = store
			sinks = append(sinks, store)
		}
	}

	p.monitor = monitor.New(cfg.Monitor, validator, model, decider, tel, log, cfg.Risk.CreateFindings, sinks...)
	return p, nil
}

func (p *pipeline) close() {
	if p.store != nil {
		_ = p.store.Close()
	}
}
