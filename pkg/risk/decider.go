// Package risk turns validation and cost output into a flag/no-flag
// decision and builds the finding record handed to sinks.
package risk

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/logger"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

const (
	TitleUnrestricted = "Unrestricted Google Maps API Key"
	TitleExpensive    = "Potentially Expensive Google Maps API Key"

	findingType = "exposed-api-key"
	findingTool = "gmapper"
)

// Config holds the tunable decision inputs.
type Config struct {
	// CostThreshold is the per-1k USD total above which a key is flagged
	// even without restriction evidence.
	CostThreshold decimal.Decimal

	SeverityUnrestricted types.Severity
	SeverityExpensive    types.Severity
}

// DefaultConfig returns the built-in decision settings.
func DefaultConfig() Config {
	return Config{
		CostThreshold:        decimal.NewFromFloat(5.0),
		SeverityUnrestricted: types.SeverityHigh,
		SeverityExpensive:    types.SeverityMedium,
	}
}

// Decider owns the flagging rules and the process-lifetime seen-set.
// The seen-set only grows: the same exact credential string is evaluated
// once per session, no matter how often it reappears in traffic.
type Decider struct {
	cfg    Config
	logger *logger.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDecider creates a Decider with an empty seen-set.
func NewDecider(cfg Config, log *logger.Logger) *Decider {
	if cfg.SeverityUnrestricted == "" {
		cfg.SeverityUnrestricted = types.SeverityHigh
	}
	if cfg.SeverityExpensive == "" {
		cfg.SeverityExpensive = types.SeverityMedium
	}
	return &Decider{
		cfg:    cfg,
		logger: log.WithComponent("risk"),
		seen:   make(map[string]struct{}),
	}
}

// FirstSight marks the credential as seen and reports whether this is its
// first appearance. Check and mark are one atomic step so concurrent
// observers cannot both claim the first sighting.
func (d *Decider) FirstSight(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// SeenCount reports how many distinct credentials this session has
// processed.
func (d *Decider) SeenCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Assessment is the outcome of evaluating one validated key.
type Assessment struct {
	Flag     bool
	Severity types.Severity
	Title    string
}

// Evaluate decides whether a validated key warrants a finding. A
// confirmed-unrestricted key is always flagged regardless of cost; an
// expensive key is flagged regardless of restriction status once its
// cost total exceeds the threshold.
func (d *Decider) Evaluate(validation types.ValidationResult, analysis types.CostAnalysis) Assessment {
	if validation.RestrictionStatus.IsUnrestricted() {
		return Assessment{
			Flag:     true,
			Severity: d.cfg.SeverityUnrestricted,
			Title:    TitleUnrestricted,
		}
	}

	if analysis.Total.GreaterThan(d.cfg.CostThreshold) {
		return Assessment{
			Flag:     true,
			Severity: d.cfg.SeverityExpensive,
			Title:    TitleExpensive,
		}
	}

	return Assessment{}
}

// BuildFinding assembles the structured record for sinks. The credential
// is display-truncated; the full key is not part of the finding.
func (d *Decider) BuildFinding(validation types.ValidationResult, analysis types.CostAnalysis, scenarios []types.AbuseScenario, assessment Assessment, sourceURL string) types.Finding {
	enabled := 0
	for _, svc := range validation.Services {
		if svc.Enabled {
			enabled++
		}
	}

	return types.Finding{
		ID:                uuid.New().String(),
		Tool:              findingTool,
		Type:              findingType,
		Severity:          assessment.Severity,
		Title:             assessment.Title,
		KeyTruncated:      types.TruncateKey(validation.Key),
		SourceURL:         sourceURL,
		RestrictionStatus: validation.RestrictionStatus,
		Costs:             analysis,
		AbuseScenarios:    scenarios,
		Metadata: map[string]interface{}{
			"enabled_services": enabled,
			"total_services":   len(validation.Services),
			"cost_per_1k":      analysis.Total.StringFixed(2),
		},
		CreatedAt: time.Now().UTC(),
	}
}
