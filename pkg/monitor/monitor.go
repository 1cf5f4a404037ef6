// Package monitor wires the validation pipeline to a passive traffic
// source: it extracts candidate keys from observed response bodies,
// filters exchanges by tool and host, and drives each new key through
// validation, cost projection and the risk decision.
package monitor

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/config"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/logger"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/costs"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/risk"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/validator"
)

// keyPattern matches Google API keys: AIza followed by 35 characters.
// This single pattern covers all Google API key formats.
var keyPattern = regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`)

// ExtractKeys pulls candidate API keys out of response content,
// deduplicated and in deterministic order.
func ExtractKeys(content string) []string {
	matches := keyPattern.FindAllString(content, -1)
	if len(matches) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		set[m] = struct{}{}
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Exchange is one observed HTTP exchange handed over by the traffic
// source. The monitor only needs the response bytes and enough context
// to filter and attribute.
type Exchange struct {
	Tool string
	URL  string
	Host string
	Body []byte
}

// Sink receives flagged findings. Implementations render or persist; the
// monitor itself does no formatting.
type Sink interface {
	Emit(ctx context.Context, finding types.Finding) error
}

// Monitor drives the key-processing pipeline.
type Monitor struct {
	cfg       config.MonitorConfig
	validator *validator.Validator
	model     *costs.Model
	decider   *risk.Decider
	sinks     []Sink
	telemetry telemetry.Telemetry
	logger    *logger.Logger

	createFindings bool
}

// New assembles a Monitor around already-constructed collaborators.
func New(cfg config.MonitorConfig, v *validator.Validator, model *costs.Model, decider *risk.Decider, tel telemetry.Telemetry, log *logger.Logger, createFindings bool, sinks ...Sink) *Monitor {
	return &Monitor{
		cfg:            cfg,
		validator:      v,
		model:          model,
		decider:        decider,
		sinks:          sinks,
		telemetry:      tel,
		logger:         log.WithComponent("monitor"),
		createFindings: createFindings,
	}
}

// ShouldInspect reports whether an exchange is worth scanning: its tool
// must be monitored and its host must not be excluded.
func (m *Monitor) ShouldInspect(ex Exchange) bool {
	if !m.toolMonitored(ex.Tool) {
		return false
	}
	return !m.hostExcluded(ex.Host)
}

func (m *Monitor) toolMonitored(tool string) bool {
	for _, t := range m.cfg.MonitoredTools {
		if t == tool {
			return true
		}
	}
	return false
}

// hostExcluded uses substring matching so "internal.example.com" in the
// exclusion list also covers its subdomains.
func (m *Monitor) hostExcluded(host string) bool {
	for _, excluded := range m.cfg.ExcludedHosts {
		if excluded != "" && strings.Contains(host, excluded) {
			return true
		}
	}
	return false
}

// ProcessExchange scans one exchange and processes every new key found.
// Returns the findings that were flagged and emitted. Failures inside
// the pipeline degrade per key; an exchange is never fatal.
func (m *Monitor) ProcessExchange(ctx context.Context, ex Exchange) []types.Finding {
	if !m.ShouldInspect(ex) {
		return nil
	}

	keys := ExtractKeys(string(ex.Body))
	if len(keys) == 0 {
		return nil
	}

	var findings []types.Finding
	for _, key := range keys {
		if finding, flagged := m.ProcessKey(ctx, key, ex.URL, ex.Tool); flagged {
			findings = append(findings, finding)
		}
	}
	return findings
}

// ProcessKey runs one credential through validate -> costs -> scenarios
// -> risk decision. The seen-set gate guarantees at most one flagged
// finding per exact credential string per session.
func (m *Monitor) ProcessKey(ctx context.Context, key, sourceURL, tool string) (types.Finding, bool) {
	if !m.decider.FirstSight(key) {
		return types.Finding{}, false
	}

	log := m.logger.WithKey(types.TruncateKey(key))
	log.Infow("Found API key", "source_url", sourceURL)
	m.telemetry.RecordKeyObserved(ctx, tool)

	validation := m.validator.Validate(ctx, key)
	if !validation.Valid {
		log.Infow("Key validation failed", "error", validation.Error)
		return types.Finding{}, false
	}

	analysis := m.model.CalculateCosts(validation.Services)
	scenarios := m.model.GenerateAbuseScenarios(validation.Services)

	assessment := m.decider.Evaluate(validation, analysis)
	if !assessment.Flag || !m.createFindings {
		log.Debugw("Key below flagging criteria",
			"restriction_status", string(validation.RestrictionStatus),
			"cost_per_1k", analysis.Total.StringFixed(2),
		)
		return types.Finding{}, false
	}

	finding := m.decider.BuildFinding(validation, analysis, scenarios, assessment, sourceURL)
	m.telemetry.RecordFinding(ctx, string(finding.Severity))

	for _, sink := range m.sinks {
		if err := sink.Emit(ctx, finding); err != nil {
			log.Errorw("Finding sink failed", "error", err.Error(), "finding_id", finding.ID)
		}
	}

	log.Infow("Created finding",
		"finding_id", finding.ID,
		"severity", string(finding.Severity),
		"title", finding.Title,
	)
	return finding, true
}
