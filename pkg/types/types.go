package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// ParseSeverity normalizes a configured severity label, falling back to
// the given default when the label is unrecognized.
func ParseSeverity(s string, fallback Severity) Severity {
	switch Severity(normalize(s)) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	case SeverityLow:
		return SeverityLow
	case SeverityInfo:
		return SeverityInfo
	default:
		return fallback
	}
}

func normalize(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// RestrictionStatus classifies how narrowly an API key's usage is scoped.
// Without a privileged metadata source the status can only be determined
// from a single network vantage point, so the default is the explicit
// "cannot tell" sentinel rather than a guess.
type RestrictionStatus string

const (
	RestrictionUnknown      RestrictionStatus = "UNKNOWN"
	RestrictionUnrestricted RestrictionStatus = "UNRESTRICTED"

	// RestrictionUndetermined is reported when no metadata source is
	// configured: a single vantage point cannot distinguish referrer, IP
	// or app restrictions from an unrestricted key.
	RestrictionUndetermined RestrictionStatus = "UNKNOWN (test manually for restrictions)"
)

// IsUnrestricted reports whether the key was positively confirmed to carry
// no restrictions. The undetermined sentinel is never treated as
// unrestricted.
func (r RestrictionStatus) IsUnrestricted() bool {
	return r == RestrictionUnrestricted
}

// ProbeResult captures one HTTP probe attempt against a service endpoint.
// StatusCode is 0 when no response was received at all.
type ProbeResult struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// ServiceStatus records whether one catalog service accepted the key.
type ServiceStatus struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Enabled  bool   `json:"enabled"`
	Error    string `json:"error,omitempty"`
}

// ValidationResult is the outcome of validating one API key against the
// whole service catalog.
type ValidationResult struct {
	Key               string                 `json:"key"`
	Valid             bool                   `json:"valid"`
	Services          []ServiceStatus        `json:"services"`
	RestrictionStatus RestrictionStatus      `json:"restriction_status"`
	Restrictions      map[string]interface{} `json:"restrictions,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	Error             string                 `json:"error,omitempty"`
}

// CostLine is one row of a cost analysis: what abusing a single service
// would cost per 1,000 requests.
type CostLine struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Status          string          `json:"status"`
	CostPer1K       decimal.Decimal `json:"cost_per_1k"`
	MonthlyFreeTier int64           `json:"monthly_free_tier"`
	Details         string          `json:"details"`
}

// CostAnalysis is the per-service cost breakdown plus a total. Total is
// the sum of the enabled lines' unit prices per 1,000 requests, not a
// volume-weighted spend figure; it answers "what does one thousand calls
// across every enabled service cost".
type CostAnalysis struct {
	Lines []CostLine      `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// TotalLine renders the summary row appended under the per-service lines.
func (a CostAnalysis) TotalLine() CostLine {
	return CostLine{
		ID:        "total",
		Name:      "TOTAL POTENTIAL COST",
		CostPer1K: a.Total,
		Details:   "Combined cost if all services are used",
	}
}

// ServiceCost is a volume-based monthly projection for one service.
type ServiceCost struct {
	ServiceID   string          `json:"service"`
	Requests    int64           `json:"requests"`
	FreeTier    int64           `json:"free_tier"`
	Billable    int64           `json:"billable_requests"`
	CostPer1K   decimal.Decimal `json:"cost_per_1k"`
	MonthlyCost decimal.Decimal `json:"monthly_cost"`
	AnnualCost  decimal.Decimal `json:"annual_cost"`
	Error       string          `json:"error,omitempty"`
}

// AbuseScenario projects spend at a fixed hypothetical monthly volume
// across every service the key has enabled.
type AbuseScenario struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	MonthlyRequests int64           `json:"monthly_requests"`
	Services        []ScenarioCost  `json:"services"`
	TotalMonthly    decimal.Decimal `json:"total_monthly_cost"`
	TotalAnnual     decimal.Decimal `json:"total_annual_cost"`
}

type ScenarioCost struct {
	Name        string          `json:"name"`
	MonthlyCost decimal.Decimal `json:"monthly_cost"`
}

// Finding is the structured record handed to sinks when a key is flagged.
// The key is stored display-truncated; the full credential never leaves
// the validation path.
type Finding struct {
	ID                string                 `json:"id"`
	Tool              string                 `json:"tool"`
	Type              string                 `json:"type"`
	Severity          Severity               `json:"severity"`
	Title             string                 `json:"title"`
	KeyTruncated      string                 `json:"key_truncated"`
	SourceURL         string                 `json:"source_url,omitempty"`
	RestrictionStatus RestrictionStatus      `json:"restriction_status"`
	Costs             CostAnalysis           `json:"costs"`
	AbuseScenarios    []AbuseScenario        `json:"abuse_scenarios,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
}

/// TruncateKey returns the display form of a credential: the first 20
// characters followed by an ellipsis marker.
func TruncateKey(key string) string {
	if len(key) <= 20 {
		return key
	}
	return key[:20] + "..."
}
