package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTruncateKey(t *testing.T) {
	assert.Equal(t, "AIzaSyVeryLongKeyVal...", TruncateKey("AIzaSyVeryLongKeyValueABCDEF123456789012"))
	assert.Equal(t, "short", TruncateKey("short"))
	assert.Equal(t, "", TruncateKey(""))
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, SeverityHigh, ParseSeverity("High", SeverityInfo))
	assert.Equal(t, SeverityMedium, ParseSeverity("MEDIUM", SeverityInfo))
	assert.Equal(t, SeverityCritical, ParseSeverity("critical", SeverityInfo))
	assert.Equal(t, SeverityInfo, ParseSeverity("bogus", SeverityInfo))
	assert.Equal(t, SeverityMedium, ParseSeverity("", SeverityMedium))
}

func TestRestrictionStatusIsUnrestricted(t *testing.T) {
	assert.True(t, RestrictionUnrestricted.IsUnrestricted())
	assert.False(t, RestrictionUnknown.IsUnrestricted())
	assert.False(t, RestrictionUndetermined.IsUnrestricted())
	assert.False(t, RestrictionStatus("RESTRICTED (IP_ADDRESS)").IsUnrestricted())
}

func TestCostAnalysisTotalLine(t *testing.T) {
	analysis := CostAnalysis{
		Lines: []CostLine{{ID: "geocoding", CostPer1K: decimal.NewFromFloat(5.00)}},
		Total: decimal.NewFromFloat(5.00),
	}
	total := analysis.TotalLine()
	assert.Equal(t, "total", total.ID)
	assert.Equal(t, "TOTAL POTENTIAL COST", total.Name)
	assert.True(t, total.CostPer1K.Equal(decimal.NewFromFloat(5.00)))
}
