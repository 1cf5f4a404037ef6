package report

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/config"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

func sampleFinding() types.Finding {
	return types.Finding{
		ID:                "f-1",
		Tool:              "gmapper",
		Type:              "exposed-api-key",
		Severity:          types.SeverityMedium,
		Title:             "Potentially Expensive Google Maps API Key",
		KeyTruncated:      "AIzaSyExampleExample...",
		SourceURL:         "https://app.example.com/bundle.js",
		RestrictionStatus: types.RestrictionUndetermined,
		Costs: types.CostAnalysis{
			Lines: []types.CostLine{
				{ID: "geocoding", Name: "Geocoding API", Status: "Enabled", CostPer1K: decimal.NewFromFloat(5.00)},
				{ID: "places", Name: "Places API", Status: "Disabled", CostPer1K: decimal.Zero},
			},
			Total: decimal.NewFromFloat(5.00),
		},
		AbuseScenarios: []types.AbuseScenario{
			{
				Name:            "Low Volume Abuse",
				Description:     "1 million requests per month",
				MonthlyRequests: 1_000_000,
				TotalMonthly:    decimal.NewFromFloat(4800),
				TotalAnnual:     decimal.NewFromFloat(57600),
			},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestTableRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewTableRenderer(&buf)

	require.NoError(t, r.Emit(context.Background(), sampleFinding()))

	out := buf.String()
	assert.Contains(t, out, "Potentially Expensive Google Maps API Key")
	assert.Contains(t, out, "AIzaSyExampleExample...")
	assert.Contains(t, out, "Geocoding API")
	assert.Contains(t, out, "$5.00")
	assert.Contains(t, out, "TOTAL POTENTIAL COST")
	assert.Contains(t, out, "Low Volume Abuse")
	assert.Contains(t, out, "$57600.00")
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONRenderer(&buf)

	require.NoError(t, r.Emit(context.Background(), sampleFinding()))

	var decoded types.Finding
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "f-1", decoded.ID)
	assert.Equal(t, types.SeverityMedium, decoded.Severity)
	assert.True(t, decoded.Costs.Total.Equal(decimal.NewFromFloat(5.00)))
}

func TestNewRendererSelectsByFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.IsType(t, &JSONRenderer{}, NewRenderer(config.ReportConfig{Format: "json"}, &buf))
	assert.IsType(t, &TableRenderer{}, NewRenderer(config.ReportConfig{Format: "table"}, &buf))
	assert.IsType(t, &TableRenderer{}, NewRenderer(config.ReportConfig{}, &buf))
}
