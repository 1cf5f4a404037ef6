package database

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

func TestToFindingsRoundTrip(t *testing.T) {
	costs := types.CostAnalysis{
		Lines: []types.CostLine{
			{ID: "geocoding", Name: "Geocoding API", Status: "Enabled", CostPer1K: decimal.NewFromFloat(5.00)},
		},
		Total: decimal.NewFromFloat(5.00),
	}
	scenarios := []types.AbuseScenario{
		{
			Name:            "Low Volume Abuse",
			Description:     "1 million requests per month",
			MonthlyRequests: 1_000_000,
			TotalMonthly:    decimal.NewFromFloat(4800),
			TotalAnnual:     decimal.NewFromFloat(57600),
		},
	}
	metadata := map[string]interface{}{"enabled_services": float64(1)}

	costsJSON, err := json.Marshal(costs)
	require.NoError(t, err)
	scenariosJSON, err := json.Marshal(scenarios)
	require.NoError(t, err)
	metadataJSON, err := json.Marshal(metadata)
	require.NoError(t, err)

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := []findingRow{{
		ID:                "f-1",
		Tool:              "gmapper",
		Type:              "exposed-api-key",
		Severity:          string(types.SeverityHigh),
		Title:             "Unrestricted Google Maps API Key",
		KeyTruncated:      "AIzaSyExampleExample...",
		SourceURL:         "https://app.example.com/bundle.js",
		RestrictionStatus: string(types.RestrictionUnrestricted),
		Costs:             costsJSON,
		AbuseScenarios:    scenariosJSON,
		Metadata:          metadataJSON,
		CreatedAt:         created,
	}}

	var s Store
	findings, err := s.toFindings(rows)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "f-1", f.ID)
	assert.Equal(t, types.SeverityHigh, f.Severity)
	assert.Equal(t, types.RestrictionUnrestricted, f.RestrictionStatus)
	assert.True(t, f.Costs.Total.Equal(decimal.NewFromFloat(5.00)))
	require.Len(t, f.AbuseScenarios, 1)
	assert.True(t, f.AbuseScenarios[0].TotalAnnual.Equal(decimal.NewFromFloat(57600)))
	assert.Equal(t, metadata, f.Metadata)
	assert.Equal(t, created, f.CreatedAt)
}

func TestToFindingsEmptyOptionalColumns(t *testing.T) {
	costsJSON, err := json.Marshal(types.CostAnalysis{Total: decimal.Zero})
	require.NoError(t, err)

	var s Store
	findings, err := s.toFindings([]findingRow{{
		ID:                "f-2",
		Severity:          string(types.SeverityMedium),
		RestrictionStatus: string(types.RestrictionUndetermined),
		Costs:             costsJSON,
	}})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Nil(t, findings[0].AbuseScenarios)
	assert.Nil(t, findings[0].Metadata)
}

func TestToFindingsBadCostsJSON(t *testing.T) {
	var s Store
	_, err := s.toFindings([]findingRow{{ID: "f-3", Costs: []byte("{not json")}})
	assert.Error(t, err)
}
