package risk

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/config"
	"github.com/CodeMonkeyCybersecurity/gmapper/internal/logger"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

func testDecider(t *testing.T, threshold float64) *Decider {
	t.Helper()
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.CostThreshold = decimal.NewFromFloat(threshold)
	return NewDecider(cfg, log)
}

func analysisWithTotal(total float64) types.CostAnalysis {
	return types.CostAnalysis{Total: decimal.NewFromFloat(total)}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		restriction  types.RestrictionStatus
		total        float64
		threshold    float64
		wantFlag     bool
		wantSeverity types.Severity
		wantTitle    string
	}{
		{
			name:         "unrestricted flags regardless of cost",
			restriction:  types.RestrictionUnrestricted,
			total:        0,
			threshold:    5.0,
			wantFlag:     true,
			wantSeverity: types.SeverityHigh,
			wantTitle:    TitleUnrestricted,
		},
		{
			name:         "expensive flags regardless of restriction status",
			restriction:  types.RestrictionUndetermined,
			total:        12.00,
			threshold:    5.0,
			wantFlag:     true,
			wantSeverity: types.SeverityMedium,
			wantTitle:    TitleExpensive,
		},
		{
			name:        "cheap and undetermined does not flag",
			restriction: types.RestrictionUndetermined,
			total:       2.00,
			threshold:   5.0,
			wantFlag:    false,
		},
		{
			name:        "total equal to threshold does not flag",
			restriction: types.RestrictionUndetermined,
			total:       5.0,
			threshold:   5.0,
			wantFlag:    false,
		},
		{
			name:        "restricted and cheap does not flag",
			restriction: types.RestrictionStatus("RESTRICTED (IP_ADDRESS)"),
			total:       1.00,
			threshold:   5.0,
			wantFlag:    false,
		},
		{
			name:         "unrestricted wins over expensive",
			restriction:  types.RestrictionUnrestricted,
			total:        100.00,
			threshold:    5.0,
			wantFlag:     true,
			wantSeverity: types.SeverityHigh,
			wantTitle:    TitleUnrestricted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDecider(t, tt.threshold)
			validation := types.ValidationResult{RestrictionStatus: tt.restriction}

			got := d.Evaluate(validation, analysisWithTotal(tt.total))

			assert.Equal(t, tt.wantFlag, got.Flag)
			if tt.wantFlag {
				assert.Equal(t, tt.wantSeverity, got.Severity)
				assert.Equal(t, tt.wantTitle, got.Title)
			}
		})
	}
}

func TestFirstSight(t *testing.T) {
	d := testDecider(t, 5.0)

	assert.True(t, d.FirstSight("AIzaKeyOne"))
	assert.False(t, d.FirstSight("AIzaKeyOne"))
	assert.True(t, d.FirstSight("AIzaKeyTwo"))
	assert.Equal(t, 2, d.SeenCount())
}

func TestFirstSightConcurrent(t *testing.T) {
	d := testDecider(t, 5.0)

	var wg sync.WaitGroup
	wins := 0
	var mu sync.Mutex

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.FirstSight("AIzaSameKey") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one goroutine may claim the first sighting")
	assert.Equal(t, 1, d.SeenCount())
}

func TestBuildFinding(t *testing.T) {
	d := testDecider(t, 5.0)

	validation := types.ValidationResult{
		Key:               "AIzaSyVeryLongKeyThatShouldBeTruncated123",
		Valid:             true,
		RestrictionStatus: types.RestrictionUnrestricted,
		Services: []types.ServiceStatus{
			{ID: "geocoding", Enabled: true},
			{ID: "places", Enabled: false},
		},
	}
	assessment := Assessment{Flag: true, Severity: types.SeverityHigh, Title: TitleUnrestricted}

	finding := d.BuildFinding(validation, analysisWithTotal(7.00), nil, assessment, "https://example.com/app.js")

	assert.NotEmpty(t, finding.ID)
	assert.Equal(t, "gmapper", finding.Tool)
	assert.Equal(t, types.SeverityHigh, finding.Severity)
	assert.Equal(t, TitleUnrestricted, finding.Title)
	assert.Equal(t, "AIzaSyVeryLongKeyTha...", finding.KeyTruncated)
	assert.NotContains(t, finding.KeyTruncated, "Truncated123", "full key must not appear in finding")
	assert.Equal(t, "https://example.com/app.js", finding.SourceURL)
	assert.Equal(t, 1, finding.Metadata["enabled_services"])
	assert.Equal(t, 2, finding.Metadata["total_services"])
	assert.False(t, finding.CreatedAt.IsZero())
}
