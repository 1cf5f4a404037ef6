// Package costs projects the financial blast radius of an exposed API
// key: per-service unit costs, volume-based monthly projections, and
// fixed-volume abuse scenarios. All money math uses decimals; floats
// never touch a dollar figure.
package costs

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/catalog"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

const (
	statusEnabled  = "Enabled"
	statusDisabled = "Disabled"
)

var (
	perThousand = decimal.NewFromInt(1000)
	twelve      = decimal.NewFromInt(12)
)

// Model prices service enablement against the catalog.
type Model struct {
	catalog *catalog.Catalog
}

// NewModel creates a cost model backed by the given catalog.
func NewModel(cat *catalog.Catalog) *Model {
	return &Model{catalog: cat}
}

// CalculateCosts builds a cost line per listed service plus a total.
// Every listed service gets a usable line: disabled services cost zero,
// enabled services the catalog cannot price fall back to a conservative
// estimate rather than an error. The total is the sum of enabled unit
// prices per 1,000 requests.
func (m *Model) CalculateCosts(services []types.ServiceStatus) types.CostAnalysis {
	analysis := types.CostAnalysis{
		Lines: make([]types.CostLine, 0, len(services)),
		Total: decimal.Zero,
	}

	for _, svc := range services {
		if !svc.Enabled {
			analysis.Lines = append(analysis.Lines, types.CostLine{
				ID:        svc.ID,
				Name:      svc.Name,
				Status:    statusDisabled,
				CostPer1K: decimal.Zero,
				Details:   "Service not enabled for this key",
			})
			continue
		}

		line := types.CostLine{
			ID:     svc.ID,
			Name:   svc.Name,
			Status: statusEnabled,
		}

		if desc, ok := m.catalog.Lookup(catalog.Service(svc.ID)); ok {
			line.CostPer1K = desc.PrimaryCost()
			line.MonthlyFreeTier = desc.FreeTierMonthly
			line.Details = desc.Detail()
		} else {
			line.CostPer1K = catalog.DefaultUnknownCost
			line.Details = "Estimated cost (unknown service)"
		}

		analysis.Lines = append(analysis.Lines, line)
		analysis.Total = analysis.Total.Add(line.CostPer1K)
	}

	return analysis
}

// EstimateMonthlyCost projects what a fixed monthly request volume against
// one service would cost, after the free tier. Unlike CalculateCosts this
// surfaces unknown services as an error, since there is nothing defensible
// to project against.
func (m *Model) EstimateMonthlyCost(serviceID string, requestsPerMonth int64) (types.ServiceCost, error) {
	desc, ok := m.catalog.Lookup(catalog.Service(serviceID))
	if !ok {
		return types.ServiceCost{
			ServiceID:   serviceID,
			Requests:    requestsPerMonth,
			CostPer1K:   decimal.Zero,
			MonthlyCost: decimal.Zero,
			AnnualCost:  decimal.Zero,
			Error:       fmt.Sprintf("unknown service: %s", serviceID),
		}, fmt.Errorf("unknown service: %s", serviceID)
	}

	billable := requestsPerMonth - desc.FreeTierMonthly
	if billable < 0 {
		billable = 0
	}

	unitCost := desc.PrimaryCost()
	monthly := decimal.NewFromInt(billable).Div(perThousand).Mul(unitCost)

	return types.ServiceCost{
		ServiceID:   serviceID,
		Requests:    requestsPerMonth,
		FreeTier:    desc.FreeTierMonthly,
		Billable:    billable,
		CostPer1K:   unitCost,
		MonthlyCost: monthly,
		AnnualCost:  monthly.Mul(twelve),
	}, nil
}

// scenarioVolumes are the fixed hypothetical monthly request volumes used
// for abuse projection.
var scenarioVolumes = []struct {
	name        string
	description string
	requests    int64
}{
	{"Low Volume Abuse", "1 million requests per month", 1_000_000},
	{"Medium Volume Abuse", "10 million requests per month", 10_000_000},
	{"High Volume Abuse", "100 million requests per month", 100_000_000},
}

// GenerateAbuseScenarios projects spend at three fixed monthly volumes
// across every enabled service. Purely deterministic given the enabled
// set and the catalog. Enabled services the catalog cannot price
// contribute zero to the projection.
func (m *Model) GenerateAbuseScenarios(services []types.ServiceStatus) []types.AbuseScenario {
	scenarios := make([]types.AbuseScenario, 0, len(scenarioVolumes))

	for _, vol := range scenarioVolumes {
		scenario := types.AbuseScenario{
			Name:            vol.name,
			Description:     vol.description,
			MonthlyRequests: vol.requests,
			TotalMonthly:    decimal.Zero,
		}

		for _, svc := range services {
			if !svc.Enabled {
				continue
			}
			estimate, err := m.EstimateMonthlyCost(svc.ID, vol.requests)
			if err != nil {
				scenario.Services = append(scenario.Services, types.ScenarioCost{
					Name:        svc.Name,
					MonthlyCost: decimal.Zero,
				})
				continue
			}
			scenario.Services = append(scenario.Services, types.ScenarioCost{
				Name:        svc.Name,
				MonthlyCost: estimate.MonthlyCost,
			})
			scenario.TotalMonthly = scenario.TotalMonthly.Add(estimate.MonthlyCost)
		}

		scenario.TotalAnnual = scenario.TotalMonthly.Mul(twelve)
		scenarios = append(scenarios, scenario)
	}

	return scenarios
}
