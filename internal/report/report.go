// Package report renders flagged findings for humans. Rendering lives
// outside the core pipeline: both renderers are just finding sinks.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/config"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

// NewRenderer selects a renderer by configured format.
func NewRenderer(cfg config.ReportConfig, w io.Writer) Renderer {
	if cfg.Format == "json" {
		return &JSONRenderer{w: w}
	}
	return &TableRenderer{w: w}
}

// Renderer writes one finding to its output. Renderers implement the
// monitor's Sink interface.
type Renderer interface {
	Emit(ctx context.Context, finding types.Finding) error
}

// TableRenderer writes a finding as console tables.
type TableRenderer struct {
	w io.Writer
}

func NewTableRenderer(w io.Writer) *TableRenderer {
	return &TableRenderer{w: w}
}

func (r *TableRenderer) Emit(ctx context.Context, finding types.Finding) error {
	fmt.Fprintf(r.w, "\n%s  [%s]\n", finding.Title, finding.Severity)
	fmt.Fprintf(r.w, "API Key: %s\n", finding.KeyTruncated)
	if finding.SourceURL != "" {
		fmt.Fprintf(r.w, "Found at: %s\n", finding.SourceURL)
	}
	fmt.Fprintf(r.w, "Restrictions: %s\n", finding.RestrictionStatus)

	tw := table.Table{}
	tw.SetOutputMirror(r.w)
	tw.AppendHeader(table.Row{"Service", "Status", "Cost per 1k"})
	for _, line := range finding.Costs.Lines {
		tw.AppendRow(table.Row{line.Name, line.Status, "$" + line.CostPer1K.StringFixed(2)})
	}
	total := finding.Costs.TotalLine()
	tw.AppendFooter(table.Row{total.Name, "", "$" + total.CostPer1K.StringFixed(2)})
	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
	})
	tw.Render()

	if len(finding.AbuseScenarios) > 0 {
		sw := table.Table{}
		sw.SetOutputMirror(r.w)
		sw.AppendHeader(table.Row{"Abuse Scenario", "Monthly Cost", "Annual Cost"})
		for _, scenario := range finding.AbuseScenarios {
			sw.AppendRow(table.Row{
				fmt.Sprintf("%s (%s)", scenario.Name, scenario.Description),
				"$" + scenario.TotalMonthly.StringFixed(2),
				"$" + scenario.TotalAnnual.StringFixed(2),
			})
		}
		sw.SetStyle(table.StyleRounded)
		sw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
		})
		sw.Render()
	}

	return nil
}

// JSONRenderer writes one finding per line as a JSON document.
type JSONRenderer struct {
	w io.Writer
}

func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{w: w}
}

func (r *JSONRenderer) Emit(ctx context.Context, finding types.Finding) error {
	enc := json.NewEncoder(r.w)
	return enc.Encode(finding)
}
