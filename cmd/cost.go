package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var costRequests int64

var costCmd = &cobra.Command{
	Use:   "cost [service-id]",
	Short: "Show catalog pricing, or project monthly spend for one service",
	Long: `Without arguments, prints the pricing catalog. With a service id and
--requests, projects the monthly and annual cost of that request volume
after the free tier.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer p.close()

		if len(args) == 0 {
			printCatalog(p)
			return nil
		}

		estimate, err := p.model.EstimateMonthlyCost(args[0], costRequests)
		if err != nil {
			return err
		}

		fmt.Printf("Service:           %s\n", estimate.ServiceID)
		fmt.Printf("Requests/month:    %d\n", estimate.Requests)
		fmt.Printf("Free tier:         %d\n", estimate.FreeTier)
		fmt.Printf("Billable requests: %d\n", estimate.Billable)
		fmt.Printf("Cost per 1k:       $%s\n", estimate.CostPer1K.StringFixed(2))
		fmt.Printf("Monthly cost:      $%s\n", estimate.MonthlyCost.StringFixed(2))
		fmt.Printf("Annual cost:       $%s\n", estimate.AnnualCost.StringFixed(2))
		return nil
	},
}

func printCatalog(p *pipeline) {
	tw := table.Table{}
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Service", "Category", "Primary cost per 1k", "Free tier / month"})
	for _, desc := range p.catalog.Services() {
		tw.AppendRow(table.Row{
			desc.Name,
			desc.Category,
			"$" + desc.PrimaryCost().StringFixed(2),
			desc.FreeTierMonthly,
		})
	}
	tw.SetStyle(table.StyleRounded)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	tw.Render()
}

func init() {
	costCmd.Flags().Int64Var(&costRequests, "requests", 1_000_000, "monthly request volume to project")
	rootCmd.AddCommand(costCmd)
}
