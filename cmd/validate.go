package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/report"
	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <api-key>",
	Short: "Validate one API key and report its capability and cost exposure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		ctx := cmd.Context()

		p, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.close()

		validation := p.validator.Validate(ctx, key)
		if !validation.Valid {
			color.Yellow("Key is not valid: %s", validation.Error)
			return nil
		}

		analysis := p.model.CalculateCosts(validation.Services)
		scenarios := p.model.GenerateAbuseScenarios(validation.Services)
		assessment := p.decider.Evaluate(validation, analysis)

		if assessment.Flag {
			finding := p.decider.BuildFinding(validation, analysis, scenarios, assessment, "")
			renderer := report.NewRenderer(cfg.Report, os.Stdout)
			if err := renderer.Emit(ctx, finding); err != nil {
				return fmt.Errorf("rendering finding: %w", err)
			}
			return nil
		}

		color.Green("Key %s is valid but below flagging criteria", types.TruncateKey(key))
		fmt.Printf("Restrictions: %s\n", validation.RestrictionStatus)
		fmt.Printf("Total potential cost per 1k requests: $%s\n", analysis.Total.StringFixed(2))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
