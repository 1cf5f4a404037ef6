package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/monitor"
)

var scanTool string

var scanCmd = &cobra.Command{
	Use:   "scan [file...]",
	Short: "Scan captured response bodies for Google Maps API keys",
	Long: `Scans the given files (or stdin when no files are given) as captured
HTTP response bodies: extracts candidate API keys, validates each new key
against the live API surface, and reports flagged findings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.close()

		flagged := 0

		if len(args) == 0 {
			body, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			findings := p.monitor.ProcessExchange(ctx, monitor.Exchange{
				Tool: scanTool,
				URL:  "stdin",
				Body: body,
			})
			flagged += len(findings)
		}

		for _, path := range args {
			body, err := os.ReadFile(path)
			if err != nil {
				log.Warnw("Skipping unreadable file", "path", path, "error", err.Error())
				continue
			}
			findings := p.monitor.ProcessExchange(ctx, monitor.Exchange{
				Tool: scanTool,
				URL:  "file://" + path,
				Body: body,
			})
			flagged += len(findings)
		}

		if flagged == 0 {
			color.Green("No flaggable API keys found (%d keys processed)", p.decider.SeenCount())
		} else {
			color.Red("%d finding(s) from %d distinct key(s)", flagged, p.decider.SeenCount())
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanTool, "tool", "proxy", "traffic source tool tag for these exchanges")
	rootCmd.AddCommand(scanCmd)
}
