package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full digest pipeline",
	Long: `Run searches all configured sources, filters out papers already in the
history file, acquires text and figures for the rest, summarizes and
translates them, and writes the HTML report (plus Obsidian notes when
enabled).

With --dry-run the pipeline stops after search and dedup: it prints the
papers it would process and touches nothing on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()

		if maxPapers, _ := cmd.Flags().GetInt("max-papers"); maxPapers > 0 {
			cfg.Search.MaxPapers = maxPapers
		}
		if days, _ := cmd.Flags().GetInt("days"); days > 0 {
			cfg.Search.DaysLookback = days
		}
		if noPDF, _ := cmd.Flags().GetBool("no-pdf"); noPDF {
			cfg.Acquisition.DownloadPDFs = false
		}

		p, err := pipeline.New(cfg, os.Stdout)
		if err != nil {
			return err
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		summary, err := p.Run(cmd.Context(), pipeline.Options{DryRun: dryRun})
		if err != nil {
			return err
		}

		fmt.Printf("\ndone: %d processed, %d failed, %d skipped\n",
			summary.Processed, summary.Failed, summary.Skipped)
		if summary.ReportPath != "" {
			fmt.Println("report:", summary.ReportPath)
		}
		if summary.DigestPath != "" {
			fmt.Println("digest:", summary.DigestPath)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "search and filter only; process nothing")
	runCmd.Flags().Int("max-papers", 0, "override the configured per-run paper cap")
	runCmd.Flags().Int("days", 0, "override the configured lookback window")
	runCmd.Flags().Bool("no-pdf", false, "skip PDF downloads for this run")

	rootCmd.AddCommand(runCmd)
}
