package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the configured sources without processing anything",
	Long: `Search queries the configured literature sources (PubMed, journal RSS
feeds, bioRxiv/medRxiv), merges results that refer to the same work, and
prints them. Nothing is downloaded, summarized, or recorded in history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig().Search
		if days, _ := cmd.Flags().GetInt("days"); days > 0 {
			cfg.DaysLookback = days
		}

		searchers, err := search.FromConfig(cfg)
		if err != nil {
			return err
		}

		out, err := search.SearchAll(cmd.Context(), searchers, cfg, os.Stderr)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return search.FormatJSON(out, os.Stdout)
		}
		search.FormatTable(out, os.Stdout)
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("days", 0, "override the configured lookback window")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
