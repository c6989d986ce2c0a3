// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-digest CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/secrets"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the paper-digest CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-digest",
	Short: "Automated research paper digests",
	Long: `paper-digest searches PubMed, journal RSS feeds, and bioRxiv/medRxiv for new
papers matching configured keywords, downloads their content and figures,
summarizes and translates them with an LLM, and writes an HTML digest report
(plus Obsidian notes when a vault is configured).

Papers already digested are tracked in a history file and skipped on later runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-digest.yaml or ~/.config/paper-digest/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-digest")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-digest"))
		}
	}

	viper.SetEnvPrefix("PAPER_DIGEST")
	viper.AutomaticEnv()

	viper.SetDefault("http.timeout", "60s")
	viper.SetDefault("http.user_agent", "paper-digest/0.1")
	viper.SetDefault("search.sources", []string{"pubmed", "rss", "biorxiv"})
	viper.SetDefault("search.max_papers", 5)
	viper.SetDefault("search.days_lookback", 7)
	viper.SetDefault("acquisition.download_delay", "1s")
	viper.SetDefault("acquisition.download_pdfs", true)
	viper.SetDefault("storage.history_file", "paper_history.json")
	viper.SetDefault("storage.papers_dir", "papers")
	viper.SetDefault("ai.provider", "anthropic")
	viper.SetDefault("ai.language", "Korean")
	viper.SetDefault("ai.translate_abstract", true)
	viper.SetDefault("output.reports_dir", "reports")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// buildConfig assembles the pipeline configuration from viper and the
// loaded secrets. Secrets fill fields the config file leaves empty.
func buildConfig() types.PipelineConfig {
	httpCfg := types.HTTPConfig{
		Timeout:   viper.GetDuration("http.timeout"),
		UserAgent: viper.GetString("http.user_agent"),
	}

	cfg := types.PipelineConfig{
		Search: types.SearchConfig{
			HTTPConfig:   httpCfg,
			Sources:      viper.GetStringSlice("search.sources"),
			Journals:     viper.GetStringSlice("search.journals"),
			Keywords:     viper.GetStringSlice("search.keywords"),
			MaxPapers:    viper.GetInt("search.max_papers"),
			DaysLookback: viper.GetInt("search.days_lookback"),
			PubMedEmail:  viper.GetString("search.pubmed_email"),
		},
		Acquisition: types.AcquisitionConfig{
			HTTPConfig:     httpCfg,
			DownloadDelay:  viper.GetDuration("acquisition.download_delay"),
			DownloadPDFs:   viper.GetBool("acquisition.download_pdfs"),
			OpenAccessOnly: viper.GetBool("acquisition.open_access_only"),
			UnpaywallEmail: viper.GetString("acquisition.unpaywall_email"),
		},
		Storage: types.StorageConfig{
			HistoryFile: viper.GetString("storage.history_file"),
			PapersDir:   viper.GetString("storage.papers_dir"),
		},
		AI: types.AIConfig{
			Provider:          viper.GetString("ai.provider"),
			Model:             viper.GetString("ai.model"),
			APIKey:            viper.GetString("ai.api_key"),
			BaseURL:           viper.GetString("ai.base_url"),
			MaxTokens:         viper.GetInt("ai.max_tokens"),
			Language:          viper.GetString("ai.language"),
			TranslateAbstract: viper.GetBool("ai.translate_abstract"),
			MaxRetries:        viper.GetInt("ai.max_retries"),
		},
		Output: types.OutputConfig{
			ReportsDir: viper.GetString("output.reports_dir"),
			Obsidian: types.ObsidianConfig{
				Enabled:   viper.GetBool("output.obsidian.enabled"),
				VaultPath: viper.GetString("output.obsidian.vault_path"),
			},
		},
	}

	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = secrets.APIKeyFor(cfg.AI.Provider, loadedSecrets)
	}
	if cfg.Search.PubMedEmail == "" {
		cfg.Search.PubMedEmail = loadedSecrets[secrets.PubMedEmail]
	}
	if cfg.Acquisition.UnpaywallEmail == "" {
		cfg.Acquisition.UnpaywallEmail = loadedSecrets[secrets.UnpaywallEmail]
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
