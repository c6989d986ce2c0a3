// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Sources lists the enabled search backends: pubmed, rss, biorxiv.
	Sources []string `json:"sources" yaml:"sources"`

	// Journals restricts PubMed and RSS searches to these journal names.
	Journals []string `json:"journals" yaml:"journals"`

	// Keywords are the search terms; a paper must match at least one.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// MaxPapers caps how many new papers one run processes (default 5).
	MaxPapers int `json:"max_papers" yaml:"max_papers"`

	// DaysLookback is how far back to search (default 7).
	DaysLookback int `json:"days_lookback" yaml:"days_lookback"`

	// PubMedEmail is sent to NCBI E-utilities as the contact address.
	PubMedEmail string `json:"pubmed_email,omitempty" yaml:"pubmed_email,omitempty"`
}

// AcquisitionConfig holds settings for content acquisition and PDF download.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadDelay is the delay between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`

	// DownloadPDFs controls whether PDF copies are fetched at all.
	DownloadPDFs bool `json:"download_pdfs" yaml:"download_pdfs"`

	// OpenAccessOnly drops papers with no known free full-text route.
	OpenAccessOnly bool `json:"open_access_only" yaml:"open_access_only"`

	// UnpaywallEmail enables Unpaywall lookups when set.
	UnpaywallEmail string `json:"unpaywall_email,omitempty" yaml:"unpaywall_email,omitempty"`
}

// StorageConfig holds filesystem locations for persistent data.
type StorageConfig struct {
	// HistoryFile is the JSON file recording previously processed papers.
	HistoryFile string `json:"history_file" yaml:"history_file"`

	// PapersDir is where downloaded PDFs and extracted figures are stored.
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`
}

// AIConfig holds settings for the summarization stage.
type AIConfig struct {
	// Provider selects the LLM backend: anthropic, openai, or ollama.
	Provider string `json:"provider" yaml:"provider"`

	// Model is the model identifier for the selected provider.
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key; unused by ollama.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint (required for ollama).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxTokens bounds the generated response length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Language is the output language for summaries and translations.
	Language string `json:"language" yaml:"language"`

	// TranslateAbstract controls sentence-by-sentence abstract translation.
	TranslateAbstract bool `json:"translate_abstract" yaml:"translate_abstract"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ObsidianConfig holds settings for the Obsidian vault export.
type ObsidianConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// VaultPath is the directory notes are written into.
	VaultPath string `json:"vault_path" yaml:"vault_path"`
}

// OutputConfig holds settings for report generation.
type OutputConfig struct {
	// ReportsDir is where HTML digest reports are written.
	ReportsDir string `json:"reports_dir" yaml:"reports_dir"`

	Obsidian ObsidianConfig `json:"obsidian" yaml:"obsidian"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Search      SearchConfig      `json:"search" yaml:"search"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	AI          AIConfig          `json:"ai" yaml:"ai"`
	Output      OutputConfig      `json:"output" yaml:"output"`
}
