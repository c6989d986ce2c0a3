// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-digest pipeline.
package types

import (
	"strings"
	"time"
)

// PaperSource identifies which search backend found a paper.
type PaperSource string

const (
	SourcePubMed  PaperSource = "pubmed"
	SourceRSS     PaperSource = "rss"
	SourceBioRxiv PaperSource = "biorxiv"
)

// Paper holds the metadata for a single discovered paper.
type Paper struct {
	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Journal is the journal or preprint server name.
	Journal string `json:"journal,omitempty" yaml:"journal,omitempty"`

	// PublishedDate is the publication date reported by the source.
	PublishedDate time.Time `json:"published_date" yaml:"published_date"`

	// DOI is the Digital Object Identifier, without any URL prefix.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// PMID is the PubMed identifier, when the paper came from PubMed.
	PMID string `json:"pmid,omitempty" yaml:"pmid,omitempty"`

	// PMCID is the PubMed Central identifier (e.g. "PMC1234567").
	PMCID string `json:"pmcid,omitempty" yaml:"pmcid,omitempty"`

	// Abstract is the paper abstract, possibly empty for RSS results.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// URL is the landing page for the paper.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// PDFURL is a direct PDF link, when the source provides one.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// Source identifies the backend that found this paper.
	Source PaperSource `json:"source" yaml:"source"`

	// MatchedKeywords lists the configured keywords this paper matched.
	MatchedKeywords []string `json:"matched_keywords,omitempty" yaml:"matched_keywords,omitempty"`

	// ArticleType is a best-effort classification (e.g. "research", "review").
	ArticleType string `json:"article_type,omitempty" yaml:"article_type,omitempty"`

	// IsOpenAccess reports whether the full text is expected to be freely
	// available. Best effort; false means unknown, not paywalled.
	IsOpenAccess bool `json:"is_open_access,omitempty" yaml:"is_open_access,omitempty"`
}

// Equal reports whether two papers refer to the same work: matching DOIs when
// both are present, otherwise matching titles ignoring case.
func (p Paper) Equal(other Paper) bool {
	if p.DOI != "" && other.DOI != "" {
		return strings.EqualFold(p.DOI, other.DOI)
	}
	return strings.EqualFold(strings.TrimSpace(p.Title), strings.TrimSpace(other.Title))
}

// FigureRef describes one figure attached to a paper.
type FigureRef struct {
	// Number is the figure label parsed from its caption (e.g. "1", "2A").
	// Assigned sequentially when no caption carries a number.
	Number string `json:"number" yaml:"number"`

	// Caption is the figure legend, possibly empty.
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`

	// URL is the remote image location, when the figure came from the web.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Path is the local file path once the image has been stored.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// ContentType is the sniffed image MIME type (e.g. "image/png").
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
}

// SentencePair is one sentence of an abstract together with its translation.
type SentencePair struct {
	Original   string `json:"original" yaml:"original"`
	Translated string `json:"translated" yaml:"translated"`
}

// ProcessingInfo records what happened while a paper moved through the pipeline.
type ProcessingInfo struct {
	// TextSource names the stage that supplied the body text
	// ("pmc", "preprint", "doi", "journal", "abstract", "pdf"), or "" if none.
	TextSource string `json:"text_source,omitempty" yaml:"text_source,omitempty"`

	// FigureSource names the stage that supplied figures, or "" if none.
	FigureSource string `json:"figure_source,omitempty" yaml:"figure_source,omitempty"`

	// PDFDownloaded reports whether a local PDF copy was obtained.
	PDFDownloaded bool `json:"pdf_downloaded,omitempty" yaml:"pdf_downloaded,omitempty"`

	// Notes collects human-readable remarks (degraded fallbacks, skips, errors).
	Notes []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// AddNote appends a remark to the processing record.
func (pi *ProcessingInfo) AddNote(note string) {
	pi.Notes = append(pi.Notes, note)
}

// ProcessedPaper is a paper together with everything the pipeline produced for it.
type ProcessedPaper struct {
	Paper Paper `json:"paper" yaml:"paper"`

	// Summary is the generated digest text.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// TranslatedAbstract pairs each abstract sentence with its translation.
	TranslatedAbstract []SentencePair `json:"translated_abstract,omitempty" yaml:"translated_abstract,omitempty"`

	// Figures lists the accepted figures in display order.
	Figures []FigureRef `json:"figures,omitempty" yaml:"figures,omitempty"`

	// FigureLegends is a plain-text block of "Figure N: caption" lines.
	FigureLegends string `json:"figure_legends,omitempty" yaml:"figure_legends,omitempty"`

	// PDFPath is the local PDF file, when one was downloaded.
	PDFPath string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`

	Processing ProcessingInfo `json:"processing" yaml:"processing"`
}

// HistoryEntry is one previously processed paper as persisted in the history file.
type HistoryEntry struct {
	DOI       string `json:"doi"`
	Title     string `json:"title"`
	AddedDate string `json:"added_date"`
}
