// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates a digest run: search, deduplicate, acquire,
// summarize, report, and record history. One paper failing never aborts the
// run; only broken configuration does.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/pdiddy/paper-digest/internal/acquire"
	"github.com/pdiddy/paper-digest/internal/dedup"
	"github.com/pdiddy/paper-digest/internal/digest"
	"github.com/pdiddy/paper-digest/internal/history"
	"github.com/pdiddy/paper-digest/internal/llm"
	"github.com/pdiddy/paper-digest/internal/pdfextract"
	"github.com/pdiddy/paper-digest/internal/report"
	"github.com/pdiddy/paper-digest/internal/search"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Stage interfaces, narrow so tests can supply fakes.
type (
	// Summarizer produces a structured summary for one paper.
	Summarizer interface {
		Summarize(ctx context.Context, paper types.Paper, bodyText string) (string, error)
	}

	// Translator renders an abstract as sentence pairs.
	Translator interface {
		Translate(ctx context.Context, abstract string) ([]types.SentencePair, error)
	}

	// ContentFetcher resolves text and figures for one paper.
	ContentFetcher interface {
		FetchContent(ctx context.Context, paper *types.Paper) acquire.Content
	}

	// PDFDownloader obtains a local PDF copy.
	PDFDownloader interface {
		Download(ctx context.Context, paper types.Paper) (string, error)
	}

	// PDFExtractor pulls text and figures out of a local PDF.
	PDFExtractor interface {
		Extract(pdfPath, figuresDir string) (pdfextract.Result, error)
	}

	// ReportWriter renders the final digest report.
	ReportWriter interface {
		Write(papers []types.ProcessedPaper) (string, error)
	}

	// NoteExporter writes per-paper notes plus a digest note.
	NoteExporter interface {
		ExportAll(papers []types.ProcessedPaper) (string, error)
	}
)

// Pipeline holds the wired stages for a digest run.
type Pipeline struct {
	Searchers  []search.Searcher
	History    *history.Store
	Checker    *dedup.Checker
	Downloader PDFDownloader
	Fetcher    ContentFetcher
	Extractor  PDFExtractor
	Summarizer Summarizer
	Translator Translator
	Report     ReportWriter
	Obsidian   NoteExporter // nil when the vault export is disabled

	cfg types.PipelineConfig
	w   io.Writer
}

// New wires a Pipeline from configuration. Errors here are configuration
// errors (unknown provider, missing credentials, unusable history file) and
// are fatal by design.
func New(cfg types.PipelineConfig, w io.Writer) (*Pipeline, error) {
	searchers, err := search.FromConfig(cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("configuring search: %w", err)
	}

	store, err := history.Open(cfg.Storage.HistoryFile, w)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	client, err := llm.New(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("configuring AI provider: %w", err)
	}

	p := &Pipeline{
		Searchers:  searchers,
		History:    store,
		Checker:    dedup.NewChecker(store, w),
		Downloader: acquire.NewDownloader(cfg.Acquisition, filepath.Join(cfg.Storage.PapersDir, "pdfs"), w),
		Fetcher:    acquire.NewFetcher(cfg.Acquisition, filepath.Join(cfg.Storage.PapersDir, "figures"), w),
		Extractor:  pdfextract.New(w),
		Summarizer: digest.NewSummarizer(client, cfg.AI),
		Translator: digest.NewTranslator(client, cfg.AI),
		Report:     report.NewHTML(cfg.Output.ReportsDir, w),
		cfg:        cfg,
		w:          w,
	}
	if cfg.Output.Obsidian.Enabled {
		p.Obsidian = report.NewObsidian(cfg.Output.Obsidian.VaultPath, w)
	}
	return p, nil
}

// Options control one run.
type Options struct {
	// DryRun stops after search and filtering: nothing is downloaded,
	// summarized, written, or recorded.
	DryRun bool
}

// Summary reports what one run did.
type Summary struct {
	Found      int
	Duplicates int
	Skipped    int
	Processed  int
	Failed     int

	ReportPath string
	DigestPath string
	Papers     []types.ProcessedPaper
}

// Run executes the pipeline.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Summary, error) {
	out, err := search.SearchAll(ctx, p.Searchers, p.cfg.Search, p.w)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	summary := &Summary{Found: len(out.Papers)}

	fresh := p.Checker.FilterDuplicates(out.Papers)
	summary.Duplicates = len(out.Papers) - len(fresh)

	if p.cfg.Acquisition.OpenAccessOnly {
		kept := fresh[:0]
		for _, paper := range fresh {
			if paper.IsOpenAccess {
				kept = append(kept, paper)
			} else {
				fmt.Fprintf(p.w, "skipping (not open access): %s\n", paper.Title)
				summary.Skipped++
			}
		}
		fresh = kept
	}

	maxPapers := p.cfg.Search.MaxPapers
	if maxPapers <= 0 {
		maxPapers = 5
	}
	if len(fresh) > maxPapers {
		fmt.Fprintf(p.w, "capping run at %d of %d papers\n", maxPapers, len(fresh))
		summary.Skipped += len(fresh) - maxPapers
		fresh = fresh[:maxPapers]
	}

	fmt.Fprintf(p.w, "%d found, %d duplicate(s) removed, %d to process\n",
		summary.Found, summary.Duplicates, len(fresh))

	if opts.DryRun {
		if len(fresh) > 0 {
			search.FormatTable(search.Output{Papers: fresh}, p.w)
		}
		fmt.Fprintln(p.w, "dry run: stopping before acquisition")
		return summary, nil
	}

	for _, paper := range fresh {
		pp, ok := p.process(ctx, paper)
		if ok {
			summary.Processed++
		} else {
			summary.Failed++
		}
		summary.Papers = append(summary.Papers, pp)
	}

	if len(summary.Papers) > 0 {
		reportPath, err := p.Report.Write(summary.Papers)
		if err != nil {
			fmt.Fprintf(p.w, "warning: writing report: %v\n", err)
		} else {
			summary.ReportPath = reportPath
		}

		if p.Obsidian != nil {
			digestPath, err := p.Obsidian.ExportAll(summary.Papers)
			if err != nil {
				fmt.Fprintf(p.w, "warning: exporting to vault: %v\n", err)
			} else {
				summary.DigestPath = digestPath
			}
		}

		papers := make([]types.Paper, len(summary.Papers))
		for i, pp := range summary.Papers {
			papers[i] = pp.Paper
		}
		if err := p.Checker.SaveToHistory(papers); err != nil {
			fmt.Fprintf(p.w, "warning: saving history: %v\n", err)
		}
	}

	return summary, nil
}

// process runs one paper through acquisition and summarization. Every
// failure degrades: a paper with no text still gets an abstract-only
// summary, and a failed summary leaves an error marker in its place. The
// second return value reports whether summarization succeeded.
func (p *Pipeline) process(ctx context.Context, paper types.Paper) (types.ProcessedPaper, bool) {
	fmt.Fprintf(p.w, "\nprocessing: %s\n", paper.Title)

	pp := types.ProcessedPaper{Paper: paper}

	if p.cfg.Acquisition.DownloadPDFs {
		pdfPath, err := p.Downloader.Download(ctx, paper)
		if err != nil {
			pp.Processing.AddNote(fmt.Sprintf("pdf download failed: %v", err))
		} else {
			pp.PDFPath = pdfPath
			pp.Processing.PDFDownloaded = true
		}
	}

	content := p.Fetcher.FetchContent(ctx, &pp.Paper)
	pp.Figures = content.Figures
	pp.FigureLegends = content.FigureLegends
	pp.Processing.TextSource = content.TextSource
	pp.Processing.FigureSource = content.FigureSource

	bodyText := content.Text
	if content.TextSource == "abstract" || content.TextSource == "doi-abstract" {
		// The abstract goes into the prompt separately.
		bodyText = ""
	}

	// The PDF is the fallback for whatever the web did not yield.
	if pp.PDFPath != "" && (bodyText == "" || len(pp.Figures) == 0) {
		figuresDir := filepath.Join(p.cfg.Storage.PapersDir, "figures", acquire.Slug(pp.Paper.Title))
		result, err := p.Extractor.Extract(pp.PDFPath, figuresDir)
		if err != nil {
			pp.Processing.AddNote(fmt.Sprintf("pdf extraction failed: %v", err))
		} else {
			if bodyText == "" && result.Text != "" {
				bodyText = result.Text
				pp.Processing.TextSource = "pdf"
			}
			if len(pp.Figures) == 0 && len(result.Figures) > 0 {
				pp.Figures = result.Figures
				pp.FigureLegends = acquire.FigureLegends(result.Figures)
				pp.Processing.FigureSource = "pdf"
			}
		}
	}

	summarized := true
	summary, err := p.Summarizer.Summarize(ctx, pp.Paper, bodyText)
	if err != nil {
		fmt.Fprintf(p.w, "  summary failed: %v\n", err)
		pp.Summary = fmt.Sprintf("(processing error: %v)", err)
		pp.Processing.AddNote(fmt.Sprintf("summary failed: %v", err))
		summarized = false
	} else {
		pp.Summary = summary
	}

	if p.cfg.AI.TranslateAbstract && pp.Paper.Abstract != "" {
		pairs, err := p.Translator.Translate(ctx, pp.Paper.Abstract)
		if err != nil {
			fmt.Fprintf(p.w, "  translation failed: %v\n", err)
			pp.Processing.AddNote(fmt.Sprintf("translation failed: %v", err))
		} else {
			pp.TranslatedAbstract = pairs
		}
	}

	return pp, summarized
}
