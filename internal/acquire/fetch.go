// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire obtains paper content: body text, figures, and PDF copies.
// Sources are tried in a fixed order so the most structured copy of a paper
// wins, and every failure degrades to the next source instead of aborting.
package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// StageResult records one attempt in the acquisition chain. A stage that
// finds nothing reports Err; the chain itself never fails.
type StageResult struct {
	Stage   string
	Figures []types.FigureRef
	Err     error
}

// Content is everything the chain produced for one paper.
type Content struct {
	// Text is the best body text found: full text when a landing page
	// yields one, otherwise the abstract.
	Text string

	// TextSource names where Text came from ("fulltext", "abstract",
	// "doi-abstract"), or "" when no text was found.
	TextSource string

	Figures []types.FigureRef

	// FigureSource names the stage that supplied Figures
	// ("pmc", "preprint", "doi", "journal"), or "" when none did.
	FigureSource string

	// FigureLegends is a "Figure N: caption" block for the accepted figures.
	FigureLegends string

	// Attempts lists every stage tried, in order.
	Attempts []StageResult
}

// Fetcher runs the content acquisition chain.
type Fetcher struct {
	Client     *http.Client
	FiguresDir string

	cfg types.AcquisitionConfig
	w   io.Writer
}

// NewFetcher returns a Fetcher storing figures under figuresDir, one
// subdirectory per paper. Progress goes to w.
func NewFetcher(cfg types.AcquisitionConfig, figuresDir string, w io.Writer) *Fetcher {
	return &Fetcher{
		Client:     &http.Client{Timeout: cfg.Timeout},
		FiguresDir: figuresDir,
		cfg:        cfg,
		w:          w,
	}
}

// FetchContent resolves text and figures for one paper. Figures are tried
// source by source: PMC, then the preprint servers for 10.1101 DOIs, then
// the DOI landing page, then journal-specific extractors. Text is resolved
// independently: readable full text from the paper's landing page when
// possible, otherwise the abstract (fetched from the DOI landing page if the
// search result carried none). A paper may update its DOI in place when one
// is recovered from its URL.
func (f *Fetcher) FetchContent(ctx context.Context, paper *types.Paper) Content {
	var content Content

	if paper.DOI == "" && paper.URL != "" {
		if doi := ExtractDOIFromURL(paper.URL); doi != "" {
			paper.DOI = doi
			fmt.Fprintf(f.w, "  recovered DOI from URL: %s\n", doi)
		}
	}

	sink := newFigureSink(f.Client, filepath.Join(f.FiguresDir, Slug(paper.Title)), f.cfg.UserAgent)

	type stage struct {
		name string
		skip bool
		run  func(context.Context, *figureSink) ([]types.FigureRef, error)
	}
	stages := []stage{
		{
			name: "pmc",
			skip: paper.PMCID == "",
			run: func(ctx context.Context, sink *figureSink) ([]types.FigureRef, error) {
				return f.fetchPMCFigures(ctx, paper.PMCID, sink)
			},
		},
		{
			name: "preprint",
			skip: !IsPreprintDOI(paper.DOI),
			run: func(ctx context.Context, sink *figureSink) ([]types.FigureRef, error) {
				return f.fetchPreprintFigures(ctx, paper.DOI, sink)
			},
		},
		{
			name: "doi",
			skip: paper.DOI == "",
			run: func(ctx context.Context, sink *figureSink) ([]types.FigureRef, error) {
				return f.fetchDOIFigures(ctx, paper.DOI, sink)
			},
		},
		{
			name: "journal",
			skip: paper.DOI == "",
			run: func(ctx context.Context, sink *figureSink) ([]types.FigureRef, error) {
				return f.fetchJournalFigures(ctx, paper.DOI, paper.Title, sink)
			},
		},
	}

	for _, st := range stages {
		if st.skip || len(content.Figures) > 0 {
			continue
		}
		figures, err := st.run(ctx, sink)
		content.Attempts = append(content.Attempts, StageResult{Stage: st.name, Figures: figures, Err: err})
		if err != nil {
			fmt.Fprintf(f.w, "  %s figures: %v\n", st.name, err)
			continue
		}
		if len(figures) > 0 {
			content.Figures = figures
			content.FigureSource = st.name
			fmt.Fprintf(f.w, "  %d figure(s) from %s\n", len(figures), st.name)
		}
	}
	content.FigureLegends = FigureLegends(content.Figures)

	f.resolveText(ctx, paper, &content)
	return content
}

// resolveText fills Content.Text, preferring readable full text over the
// abstract.
func (f *Fetcher) resolveText(ctx context.Context, paper *types.Paper, content *Content) {
	if text, err := f.fetchFullText(ctx, paper); err == nil && text != "" {
		content.Text = text
		content.TextSource = "fulltext"
		return
	}

	if paper.Abstract != "" {
		content.Text = paper.Abstract
		content.TextSource = "abstract"
		return
	}

	if paper.DOI != "" {
		if abstract, err := f.FetchAbstract(ctx, paper.DOI); err == nil && abstract != "" {
			paper.Abstract = abstract
			content.Text = abstract
			content.TextSource = "doi-abstract"
		}
	}
}

// document fetches a page and parses it, returning the final URL after
// redirects so relative links can be resolved.
func (f *Fetcher) document(ctx context.Context, pageURL string) (*goquery.Document, *url.URL, error) {
	resp, err := httputil.Get(ctx, f.Client, pageURL, f.cfg.UserAgent)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return doc, resp.Request.URL, nil
}

// maxFiguresPerPage bounds how many containers one landing page is allowed
// to contribute.
const maxFiguresPerPage = 10

// collectFigures walks the containers matching selector and proposes their
// first image as a figure candidate.
func collectFigures(doc *goquery.Document, selector string, final *url.URL) []figureCandidate {
	var candidates []figureCandidate
	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		img := sel.Find("img").First()
		if img.Length() == 0 {
			return true
		}
		src := firstAttr(img, "src", "data-src", "data-lazy-src")
		if src == "" {
			return true
		}
		if tooSmallDeclared(img) {
			return true
		}

		caption := strings.TrimSpace(sel.Find("figcaption").First().Text())
		if caption == "" {
			caption = strings.TrimSpace(sel.Find("div[class*='caption'], p[class*='caption']").First().Text())
		}
		number := figureNumber(caption)
		if number == "" {
			number = figureNumber(img.AttrOr("alt", ""))
		}

		candidates = append(candidates, figureCandidate{
			URL:     absoluteURL(src, final.Scheme, final.Host),
			Caption: caption,
			Number:  number,
		})
		return len(candidates) < maxFiguresPerPage
	})
	return candidates
}

func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}

// tooSmallDeclared rejects images whose declared dimensions mark them as
// icons. Images without parseable dimensions pass; the decoded size is
// checked after download.
func tooSmallDeclared(img *goquery.Selection) bool {
	for _, attr := range []string{"width", "height"} {
		if v, ok := img.Attr(attr); ok {
			if n, err := strconv.Atoi(strings.TrimSuffix(v, "px")); err == nil && n < minFigureDim {
				return true
			}
		}
	}
	return false
}
