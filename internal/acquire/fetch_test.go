// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

func testAcquisitionConfig() types.AcquisitionConfig {
	return types.AcquisitionConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "paper-digest-test/0.1",
		},
	}
}

func newTestFetcher(t *testing.T) (*Fetcher, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewFetcher(testAcquisitionConfig(), t.TempDir(), &buf), &buf
}

func TestFetchContentPMCFirst(t *testing.T) {
	figure := pngBytes(t, 400, 300, color.White)
	mux := http.NewServeMux()
	mux.HandleFunc("/pmc/articles/PMC1234567/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<figure>
				<img src="/imgs/fig1.png">
				<figcaption>Figure 1. Overview of the method.</figcaption>
			</figure>
		</body></html>`)
	})
	mux.HandleFunc("/imgs/fig1.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(figure)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	old := pmcArticleBase
	pmcArticleBase = ts.URL
	defer func() { pmcArticleBase = old }()

	f, _ := newTestFetcher(t)
	paper := types.Paper{
		Title:    "Overview of the method",
		DOI:      "10.1038/s41592-025-00001-x",
		PMCID:    "PMC1234567",
		Abstract: "A short abstract describing the method.",
		URL:      ts.URL + "/pmc/articles/PMC1234567/",
	}
	content := f.FetchContent(context.Background(), &paper)

	if content.FigureSource != "pmc" {
		t.Fatalf("FigureSource = %q, want pmc", content.FigureSource)
	}
	if len(content.Figures) != 1 {
		t.Fatalf("got %d figures, want 1", len(content.Figures))
	}
	if content.Figures[0].Number != "1" {
		t.Errorf("figure number = %q, want 1", content.Figures[0].Number)
	}
	if !strings.Contains(content.FigureLegends, "Figure 1: Figure 1. Overview") {
		t.Errorf("FigureLegends = %q", content.FigureLegends)
	}
	// One stage succeeded, the rest were not tried.
	if len(content.Attempts) != 1 || content.Attempts[0].Stage != "pmc" {
		t.Errorf("Attempts = %+v, want single pmc attempt", content.Attempts)
	}
	// The landing page is far too short for full text, so the abstract wins.
	if content.TextSource != "abstract" {
		t.Errorf("TextSource = %q, want abstract", content.TextSource)
	}
	if content.Text != paper.Abstract {
		t.Errorf("Text = %q, want the abstract", content.Text)
	}
}

func TestFetchContentFallsThroughToDOI(t *testing.T) {
	figure := pngBytes(t, 400, 300, color.Black)
	mux := http.NewServeMux()
	mux.HandleFunc("/10.1126/science.test1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<figure>
				<img src="/imgs/main.png" alt="Fig. 2">
			</figure>
			<figure>
				<img src="/imgs/badge-icon.png" width="32" height="32">
			</figure>
		</body></html>`)
	})
	mux.HandleFunc("/imgs/main.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(figure)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	oldPMC, oldDOI := pmcArticleBase, doiResolverBase
	pmcArticleBase = ts.URL
	doiResolverBase = ts.URL
	defer func() { pmcArticleBase, doiResolverBase = oldPMC, oldDOI }()

	f, _ := newTestFetcher(t)
	paper := types.Paper{
		Title:    "Falls through to the landing page",
		DOI:      "10.1126/science.test1",
		PMCID:    "PMC7654321", // 404s, forcing the next stage
		Abstract: "An abstract.",
	}
	content := f.FetchContent(context.Background(), &paper)

	if content.FigureSource != "doi" {
		t.Fatalf("FigureSource = %q, want doi", content.FigureSource)
	}
	if len(content.Figures) != 1 {
		t.Fatalf("got %d figures, want 1", len(content.Figures))
	}
	if content.Figures[0].Number != "2" {
		t.Errorf("figure number = %q, want 2 (from alt text)", content.Figures[0].Number)
	}
	if len(content.Attempts) != 2 {
		t.Fatalf("Attempts = %+v, want pmc failure then doi success", content.Attempts)
	}
	if content.Attempts[0].Stage != "pmc" || content.Attempts[0].Err == nil {
		t.Errorf("first attempt = %+v, want failed pmc", content.Attempts[0])
	}
	if content.Attempts[1].Stage != "doi" || content.Attempts[1].Err != nil {
		t.Errorf("second attempt = %+v, want successful doi", content.Attempts[1])
	}
}

func TestFetchContentRecoversDOIFromURL(t *testing.T) {
	figure := pngBytes(t, 400, 300, color.White)
	const doi = "10.1101/2025.03.01.640001"
	mux := http.NewServeMux()
	mux.HandleFunc("/content/"+doi+".full", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<div class="fig">
				<a class="fig-inline-img-wrapper" href="/imgs/F1.large.jpg"><img src="/imgs/F1.small.gif"></a>
				<div class="fig-caption">Figure 1. Preprint figure.</div>
			</div>
		</body></html>`)
	})
	mux.HandleFunc("/imgs/F1.large.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(figure)
	})
	mux.HandleFunc("/content/"+doi, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>abstract page</body></html>")
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	oldHosts := preprintHosts
	preprintHosts = []string{ts.URL}
	defer func() { preprintHosts = oldHosts }()

	f, buf := newTestFetcher(t)
	paper := types.Paper{
		Title:    "Preprint without an explicit DOI",
		URL:      ts.URL + "/content/" + doi,
		Abstract: "The preprint abstract.",
	}
	content := f.FetchContent(context.Background(), &paper)

	if paper.DOI != doi {
		t.Fatalf("recovered DOI = %q, want %q", paper.DOI, doi)
	}
	if !strings.Contains(buf.String(), "recovered DOI") {
		t.Error("expected DOI recovery to be reported")
	}
	if content.FigureSource != "preprint" {
		t.Fatalf("FigureSource = %q, want preprint", content.FigureSource)
	}
	if len(content.Figures) != 1 {
		t.Fatalf("got %d figures, want 1", len(content.Figures))
	}
}

func TestFetchContentAbstractFromLandingPage(t *testing.T) {
	longAbstract := strings.Repeat("Cell atlases map tissue composition. ", 5)
	mux := http.NewServeMux()
	mux.HandleFunc("/10.1186/s13059-test", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head>
			<meta name="description" content="%s">
		</head><body>no figures here</body></html>`, strings.TrimSpace(longAbstract))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	old := doiResolverBase
	doiResolverBase = ts.URL
	defer func() { doiResolverBase = old }()

	f, _ := newTestFetcher(t)
	paper := types.Paper{
		Title: "No abstract from search",
		DOI:   "10.1186/s13059-test",
	}
	content := f.FetchContent(context.Background(), &paper)

	if content.TextSource != "doi-abstract" {
		t.Fatalf("TextSource = %q, want doi-abstract", content.TextSource)
	}
	if !strings.Contains(content.Text, "Cell atlases map tissue composition.") {
		t.Errorf("Text = %q", content.Text)
	}
	if paper.Abstract != content.Text {
		t.Error("recovered abstract should be written back to the paper")
	}
	if len(content.Figures) != 0 {
		t.Errorf("got %d figures, want 0", len(content.Figures))
	}
}

func TestFetchContentFullText(t *testing.T) {
	body := strings.Repeat("Single-cell sequencing resolves cellular heterogeneity across tissues and conditions. ", 40)
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>Article</title></head><body>
			<article><h1>Results</h1><p>%s</p></article>
		</body></html>`, body)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	f, _ := newTestFetcher(t)
	paper := types.Paper{
		Title:    "Full text extraction",
		URL:      ts.URL + "/article",
		Abstract: "Short abstract.",
	}
	content := f.FetchContent(context.Background(), &paper)

	if content.TextSource != "fulltext" {
		t.Fatalf("TextSource = %q, want fulltext", content.TextSource)
	}
	if !strings.Contains(content.Text, "Single-cell sequencing resolves") {
		t.Errorf("Text missing article body: %q", content.Text[:80])
	}
}
