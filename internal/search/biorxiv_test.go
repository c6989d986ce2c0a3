// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func bioRxivPage(total int, entries ...bioRxivEntry) string {
	page := map[string]any{
		"messages":   []map[string]any{{"total": total}},
		"collection": entries,
	}
	data, _ := json.Marshal(page)
	return string(data)
}

func TestBioRxivSearch(t *testing.T) {
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if !strings.Contains(r.URL.Path, "/biorxiv/") {
			// medRxiv has nothing this week.
			w.Write([]byte(bioRxivPage(0)))
			return
		}
		w.Write([]byte(bioRxivPage(2,
			bioRxivEntry{
				Title:    "A deep learning atlas of the gut",
				DOI:      "10.1101/2026.08.20.000001",
				Authors:  "Doe, J.; Roe, R.",
				Date:     "2026-08-20",
				Abstract: "We apply deep learning to single cells.",
				Category: "genomics",
			},
			bioRxivEntry{
				Title:    "Sediment transport dynamics",
				DOI:      "10.1101/2026.08.21.000002",
				Date:     "2026-08-21",
				Abstract: "Rivers move sand.",
			},
		)))
	}))
	defer ts.Close()

	old := bioRxivAPIBase
	bioRxivAPIBase = ts.URL
	defer func() { bioRxivAPIBase = old }()

	b := NewBioRxiv(testCfg())
	b.now = func() time.Time { return time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC) }

	papers, err := b.Search(context.Background(), testCfg())
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1 (keyword filter): %v", len(papers), papers)
	}

	p := papers[0]
	if p.DOI != "10.1101/2026.08.20.000001" {
		t.Errorf("doi = %q", p.DOI)
	}
	if !p.IsOpenAccess {
		t.Error("preprint not flagged open access")
	}
	if p.URL != "https://www.biorxiv.org/content/10.1101/2026.08.20.000001" {
		t.Errorf("url = %q", p.URL)
	}
	if p.PDFURL != p.URL+".full.pdf" {
		t.Errorf("pdf url = %q", p.PDFURL)
	}
	if len(p.Authors) != 2 {
		t.Errorf("authors = %v", p.Authors)
	}
	if p.Journal != "bioRxiv (preprint)" {
		t.Errorf("journal = %q", p.Journal)
	}

	// Both servers were queried with the date window in the path.
	joined := strings.Join(paths, " ")
	for _, want := range []string{"/biorxiv/2026-08-21/2026-08-28/0", "/medrxiv/"} {
		if !strings.Contains(joined, want) {
			t.Errorf("paths missing %q: %v", want, paths)
		}
	}
}

func TestBioRxivPagination(t *testing.T) {
	// Two pages of one entry each; the cursor advances by page size.
	var cursors []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/medrxiv/") {
			w.Write([]byte(bioRxivPage(0)))
			return
		}
		parts := strings.Split(r.URL.Path, "/")
		cursor := parts[len(parts)-1]
		cursors = append(cursors, cursor)
		entry := bioRxivEntry{
			Title:    fmt.Sprintf("deep learning result %s", cursor),
			DOI:      fmt.Sprintf("10.1101/2026.08.2%s.00000%s", cursor, cursor),
			Date:     "2026-08-22",
			Abstract: "deep learning",
		}
		w.Write([]byte(bioRxivPage(2, entry)))
	}))
	defer ts.Close()

	old := bioRxivAPIBase
	bioRxivAPIBase = ts.URL
	defer func() { bioRxivAPIBase = old }()

	cfg := testCfg()
	cfg.MaxPapers = 5

	b := NewBioRxiv(cfg)
	b.now = func() time.Time { return time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC) }

	papers, err := b.Search(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2", len(papers))
	}
	if len(cursors) != 2 || cursors[0] != "0" || cursors[1] != "1" {
		t.Errorf("cursors = %v", cursors)
	}
}

func TestBioRxivAllServersFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	old := bioRxivAPIBase
	bioRxivAPIBase = ts.URL
	defer func() { bioRxivAPIBase = old }()

	b := NewBioRxiv(testCfg())
	if _, err := b.Search(context.Background(), testCfg()); err == nil {
		t.Fatal("expected error when every server fails")
	}
}
