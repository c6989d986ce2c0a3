// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPlosJournalPath(t *testing.T) {
	tests := []struct {
		doi  string
		want string
	}{
		{"10.1371/journal.pcbi.1013867", "ploscompbiol"},
		{"10.1371/journal.pbio.3002001", "plosbiology"},
		{"10.1371/journal.pgen.1010101", "plosgenetics"},
		{"10.1371/journal.xyz.0000001", "plosone"},
		{"10.1371/unexpected", "plosone"},
	}
	for _, tt := range tests {
		if got := plosJournalPath(tt.doi); got != tt.want {
			t.Errorf("plosJournalPath(%q) = %q, want %q", tt.doi, got, tt.want)
		}
	}
}

func TestFetchPLOSFigures(t *testing.T) {
	const doi = "10.1371/journal.pcbi.1013867"
	figure := pngBytes(t, 400, 300, color.White)

	var requestedImg string
	mux := http.NewServeMux()
	mux.HandleFunc("/ploscompbiol/article", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != doi {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
			<div class="figure">
				<img src="/article/figure/image?size=inline&id=`+doi+`.g002">
				<figcaption>Model architecture.</figcaption>
			</div>
		</body></html>`)
	})
	mux.HandleFunc("/article/figure/image", func(w http.ResponseWriter, r *http.Request) {
		requestedImg = r.URL.RawQuery
		w.Header().Set("Content-Type", "image/png")
		w.Write(figure)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	old := plosBase
	plosBase = ts.URL
	defer func() { plosBase = old }()

	f, _ := newTestFetcher(t)
	sink := newFigureSink(f.Client, t.TempDir(), "test-agent")
	figures, err := f.fetchPLOSFigures(context.Background(), doi, "", sink)
	if err != nil {
		t.Fatalf("fetchPLOSFigures: %v", err)
	}
	if len(figures) != 1 {
		t.Fatalf("got %d figures, want 1", len(figures))
	}
	if figures[0].Number != "2" {
		t.Errorf("figure number = %q, want 2 (from .g002)", figures[0].Number)
	}
	if figures[0].Caption != "Model architecture." {
		t.Errorf("caption = %q", figures[0].Caption)
	}
	if !strings.Contains(requestedImg, "size=large") {
		t.Errorf("image requested with query %q, want size=large", requestedImg)
	}
}

func TestFetchELifeFigures(t *testing.T) {
	figure := pngBytes(t, 400, 300, color.White)

	var iiifPath string
	iiif := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		iiifPath = r.URL.Path
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(figure)
	}))
	defer iiif.Close()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/articles/89123" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
			<figure class="captioned-asset">
				<img src="/cdn/elife-89123-fig1-v1-480w.jpg">
				<figcaption>Experimental setup.</figcaption>
			</figure>
		</body></html>`)
	}))
	defer site.Close()

	oldSite, oldIIIF := elifeBase, elifeIIIFBase
	elifeBase = site.URL
	elifeIIIFBase = iiif.URL
	defer func() { elifeBase, elifeIIIFBase = oldSite, oldIIIF }()

	f, _ := newTestFetcher(t)
	sink := newFigureSink(f.Client, t.TempDir(), "test-agent")
	figures, err := f.fetchELifeFigures(context.Background(), "10.7554/eLife.89123", "", sink)
	if err != nil {
		t.Fatalf("fetchELifeFigures: %v", err)
	}
	if len(figures) != 1 {
		t.Fatalf("got %d figures, want 1", len(figures))
	}
	if figures[0].Number != "1" {
		t.Errorf("figure number = %q, want 1", figures[0].Number)
	}
	wantPath := "/lax:89123%2Felife-89123-fig1-v1.tif/full/1500,/0/default.jpg"
	if iiifPath != wantPath && iiifPath != strings.ReplaceAll(wantPath, "%2F", "/") {
		t.Errorf("IIIF path = %q, want %q", iiifPath, wantPath)
	}
}

func TestFetchJournalFiguresNoMatch(t *testing.T) {
	f, _ := newTestFetcher(t)
	sink := newFigureSink(f.Client, t.TempDir(), "test-agent")
	figures, err := f.fetchJournalFigures(context.Background(), "10.1016/j.cell.2025.01.001", "", sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if figures != nil {
		t.Errorf("got figures %v for unregistered publisher", figures)
	}
}
