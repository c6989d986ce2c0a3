// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdiddy/paper-digest/pkg/types"
)

var testPDF = []byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")

func newTestDownloader(t *testing.T, cfg types.AcquisitionConfig) (*Downloader, string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	var buf bytes.Buffer
	return NewDownloader(cfg, dir, &buf), dir, &buf
}

func TestDownloadDirectPDFURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(testPDF)
	}))
	defer ts.Close()

	d, dir, _ := newTestDownloader(t, testAcquisitionConfig())
	path, err := d.Download(context.Background(), types.Paper{
		Title:  "Direct download",
		PDFURL: ts.URL + "/paper.pdf",
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("path = %q, want inside %q", path, dir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading downloaded PDF: %v", err)
	}
	if !bytes.Equal(data, testPDF) {
		t.Error("downloaded bytes differ from served bytes")
	}
}

func TestDownloadSkipsExistingFile(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(testPDF)
	}))
	defer ts.Close()

	d, dir, buf := newTestDownloader(t, testAcquisitionConfig())
	existing := filepath.Join(dir, "Already_here.pdf")
	if err := os.WriteFile(existing, testPDF, 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := d.Download(context.Background(), types.Paper{
		Title:  "Already here",
		PDFURL: ts.URL + "/paper.pdf",
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if path != existing {
		t.Errorf("path = %q, want %q", path, existing)
	}
	if calls != 0 {
		t.Errorf("server was hit %d times, want 0", calls)
	}
	if !bytes.Contains(buf.Bytes(), []byte("already downloaded")) {
		t.Error("expected skip to be reported")
	}
}

func TestDownloadRejectsNonPDFPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fake.pdf", func(w http.ResponseWriter, r *http.Request) {
		// Claims PDF, serves a paywall page.
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "<html>subscribe to read</html>")
	})
	mux.HandleFunc("/pmc/articles/PMC42/pdf/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(testPDF)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	old := pmcArticleBase
	pmcArticleBase = ts.URL
	defer func() { pmcArticleBase = old }()

	d, _, buf := newTestDownloader(t, testAcquisitionConfig())
	path, err := d.Download(context.Background(), types.Paper{
		Title:  "Fake then real",
		PDFURL: ts.URL + "/fake.pdf",
		PMCID:  "PMC42",
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, testPDF) {
		t.Error("expected the PMC copy to be downloaded")
	}
	if !bytes.Contains(buf.Bytes(), []byte("pdf candidate failed")) {
		t.Error("expected the fake PDF failure to be reported")
	}
}

func TestDownloadUnpaywallFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/10.1016/j.cell.test", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") == "" {
			http.Error(w, "email required", http.StatusUnprocessableEntity)
			return
		}
		host := "http://" + r.Host
		fmt.Fprintf(w, `{"best_oa_location": {"url_for_pdf": "%s/oa/copy.pdf"}}`, host)
	})
	mux.HandleFunc("/oa/copy.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(testPDF)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	old := unpaywallAPIBase
	unpaywallAPIBase = ts.URL
	defer func() { unpaywallAPIBase = old }()

	cfg := testAcquisitionConfig()
	cfg.UnpaywallEmail = "digest@example.org"
	d, _, _ := newTestDownloader(t, cfg)

	path, err := d.Download(context.Background(), types.Paper{
		Title: "Open access via Unpaywall",
		DOI:   "10.1016/j.cell.test",
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, testPDF) {
		t.Error("downloaded bytes differ from served bytes")
	}
}

func TestDownloadNoSources(t *testing.T) {
	d, _, _ := newTestDownloader(t, testAcquisitionConfig())
	if _, err := d.Download(context.Background(), types.Paper{Title: "Nothing to try"}); err == nil {
		t.Fatal("expected error when no PDF sources exist")
	}
}

func TestCandidateURLsPreprint(t *testing.T) {
	oldHosts := preprintHosts
	preprintHosts = []string{"https://www.biorxiv.org", "https://www.medrxiv.org"}
	defer func() { preprintHosts = oldHosts }()

	d, _, _ := newTestDownloader(t, testAcquisitionConfig())
	urls := d.candidateURLs(context.Background(), types.Paper{
		Title:  "Preprint candidates",
		DOI:    "10.1101/2025.03.01.640001",
		PDFURL: "https://www.biorxiv.org/content/10.1101/2025.03.01.640001.full.pdf",
	})
	// The direct link duplicates the first preprint route; it must appear once.
	want := []string{
		"https://www.biorxiv.org/content/10.1101/2025.03.01.640001.full.pdf",
		"https://www.medrxiv.org/content/10.1101/2025.03.01.640001.full.pdf",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %d candidates %v, want %d", len(urls), urls, len(want))
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("candidate[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}
