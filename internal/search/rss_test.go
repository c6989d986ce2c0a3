// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func rssFeedXML(pubDate string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Nature</title>
    <item>
      <title>Deep learning predicts &lt;i&gt;cis&lt;/i&gt;-regulatory elements</title>
      <link>https://www.nature.com/articles/s41586-026-00002-2</link>
      <description>&lt;p&gt;A deep learning model for scRNA-seq data.&lt;/p&gt;</description>
      <pubDate>%s</pubDate>
      <dc:identifier>doi:10.1038/s41586-026-00002-2</dc:identifier>
      <dc:creator>Jane Doe</dc:creator>
    </item>
    <item>
      <title>Unrelated geology news</title>
      <link>https://www.nature.com/articles/s41586-026-00003-3</link>
      <description>Rocks and minerals.</description>
      <pubDate>%s</pubDate>
    </item>
    <item>
      <title>Stale but relevant deep learning result</title>
      <link>https://www.nature.com/articles/s41586-025-00004-4</link>
      <description>deep learning</description>
      <pubDate>Mon, 06 Jan 2025 00:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`, pubDate, pubDate)
}

func TestRSSSearch(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour).Format(time.RFC1123Z)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFeedXML(recent)))
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.Journals = []string{"Nature", "Unknown Journal"}

	r := NewRSS(cfg)
	r.Feeds["Nature"] = ts.URL

	papers, err := r.Search(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	// Keyword filter drops the geology item, lookback drops the stale one.
	if len(papers) != 1 {
		t.Fatalf("got %d papers, want 1: %v", len(papers), papers)
	}

	p := papers[0]
	if p.Title != "Deep learning predicts cis-regulatory elements" {
		t.Errorf("title = %q (HTML not stripped?)", p.Title)
	}
	if p.DOI != "10.1038/s41586-026-00002-2" {
		t.Errorf("doi = %q", p.DOI)
	}
	if p.Journal != "Nature" {
		t.Errorf("journal = %q", p.Journal)
	}
	if p.Abstract != "A deep learning model for scRNA-seq data." {
		t.Errorf("abstract = %q", p.Abstract)
	}
	if len(p.MatchedKeywords) == 0 {
		t.Error("matched keywords empty")
	}
}

func TestRSSSearchBrokenFeedSkipped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("this is not xml"))
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.Journals = []string{"Nature"}

	r := NewRSS(cfg)
	r.Feeds["Nature"] = ts.URL

	papers, err := r.Search(context.Background(), cfg)
	if err != nil {
		t.Fatalf("broken feed must not fail the search: %v", err)
	}
	if len(papers) != 0 {
		t.Errorf("got %d papers, want 0", len(papers))
	}
}

func TestDOIFromIdentifier(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"doi prefix", "doi:10.1038/s41586-1", "10.1038/s41586-1"},
		{"doi.org url", "https://doi.org/10.1016/j.cell.2026.01.001", "10.1016/j.cell.2026.01.001"},
		{"publisher /doi/ path", "https://www.science.org/doi/10.1126/science.abc1234?utm=rss", "10.1126/science.abc1234"},
		{"publisher /doi/full/ path", "https://journals.org/doi/full/10.1126/science.abc1234", "10.1126/science.abc1234"},
		{"bare doi", "10.1101/2026.01.01.000001", "10.1101/2026.01.01.000001"},
		{"plain url", "https://www.nature.com/articles/s41586-1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doiFromIdentifier(tt.in); got != tt.want {
				t.Errorf("doiFromIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<p>Hello <b>world</b></p>\n\n  twice")
	if got != "Hello world twice" {
		t.Errorf("stripHTML() = %q", got)
	}
}
