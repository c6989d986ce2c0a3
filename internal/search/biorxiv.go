// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// bioRxivAPIBase is the details endpoint shared by bioRxiv and medRxiv.
// Declared as a var so tests can substitute an httptest server.
var bioRxivAPIBase = "https://api.biorxiv.org/details"

// cursorCap bounds pagination so one window never costs more than a handful
// of API calls.
const cursorCap = 500

// BioRxiv queries the bioRxiv and medRxiv preprint servers.
type BioRxiv struct {
	Client *http.Client

	// Servers lists the preprint servers queried, in order.
	Servers []string

	now func() time.Time
}

// NewBioRxiv returns a searcher covering both bioRxiv and medRxiv.
func NewBioRxiv(cfg types.SearchConfig) *BioRxiv {
	return &BioRxiv{
		Client:  &http.Client{Timeout: cfg.Timeout},
		Servers: []string{"biorxiv", "medrxiv"},
		now:     time.Now,
	}
}

// Name returns the source identifier.
func (b *BioRxiv) Name() string { return "biorxiv" }

type bioRxivResponse struct {
	Messages []struct {
		Total json.Number `json:"total"`
	} `json:"messages"`
	Collection []bioRxivEntry `json:"collection"`
}

type bioRxivEntry struct {
	Title    string `json:"title"`
	DOI      string `json:"doi"`
	Authors  string `json:"authors"`
	Date     string `json:"date"`
	Abstract string `json:"abstract"`
	Category string `json:"category"`
}

// Search pages through each server's postings for the lookback window and
// keeps keyword matches, newest first.
func (b *BioRxiv) Search(ctx context.Context, cfg types.SearchConfig) ([]types.Paper, error) {
	end := b.now()
	start := end.AddDate(0, 0, -lookback(cfg.DaysLookback))

	max := cfg.MaxPapers
	if max <= 0 {
		max = 10
	}

	var papers []types.Paper
	var errs []string
	for _, server := range b.Servers {
		found, err := b.searchServer(ctx, cfg, server, start, end, max*2)
		papers = append(papers, found...)
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	// One server failing should not hide the other's results.
	if len(papers) == 0 && len(errs) > 0 && len(errs) == len(b.Servers) {
		return nil, fmt.Errorf("all preprint servers failed: %s", strings.Join(errs, "; "))
	}

	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].PublishedDate.After(papers[j].PublishedDate)
	})
	if len(papers) > max {
		papers = papers[:max]
	}
	return papers, nil
}

func (b *BioRxiv) searchServer(ctx context.Context, cfg types.SearchConfig, server string, start, end time.Time, want int) ([]types.Paper, error) {
	var papers []types.Paper
	cursor := 0

	for len(papers) < want && cursor <= cursorCap {
		url := fmt.Sprintf("%s/%s/%s/%s/%d",
			bioRxivAPIBase, server, start.Format("2006-01-02"), end.Format("2006-01-02"), cursor)

		resp, err := httputil.Get(ctx, b.Client, url, cfg.UserAgent)
		if err != nil {
			return papers, fmt.Errorf("%s details: %w", server, err)
		}
		var page bioRxivResponse
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return papers, fmt.Errorf("parsing %s response: %w", server, err)
		}
		if len(page.Collection) == 0 {
			break
		}

		for _, entry := range page.Collection {
			paper, ok := parseBioRxivEntry(entry, server)
			if !ok {
				continue
			}
			matched := matchKeywords(paper.Title+" "+paper.Abstract, cfg.Keywords)
			if len(cfg.Keywords) > 0 && len(matched) == 0 {
				continue
			}
			paper.MatchedKeywords = matched
			papers = append(papers, paper)
		}

		if len(page.Messages) > 0 {
			if total, err := page.Messages[0].Total.Int64(); err == nil && int64(cursor+len(page.Collection)) >= total {
				break
			}
		}
		cursor += len(page.Collection)
	}
	return papers, nil
}

func parseBioRxivEntry(entry bioRxivEntry, server string) (types.Paper, bool) {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		return types.Paper{}, false
	}

	paper := types.Paper{
		Title:    title,
		DOI:      strings.TrimSpace(entry.DOI),
		Abstract: strings.TrimSpace(entry.Abstract),
		Journal:  serverLabel(server),
		Source:   types.SourceBioRxiv,
		// Preprints are always freely readable.
		IsOpenAccess: true,
	}

	for _, a := range strings.Split(entry.Authors, ";") {
		if name := strings.TrimSpace(a); name != "" {
			paper.Authors = append(paper.Authors, name)
		}
	}

	if t, err := time.Parse("2006-01-02", entry.Date); err == nil {
		paper.PublishedDate = t
	}

	if paper.DOI != "" {
		paper.URL = fmt.Sprintf("https://www.%s.org/content/%s", server, paper.DOI)
		paper.PDFURL = paper.URL + ".full.pdf"
	}
	return paper, true
}

func serverLabel(server string) string {
	switch server {
	case "biorxiv":
		return "bioRxiv (preprint)"
	case "medrxiv":
		return "medRxiv (preprint)"
	default:
		return server + " (preprint)"
	}
}
