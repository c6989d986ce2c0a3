// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries literature sources and returns unified results.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pdiddy/paper-digest/internal/identity"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Searcher queries a single literature source. Each source (PubMed, journal
// RSS feeds, bioRxiv) implements this interface.
type Searcher interface {
	Name() string
	Search(ctx context.Context, cfg types.SearchConfig) ([]types.Paper, error)
}

// Output holds the combined results and per-source failures.
type Output struct {
	Papers       []types.Paper
	DupsRemoved  int
	SourceErrors []string
}

// SearchAll fans the query out to all searchers concurrently, merges results
// that refer to the same work, and sorts newest first. A failing source is
// reported on w and contributes no results; only an empty searcher list is an
// error.
func SearchAll(ctx context.Context, searchers []Searcher, cfg types.SearchConfig, w io.Writer) (Output, error) {
	if len(searchers) == 0 {
		return Output{}, fmt.Errorf("no search sources configured")
	}

	type sourceResult struct {
		papers []types.Paper
		err    error
		name   string
	}

	ch := make(chan sourceResult, len(searchers))
	var wg sync.WaitGroup

	for _, s := range searchers {
		wg.Add(1)
		go func(s Searcher) {
			defer wg.Done()
			papers, err := s.Search(ctx, cfg)
			ch <- sourceResult{papers: papers, err: err, name: s.Name()}
		}(s)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.Paper
	var sourceErrors []string
	for sr := range ch {
		if sr.err != nil {
			msg := fmt.Sprintf("%s: %v", sr.name, sr.err)
			sourceErrors = append(sourceErrors, msg)
			fmt.Fprintf(w, "warning: source %s failed: %v\n", sr.name, sr.err)
			continue
		}
		fmt.Fprintf(w, "%s: %d result(s)\n", sr.name, len(sr.papers))
		all = append(all, sr.papers...)
	}

	merged, removed := merge(all)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedDate.After(merged[j].PublishedDate)
	})

	return Output{
		Papers:       merged,
		DupsRemoved:  removed,
		SourceErrors: sourceErrors,
	}, nil
}

// merge collapses results that share any identity key, filling empty fields
// of the first occurrence from later ones.
func merge(papers []types.Paper) ([]types.Paper, int) {
	seen := make(map[string]int) // identity key → index in merged
	var merged []types.Paper
	removed := 0

	for _, p := range papers {
		idx := -1
		for _, key := range identity.Keys(p) {
			if i, ok := seen[key]; ok {
				idx = i
				break
			}
		}
		if idx >= 0 {
			mergeInto(&merged[idx], p)
			removed++
		} else {
			idx = len(merged)
			merged = append(merged, p)
		}
		for _, key := range identity.Keys(merged[idx]) {
			seen[key] = idx
		}
	}
	return merged, removed
}

// mergeInto fills empty fields of dst from src. PubMed metadata wins over
// feed metadata only by arriving first; nothing is overwritten.
func mergeInto(dst *types.Paper, src types.Paper) {
	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if dst.PMID == "" {
		dst.PMID = src.PMID
	}
	if dst.PMCID == "" {
		dst.PMCID = src.PMCID
	}
	if len(dst.Authors) == 0 {
		dst.Authors = src.Authors
	}
	if dst.Abstract == "" {
		dst.Abstract = src.Abstract
	}
	if dst.Journal == "" {
		dst.Journal = src.Journal
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.PDFURL == "" {
		dst.PDFURL = src.PDFURL
	}
	if dst.PublishedDate.IsZero() {
		dst.PublishedDate = src.PublishedDate
	}
	if dst.ArticleType == "" {
		dst.ArticleType = src.ArticleType
	}
	dst.IsOpenAccess = dst.IsOpenAccess || src.IsOpenAccess
	dst.MatchedKeywords = unionKeywords(dst.MatchedKeywords, src.MatchedKeywords)
}

func unionKeywords(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	have := make(map[string]bool, len(a))
	for _, kw := range a {
		have[kw] = true
	}
	for _, kw := range b {
		if !have[kw] {
			a = append(a, kw)
			have[kw] = true
		}
	}
	return a
}

// matchKeywords returns the configured keywords found in the text,
// case-insensitively. An empty keyword list matches everything.
func matchKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// FormatTable writes papers as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-24s  %-10s  %s\n",
		"#", "Title", "Journal", "Date", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, p := range out.Papers {
		title := truncate(p.Title, 60)
		journal := truncate(p.Journal, 24)
		date := ""
		if !p.PublishedDate.IsZero() {
			date = p.PublishedDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-24s  %-10s  %s\n",
			i+1, title, journal, date, p.Source)
	}

	fmt.Fprintf(w, "\n%d paper(s)", len(out.Papers))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d cross-source duplicates merged)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes papers as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Papers)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// FromConfig builds the searchers named in cfg.Sources. Unknown source names
// are an error so typos in the config fail loudly.
func FromConfig(cfg types.SearchConfig) ([]Searcher, error) {
	var searchers []Searcher
	for _, name := range cfg.Sources {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "pubmed":
			searchers = append(searchers, NewPubMed(cfg))
		case "rss":
			searchers = append(searchers, NewRSS(cfg))
		case "biorxiv":
			searchers = append(searchers, NewBioRxiv(cfg))
		default:
			return nil, fmt.Errorf("unknown search source %q", name)
		}
	}
	return searchers, nil
}
