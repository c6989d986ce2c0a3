// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// journalFeeds maps journal names to their RSS/Atom feed URLs.
var journalFeeds = map[string]string{
	"Cell":                   "https://www.cell.com/cell/rss/current",
	"Nature":                 "https://www.nature.com/nature.rss",
	"Science":                "https://www.science.org/action/showFeed?type=etoc&feed=rss&jc=science",
	"Nature Methods":         "https://www.nature.com/nmeth.rss",
	"Nature Biotechnology":   "https://www.nature.com/nbt.rss",
	"Nature Medicine":        "https://www.nature.com/nm.rss",
	"Cancer Cell":            "https://www.cell.com/cancer-cell/rss/current",
	"Cell Systems":           "https://www.cell.com/cell-systems/rss/current",
	"Genome Biology":         "https://genomebiology.biomedcentral.com/articles/feed/",
	"Nucleic Acids Research": "https://academic.oup.com/rss/site_5127/3091.xml",
}

// RSS reads the current-issue feeds of the configured journals.
type RSS struct {
	// Feeds maps journal names to feed URLs. Journals without an entry are
	// skipped. Tests point entries at httptest servers.
	Feeds map[string]string

	parser *gofeed.Parser
	now    func() time.Time
}

// NewRSS returns an RSS searcher over the built-in journal feed registry.
func NewRSS(cfg types.SearchConfig) *RSS {
	parser := gofeed.NewParser()
	parser.UserAgent = cfg.UserAgent
	feeds := make(map[string]string, len(journalFeeds))
	for name, url := range journalFeeds {
		feeds[name] = url
	}
	return &RSS{
		Feeds:  feeds,
		parser: parser,
		now:    time.Now,
	}
}

// Name returns the source identifier.
func (r *RSS) Name() string { return "rss" }

// Search fetches each configured journal's feed, keeps entries within the
// lookback window that match a keyword, and returns them newest first.
// A journal with no registered feed is skipped; a feed that fails to parse
// is skipped too, so one broken publisher does not hide the rest.
func (r *RSS) Search(ctx context.Context, cfg types.SearchConfig) ([]types.Paper, error) {
	cutoff := r.now().AddDate(0, 0, -lookback(cfg.DaysLookback))

	var papers []types.Paper
	for _, journal := range cfg.Journals {
		feedURL, ok := r.Feeds[journal]
		if !ok {
			continue
		}
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			continue
		}
		for _, item := range feed.Items {
			paper, ok := parseFeedItem(item, journal)
			if !ok {
				continue
			}
			if !paper.PublishedDate.IsZero() && paper.PublishedDate.Before(cutoff) {
				continue
			}
			if len(cfg.Keywords) > 0 {
				matched := matchKeywords(paper.Title+" "+paper.Abstract, cfg.Keywords)
				if len(matched) == 0 {
					continue
				}
				paper.MatchedKeywords = matched
			}
			papers = append(papers, paper)
		}
	}

	sort.SliceStable(papers, func(i, j int) bool {
		return papers[i].PublishedDate.After(papers[j].PublishedDate)
	})
	if cfg.MaxPapers > 0 && len(papers) > cfg.MaxPapers {
		papers = papers[:cfg.MaxPapers]
	}
	return papers, nil
}

func lookback(days int) int {
	if days <= 0 {
		return 7
	}
	return days
}

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func stripHTML(s string) string {
	clean := htmlTagPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(clean), " ")
}

func parseFeedItem(item *gofeed.Item, journal string) (types.Paper, bool) {
	title := strings.TrimSpace(stripHTML(item.Title))
	if title == "" {
		return types.Paper{}, false
	}

	paper := types.Paper{
		Title:   title,
		Journal: journal,
		URL:     item.Link,
		Source:  types.SourceRSS,
	}

	paper.DOI = feedItemDOI(item)

	if item.PublishedParsed != nil {
		paper.PublishedDate = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		paper.PublishedDate = *item.UpdatedParsed
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}
	paper.Abstract = stripHTML(summary)

	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			paper.Authors = append(paper.Authors, a.Name)
		}
	}

	return paper, true
}

// feedItemDOI pulls a DOI from Dublin Core or PRISM metadata, falling back
// to the entry link.
func feedItemDOI(item *gofeed.Item) string {
	if dc := item.DublinCoreExt; dc != nil {
		for _, id := range dc.Identifier {
			if doi := doiFromIdentifier(id); doi != "" {
				return doi
			}
		}
	}
	if prism, ok := item.Extensions["prism"]; ok {
		for _, ext := range prism["doi"] {
			if ext.Value != "" {
				return strings.TrimSpace(ext.Value)
			}
		}
	}
	return doiFromIdentifier(item.Link)
}

func doiFromIdentifier(s string) string {
	s = strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(s, "doi:"); ok {
		return strings.TrimSpace(after)
	}
	if idx := strings.Index(s, "doi.org/"); idx >= 0 {
		return strings.TrimSpace(s[idx+len("doi.org/"):])
	}
	if idx := strings.Index(s, "/doi/"); idx >= 0 {
		doi := s[idx+len("/doi/"):]
		// Drop publisher path prefixes like "full/" or "abs/".
		for _, prefix := range []string{"full/", "abs/", "pdf/"} {
			doi = strings.TrimPrefix(doi, prefix)
		}
		if q := strings.IndexByte(doi, '?'); q >= 0 {
			doi = doi[:q]
		}
		return strings.TrimSpace(doi)
	}
	if strings.HasPrefix(s, "10.") {
		return s
	}
	return ""
}
