// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Journal-specific hosts. Declared as vars so tests can substitute httptest
// servers.
var (
	plosBase      = "https://journals.plos.org"
	elifeBase     = "https://elifesciences.org"
	elifeIIIFBase = "https://iiif.elifesciences.org"
)

// journalExtractor handles one publisher whose figure markup the generic
// DOI stage cannot read.
type journalExtractor struct {
	name    string
	matches func(doi string) bool
	fetch   func(f *Fetcher, ctx context.Context, doi, title string, sink *figureSink) ([]types.FigureRef, error)
}

// journalExtractors is the registry consulted by the journal stage, in
// order. BMC pages use standard markup, so their entry reuses the generic
// DOI extraction.
var journalExtractors = []journalExtractor{
	{
		name:    "plos",
		matches: func(doi string) bool { return strings.Contains(doi, "10.1371/journal") },
		fetch:   (*Fetcher).fetchPLOSFigures,
	},
	{
		name:    "elife",
		matches: func(doi string) bool { return strings.Contains(doi, "10.7554/eLife") },
		fetch:   (*Fetcher).fetchELifeFigures,
	},
	{
		name:    "bmc",
		matches: func(doi string) bool { return strings.Contains(doi, "10.1186") },
		fetch: func(f *Fetcher, ctx context.Context, doi, _ string, sink *figureSink) ([]types.FigureRef, error) {
			return f.fetchDOIFigures(ctx, doi, sink)
		},
	},
}

// fetchJournalFigures dispatches to the publisher matching the DOI prefix.
func (f *Fetcher) fetchJournalFigures(ctx context.Context, doi, title string, sink *figureSink) ([]types.FigureRef, error) {
	for _, je := range journalExtractors {
		if je.matches(doi) {
			return je.fetch(f, ctx, doi, title, sink)
		}
	}
	return nil, nil
}

// plosJournalCodes maps the journal token inside a PLOS DOI to the site
// path segment.
var plosJournalCodes = map[string]string{
	"pcbi": "ploscompbiol",
	"pone": "plosone",
	"pbio": "plosbiology",
	"pgen": "plosgenetics",
	"pmed": "plosmedicine",
	"ppat": "plospathogens",
	"pntd": "plosntds",
}

var (
	plosDOIJournalPattern = regexp.MustCompile(`journal\.(\w+)\.`)
	plosFigureURLPattern  = regexp.MustCompile(`\.g(\d+)`)
)

// plosJournalPath derives the site path from a PLOS DOI
// (10.1371/journal.pcbi.1013867 carries the pcbi token).
func plosJournalPath(doi string) string {
	if m := plosDOIJournalPattern.FindStringSubmatch(doi); m != nil {
		if path, ok := plosJournalCodes[m[1]]; ok {
			return path
		}
	}
	return "plosone"
}

// fetchPLOSFigures reads div.figure blocks off the PLOS article page.
// Figure numbers come from the asset URL (".g001"), and the inline asset is
// upgraded to the large rendition before download.
func (f *Fetcher) fetchPLOSFigures(ctx context.Context, doi, _ string, sink *figureSink) ([]types.FigureRef, error) {
	pageURL := fmt.Sprintf("%s/%s/article?id=%s", plosBase, plosJournalPath(doi), doi)
	doc, final, err := f.document(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("PLOS page: %w", err)
	}

	var candidates []figureCandidate
	doc.Find("div.figure").Each(func(_ int, sel *goquery.Selection) {
		src := firstAttr(sel.Find("img").First(), "src", "data-src")
		if src == "" {
			return
		}
		src = absoluteURL(src, final.Scheme, final.Host)
		src = strings.Replace(src, "size=inline", "size=large", 1)

		number := ""
		if m := plosFigureURLPattern.FindStringSubmatch(src); m != nil {
			number = strings.TrimLeft(m[1], "0")
			if number == "" {
				number = "1"
			}
		}
		caption := strings.TrimSpace(sel.Find("figcaption, p[class*='caption']").First().Text())

		candidates = append(candidates, figureCandidate{URL: src, Caption: caption, Number: number})
	})

	var figures []types.FigureRef
	for _, cand := range candidates {
		if fig, ok := sink.add(ctx, cand); ok {
			figures = append(figures, fig)
		}
	}
	return figures, nil
}

var elifeFigureURLPattern = regexp.MustCompile(`elife-\d+-fig(\d+)`)

// fetchELifeFigures walks the captioned assets on the eLife article page
// and downloads each figure's full-size rendition from the IIIF image
// server instead of the inline thumbnail.
func (f *Fetcher) fetchELifeFigures(ctx context.Context, doi, _ string, sink *figureSink) ([]types.FigureRef, error) {
	articleID := doi[strings.LastIndex(doi, ".")+1:]
	doc, _, err := f.document(ctx, fmt.Sprintf("%s/articles/%s", elifeBase, articleID))
	if err != nil {
		return nil, fmt.Errorf("eLife page: %w", err)
	}

	var candidates []figureCandidate
	doc.Find("figure.captioned-asset").Each(func(_ int, sel *goquery.Selection) {
		src := sel.Find("img").First().AttrOr("src", "")
		m := elifeFigureURLPattern.FindStringSubmatch(src)
		if m == nil {
			return
		}
		number := m[1]
		iiifURL := fmt.Sprintf("%s/lax:%s%%2Felife-%s-fig%s-v1.tif/full/1500,/0/default.jpg",
			elifeIIIFBase, articleID, articleID, number)
		caption := strings.TrimSpace(sel.Find("figcaption").First().Text())

		candidates = append(candidates, figureCandidate{URL: iiifURL, Caption: caption, Number: number})
	})

	var figures []types.FigureRef
	for _, cand := range candidates {
		if fig, ok := sink.add(ctx, cand); ok {
			figures = append(figures, fig)
		}
	}
	return figures, nil
}
