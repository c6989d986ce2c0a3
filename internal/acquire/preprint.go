// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// preprintHosts are the content hosts tried for a 10.1101 DOI, in order.
// bioRxiv and medRxiv share the DOI prefix, so both are candidates.
// Declared as a var so tests can substitute httptest servers.
var preprintHosts = []string{
	"https://www.biorxiv.org",
	"https://www.medrxiv.org",
}

// preprintPDFURLs returns the direct PDF routes for a preprint DOI.
func preprintPDFURLs(doi string) []string {
	urls := make([]string, 0, len(preprintHosts))
	for _, host := range preprintHosts {
		urls = append(urls, fmt.Sprintf("%s/content/%s.full.pdf", host, doi))
	}
	return urls
}

// fetchPreprintFigures scrapes figures from the .full article view of
// whichever preprint server carries the posting. The servers mark figures
// with class="fig" blocks whose high-resolution image hangs off an
// fig-inline-img-wrapper anchor.
func (f *Fetcher) fetchPreprintFigures(ctx context.Context, doi string, sink *figureSink) ([]types.FigureRef, error) {
	var errs []string
	for _, host := range preprintHosts {
		pageURL := fmt.Sprintf("%s/content/%s.full", host, doi)
		doc, final, err := f.document(ctx, pageURL)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}

		var candidates []figureCandidate
		doc.Find("div.fig").Each(func(_ int, sel *goquery.Selection) {
			src := sel.Find("a.fig-inline-img-wrapper").First().AttrOr("href", "")
			if src == "" {
				src = firstAttr(sel.Find("img").First(), "src", "data-src")
			}
			if src == "" {
				return
			}
			caption := strings.TrimSpace(sel.Find("div.fig-caption").First().Text())
			candidates = append(candidates, figureCandidate{
				URL:     absoluteURL(src, final.Scheme, final.Host),
				Caption: caption,
				Number:  figureNumber(caption),
			})
		})

		var figures []types.FigureRef
		for _, cand := range candidates {
			if fig, ok := sink.add(ctx, cand); ok {
				figures = append(figures, fig)
			}
		}
		if len(figures) > 0 {
			return figures, nil
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("preprint servers: %s", strings.Join(errs, "; "))
	}
	return nil, nil
}
