// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// doiResolverBase resolves DOIs to publisher landing pages. Declared as a
// var so tests can substitute an httptest server.
var doiResolverBase = "https://doi.org"

func doiURL(doi string) string {
	return doiResolverBase + "/" + doi
}

// fetchDOIFigures resolves the DOI and runs generic figure extraction
// against whatever publisher page it lands on. Publisher markup varies, so
// several container patterns are tried: Springer's data-test attribute,
// plain <figure> tags, and figure-flavored class names.
func (f *Fetcher) fetchDOIFigures(ctx context.Context, doi string, sink *figureSink) ([]types.FigureRef, error) {
	doc, final, err := f.document(ctx, doiURL(doi))
	if err != nil {
		return nil, fmt.Errorf("resolving DOI: %w", err)
	}

	selector := "[data-test='figure'], figure, div[class*='fig'], div[class*='figure'], div[class*='image-container']"
	candidates := collectFigures(doc, selector, final)

	var figures []types.FigureRef
	for _, cand := range candidates {
		if fig, ok := sink.add(ctx, cand); ok {
			figures = append(figures, fig)
		}
	}
	return figures, nil
}

// minAbstractLen guards against picking up a navigation blurb instead of a
// real abstract.
const minAbstractLen = 100

// maxAbstractLen bounds what a landing page can hand back.
const maxAbstractLen = 3000

// FetchAbstract recovers an abstract from the DOI landing page, trying
// description meta tags first and abstract-flavored sections second.
func (f *Fetcher) FetchAbstract(ctx context.Context, doi string) (string, error) {
	doc, _, err := f.document(ctx, doiURL(doi))
	if err != nil {
		return "", fmt.Errorf("resolving DOI: %w", err)
	}

	var abstract string
	for _, name := range []string{"description", "DC.description", "dc.description", "citation_abstract"} {
		if v, ok := doc.Find(fmt.Sprintf("meta[name='%s']", name)).First().Attr("content"); ok && v != "" {
			abstract = v
			break
		}
	}
	if abstract == "" {
		section := doc.Find("section[class*='abstract'], div[class*='abstract'], #abstract, [id*='abstract']").First()
		if section.Length() > 0 {
			section.Find("h2, h3, h4").Remove()
			abstract = section.Text()
		}
	}

	abstract = strings.Join(strings.Fields(abstract), " ")
	if len(abstract) < minAbstractLen {
		return "", fmt.Errorf("no usable abstract on landing page for %s", doi)
	}
	if len(abstract) > maxAbstractLen {
		abstract = abstract[:maxAbstractLen]
	}
	return abstract, nil
}

// minFullTextLen separates a real article body from cookie banners and
// paywalled stubs.
const minFullTextLen = 2000

// fetchFullText extracts a readable article body from the paper's landing
// page, resolving the DOI when the paper has no URL of its own.
func (f *Fetcher) fetchFullText(ctx context.Context, paper *types.Paper) (string, error) {
	pageURL := paper.URL
	if pageURL == "" && paper.DOI != "" {
		pageURL = doiURL(paper.DOI)
	}
	if pageURL == "" {
		return "", fmt.Errorf("no landing page to extract from")
	}

	resp, err := httputil.Get(ctx, f.Client, pageURL, f.cfg.UserAgent)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	article, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return "", fmt.Errorf("extracting article text: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) < minFullTextLen {
		return "", fmt.Errorf("landing page yielded only %d characters", len(text))
	}
	return text, nil
}
