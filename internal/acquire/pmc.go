// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// pmcArticleBase is the PubMed Central article host. Declared as a var so
// tests can substitute an httptest server.
var pmcArticleBase = "https://www.ncbi.nlm.nih.gov"

// pmcArticleURL is the landing page for a PMC deposit.
func pmcArticleURL(pmcid string) string {
	return fmt.Sprintf("%s/pmc/articles/%s/", pmcArticleBase, pmcid)
}

// pmcPDFURL is the direct PDF route for a PMC deposit.
func pmcPDFURL(pmcid string) string {
	return fmt.Sprintf("%s/pmc/articles/%s/pdf/", pmcArticleBase, pmcid)
}

// fetchPMCFigures scrapes the figures off a PMC article page. PMC marks
// figures with <figure> elements or class="fig" blocks.
func (f *Fetcher) fetchPMCFigures(ctx context.Context, pmcid string, sink *figureSink) ([]types.FigureRef, error) {
	doc, final, err := f.document(ctx, pmcArticleURL(pmcid))
	if err != nil {
		return nil, fmt.Errorf("PMC page: %w", err)
	}

	candidates := collectFigures(doc, "figure, div[class*='fig']", final)

	var figures []types.FigureRef
	for _, cand := range candidates {
		if fig, ok := sink.add(ctx, cand); ok {
			figures = append(figures, fig)
		}
	}
	return figures, nil
}
