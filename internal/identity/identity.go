// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity derives stable identity keys for papers so the same work
// is recognized across sources that disagree on punctuation, casing, or
// identifiers.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// NormalizeTitle produces the canonical form of a title used for matching:
// Unicode compatibility decomposition with combining marks removed, lowercased,
// with everything but letters, digits, and spaces dropped and runs of
// whitespace collapsed to single spaces. Idempotent.
func NormalizeTitle(title string) string {
	decomposed := norm.NFKD.String(title)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Keys returns every identity key for a paper: "doi:" plus the lowercased DOI,
// "pmid:" plus the PMID, and "title:" plus the normalized title. Papers share
// an identity when any key collides. Empty identifiers contribute no key, but
// the title key is always present so titles that normalize to the empty
// string still match each other.
func Keys(p types.Paper) []string {
	keys := make([]string, 0, 3)
	if doi := strings.TrimSpace(p.DOI); doi != "" {
		keys = append(keys, "doi:"+strings.ToLower(doi))
	}
	if pmid := strings.TrimSpace(p.PMID); pmid != "" {
		keys = append(keys, "pmid:"+pmid)
	}
	return append(keys, "title:"+NormalizeTitle(p.Title))
}
