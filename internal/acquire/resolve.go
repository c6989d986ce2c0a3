// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"regexp"
	"strings"
)

// preprintDOIPrefix is the Cold Spring Harbor prefix shared by bioRxiv and
// medRxiv postings.
const preprintDOIPrefix = "10.1101"

// IsPreprintDOI reports whether a DOI points at a bioRxiv/medRxiv posting.
func IsPreprintDOI(doi string) bool {
	return strings.Contains(doi, preprintDOIPrefix)
}

// Publisher URL patterns a DOI can be recovered from.
var (
	plosURLPattern    = regexp.MustCompile(`journals\.plos\.org/\w+/article\?id=(10\.\d+/[^\s&]+)`)
	natureURLPattern  = regexp.MustCompile(`nature\.com/articles/(s\d+-\d+-\d+-\w+)`)
	scienceURLPattern = regexp.MustCompile(`science\.org/doi/(?:full/|abs/)?(10\.\d+/[^\s&?]+)`)
	bmcURLPattern     = regexp.MustCompile(`biomedcentral\.com/articles/(10\.\d+/[^\s&]+)`)
	elifeURLPattern   = regexp.MustCompile(`elifesciences\.org/articles/(\d+)`)
	genericDOIPattern = regexp.MustCompile(`(10\.\d{4,9}/[^\s&?#]+)`)
)

// ExtractDOIFromURL recovers a DOI from common publisher landing-page URLs.
// Returns "" when no pattern matches.
func ExtractDOIFromURL(url string) string {
	if url == "" {
		return ""
	}
	if m := plosURLPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := natureURLPattern.FindStringSubmatch(url); m != nil {
		return "10.1038/" + m[1]
	}
	if m := scienceURLPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := bmcURLPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := elifeURLPattern.FindStringSubmatch(url); m != nil {
		return "10.7554/eLife." + m[1]
	}
	if m := genericDOIPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Slug derives a filesystem-safe name from a paper title, capped at 50 runes.
func Slug(title string) string {
	safe := unsafeFilenameChars.ReplaceAllString(title, "")
	safe = strings.Join(strings.Fields(safe), "_")
	runes := []rune(safe)
	if len(runes) > 50 {
		safe = string(runes[:50])
	}
	if safe == "" {
		safe = "paper"
	}
	return safe
}

// figureNumberPattern matches "Figure 2", "Fig. 3A", "fig 10" in captions.
var figureNumberPattern = regexp.MustCompile(`[Ff]ig(?:ure)?\.?\s*(\d+[A-Za-z]?)`)

// figureNumber pulls a figure label from caption text, or "" if none.
func figureNumber(text string) string {
	if m := figureNumberPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// absoluteURL resolves src against the scheme and host of base.
// Protocol-relative and rooted paths are completed; anything already
// absolute is returned untouched.
func absoluteURL(src, scheme, host string) string {
	switch {
	case strings.HasPrefix(src, "//"):
		return scheme + ":" + src
	case strings.HasPrefix(src, "/"):
		return fmt.Sprintf("%s://%s%s", scheme, host, src)
	default:
		return src
	}
}
