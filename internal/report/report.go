// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders processed papers into reader-facing outputs: an
// HTML digest report and Obsidian vault notes.
package report

import (
	"regexp"
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// maxFiguresPerPaper bounds how many figures a paper contributes to a report.
const maxFiguresPerPaper = 6

var unsafeNoteChars = regexp.MustCompile(`[<>:"/\\|?*\[\]#^]`)

// noteFilename derives a safe note name from a paper title, capped at 100
// runes. Obsidian forbids a wider character set than the filesystem does.
func noteFilename(title string) string {
	safe := unsafeNoteChars.ReplaceAllString(title, "")
	safe = strings.Join(strings.Fields(safe), " ")
	runes := []rune(safe)
	if len(runes) > 100 {
		safe = string(runes[:100])
	}
	if safe == "" {
		safe = "paper"
	}
	return safe
}

// oneLineSummary pulls the one-line summary section out of a generated
// summary, falling back to the summary's first sentence.
func oneLineSummary(summary string) string {
	const marker = "One-line Summary"
	if idx := strings.Index(summary, marker); idx >= 0 {
		rest := summary[idx+len(marker):]
		for _, line := range strings.Split(rest, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(line, "#:- "))
			if line != "" {
				return line
			}
		}
	}
	if idx := strings.IndexByte(summary, '.'); idx >= 0 {
		return strings.TrimSpace(summary[:idx+1])
	}
	return strings.TrimSpace(summary)
}

// paperTags builds Obsidian tags from the paper's journal, keywords, and source.
func paperTags(paper types.Paper) []string {
	tags := []string{"paper"}
	if paper.Journal != "" {
		tags = append(tags, strings.ReplaceAll(paper.Journal, " ", "_"))
	}
	keywords := paper.MatchedKeywords
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	for _, kw := range keywords {
		tag := strings.ReplaceAll(kw, " ", "_")
		tags = append(tags, strings.ReplaceAll(tag, "-", "_"))
	}
	if paper.Source != "" {
		tags = append(tags, string(paper.Source))
	}
	return tags
}
