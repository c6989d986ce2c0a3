// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup filters out papers already seen, either earlier in the same
// run or in a previous run recorded in the history store.
package dedup

import (
	"fmt"
	"io"

	"github.com/pdiddy/paper-digest/internal/identity"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// History is the persistent side of duplicate detection.
type History interface {
	IsDuplicate(p types.Paper) bool
	AddPapers(papers []types.Paper) error
}

// Checker tracks papers seen during the current run on top of a History.
type Checker struct {
	history History
	seen    map[string]struct{}
	w       io.Writer
}

// NewChecker returns a Checker with an empty session set. Progress goes to w.
func NewChecker(history History, w io.Writer) *Checker {
	return &Checker{
		history: history,
		seen:    make(map[string]struct{}),
		w:       w,
	}
}

// IsDuplicate reports whether the paper collides with anything seen this run
// or recorded in history. It does not change any state.
func (c *Checker) IsDuplicate(p types.Paper) bool {
	for _, key := range identity.Keys(p) {
		if _, ok := c.seen[key]; ok {
			return true
		}
	}
	return c.history.IsDuplicate(p)
}

// MarkSeen records every identity key of the paper in the session set.
// Marking the same paper twice is a no-op.
func (c *Checker) MarkSeen(p types.Paper) {
	for _, key := range identity.Keys(p) {
		c.seen[key] = struct{}{}
	}
}

// FilterDuplicates returns the papers not seen before, preserving input order.
// Each surviving paper is marked seen immediately, so a batch containing the
// same work twice keeps only the first occurrence.
func (c *Checker) FilterDuplicates(papers []types.Paper) []types.Paper {
	unique := make([]types.Paper, 0, len(papers))
	for _, p := range papers {
		if c.IsDuplicate(p) {
			fmt.Fprintf(c.w, "skipping duplicate: %s\n", p.Title)
			continue
		}
		c.MarkSeen(p)
		unique = append(unique, p)
	}
	return unique
}

// SaveToHistory records the papers in the persistent history.
func (c *Checker) SaveToHistory(papers []types.Paper) error {
	return c.history.AddPapers(papers)
}
