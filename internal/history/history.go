// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists the set of previously processed papers as a single
// JSON document so repeated runs skip work already done.
package history

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/paper-digest/internal/identity"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// historyFile is the on-disk layout. The format is stable; external tools
// read it.
type historyFile struct {
	Papers      []types.HistoryEntry `json:"papers"`
	LastUpdated string               `json:"last_updated"`
}

// Store is a history of processed papers backed by one JSON file.
type Store struct {
	path    string
	entries []types.HistoryEntry
	dois    map[string]struct{}
	titles  map[string]struct{}
	w       io.Writer
}

// Open loads the history at path, creating an empty file (and any missing
// parent directories) when none exists. A file that cannot be parsed is
// reported on w and treated as empty; the previous contents are overwritten
// on the next save. Progress and warnings go to w.
func Open(path string, w io.Writer) (*Store, error) {
	s := &Store{
		path:   path,
		dois:   make(map[string]struct{}),
		titles: make(map[string]struct{}),
		w:      w,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("initializing history %s: %w", path, err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history %s: %w", path, err)
	}

	var f historyFile
	if err := json.Unmarshal(data, &f); err != nil {
		fmt.Fprintf(w, "warning: history file %s is corrupt, starting fresh: %v\n", path, err)
		return s, nil
	}

	s.entries = f.Papers
	for _, e := range f.Papers {
		s.index(e)
	}
	return s, nil
}

func (s *Store) index(e types.HistoryEntry) {
	if doi := strings.TrimSpace(e.DOI); doi != "" {
		s.dois[strings.ToLower(doi)] = struct{}{}
	}
	// The empty normalized title is indexed too, so identifier-less papers
	// whose titles normalize away still match each other.
	s.titles[identity.NormalizeTitle(e.Title)] = struct{}{}
}

// IsDuplicate reports whether the paper was processed in a previous run,
// matching by DOI (case-insensitive) or by normalized title.
func (s *Store) IsDuplicate(p types.Paper) bool {
	if doi := strings.TrimSpace(p.DOI); doi != "" {
		if _, ok := s.dois[strings.ToLower(doi)]; ok {
			return true
		}
	}
	_, ok := s.titles[identity.NormalizeTitle(p.Title)]
	return ok
}

// AddPapers appends the batch to the history and writes the file once.
// Papers already recorded are skipped so re-saving a batch is harmless.
func (s *Store) AddPapers(papers []types.Paper) error {
	added := 0
	now := time.Now().Format(time.RFC3339)
	for _, p := range papers {
		if s.IsDuplicate(p) {
			continue
		}
		e := types.HistoryEntry{DOI: p.DOI, Title: p.Title, AddedDate: now}
		s.entries = append(s.entries, e)
		s.index(e)
		added++
	}
	if added == 0 {
		return nil
	}
	if err := s.save(); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	fmt.Fprintf(s.w, "recorded %d paper(s) in history (%d total)\n", added, len(s.entries))
	return nil
}

// Count returns the number of recorded papers.
func (s *Store) Count() int {
	return len(s.entries)
}

// Entries returns the recorded papers in insertion order.
func (s *Store) Entries() []types.HistoryEntry {
	out := make([]types.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear removes all recorded papers and persists the empty history.
func (s *Store) Clear() error {
	s.entries = nil
	s.dois = make(map[string]struct{})
	s.titles = make(map[string]struct{})
	if err := s.save(); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

func (s *Store) save() error {
	f := historyFile{
		Papers:      s.entries,
		LastUpdated: time.Now().Format(time.RFC3339),
	}
	if f.Papers == nil {
		f.Papers = []types.HistoryEntry{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o644)
}
