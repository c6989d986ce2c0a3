// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/pkg/types"
)

func TestOpenCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "paper_history.json")

	s, err := Open(path, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var f map[string]any
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Contains(t, f, "papers")
	assert.Contains(t, f, "last_updated")
	assert.Empty(t, f["papers"])
}

func TestOpenCorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper_history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	var warnings strings.Builder
	s, err := Open(path, &warnings)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())
	assert.Contains(t, warnings.String(), "corrupt")
}

func TestAddPapersRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper_history.json")

	s, err := Open(path, io.Discard)
	require.NoError(t, err)

	papers := []types.Paper{
		{Title: "First Paper", DOI: "10.1038/s41586-024-00001-1"},
		{Title: "Second Paper"},
	}
	require.NoError(t, s.AddPapers(papers))
	assert.Equal(t, 2, s.Count())

	// A fresh store sees the same entries.
	s2, err := Open(path, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 2, s2.Count())
	entries := s2.Entries()
	assert.Equal(t, "10.1038/s41586-024-00001-1", entries[0].DOI)
	assert.Equal(t, "First Paper", entries[0].Title)
	assert.Equal(t, "Second Paper", entries[1].Title)

	// AddedDate is a full ISO-8601 datetime.
	_, err = time.Parse(time.RFC3339, entries[0].AddedDate)
	assert.NoError(t, err)
}

func TestIsDuplicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper_history.json")
	s, err := Open(path, io.Discard)
	require.NoError(t, err)

	require.NoError(t, s.AddPapers([]types.Paper{
		{Title: "Single-Cell RNA-Seq Atlas", DOI: "10.1038/s41586-024-00001-1"},
	}))

	tests := []struct {
		name  string
		paper types.Paper
		want  bool
	}{
		{"same doi different case", types.Paper{DOI: "10.1038/S41586-024-00001-1", Title: "Anything"}, true},
		{"same title different punctuation", types.Paper{Title: "single cell rna seq: atlas!"}, true},
		{"different paper", types.Paper{Title: "Unrelated Work", DOI: "10.1101/2024.02.02.580000"}, false},
		{"empty title does not match real titles", types.Paper{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsDuplicate(tt.paper))
		})
	}
}

func TestIsDuplicateEmptyNormalizedTitle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper_history.json")
	s, err := Open(path, io.Discard)
	require.NoError(t, err)

	require.NoError(t, s.AddPapers([]types.Paper{{Title: ""}}))

	// Any title that normalizes to the empty string matches the recorded
	// empty-title entry, including across a reload.
	assert.True(t, s.IsDuplicate(types.Paper{Title: "???"}))

	s2, err := Open(path, io.Discard)
	require.NoError(t, err)
	assert.True(t, s2.IsDuplicate(types.Paper{Title: "—:!"}))
}

func TestAddPapersSkipsKnown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper_history.json")
	s, err := Open(path, io.Discard)
	require.NoError(t, err)

	p := types.Paper{Title: "A Paper", DOI: "10.1371/journal.pone.0000001"}
	require.NoError(t, s.AddPapers([]types.Paper{p}))
	require.NoError(t, s.AddPapers([]types.Paper{p}))
	assert.Equal(t, 1, s.Count())
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper_history.json")
	s, err := Open(path, io.Discard)
	require.NoError(t, err)

	require.NoError(t, s.AddPapers([]types.Paper{{Title: "A Paper"}}))
	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Count())

	s2, err := Open(path, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 0, s2.Count())
	assert.False(t, s2.IsDuplicate(types.Paper{Title: "A Paper"}))
}
