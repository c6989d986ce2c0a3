// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Obsidian writes paper notes and daily digest notes into a vault.
type Obsidian struct {
	vaultPath string
	w         io.Writer

	now func() time.Time
}

// NewObsidian returns an exporter for the vault at vaultPath. The vault
// subdirectories (papers/, digests/, figures/) are created on first export.
func NewObsidian(vaultPath string, w io.Writer) *Obsidian {
	return &Obsidian{vaultPath: vaultPath, w: w, now: time.Now}
}

// noteFrontmatter is the YAML header of a paper note.
type noteFrontmatter struct {
	Title   string   `yaml:"title"`
	Authors []string `yaml:"authors,flow"`
	Journal string   `yaml:"journal"`
	Date    string   `yaml:"date"`
	DOI     string   `yaml:"doi,omitempty"`
	URL     string   `yaml:"url,omitempty"`
	Tags    []string `yaml:"tags,flow"`
	Created string   `yaml:"created"`
	Type    string   `yaml:"type"`
}

// ExportAll writes one note per paper plus a daily digest note linking them.
// Returns the digest note path.
func (o *Obsidian) ExportAll(papers []types.ProcessedPaper) (string, error) {
	for _, pp := range papers {
		if _, err := o.ExportPaper(pp); err != nil {
			return "", err
		}
	}
	return o.exportDigest(papers)
}

// ExportPaper writes a single paper note, copying its figures into the vault.
func (o *Obsidian) ExportPaper(pp types.ProcessedPaper) (string, error) {
	papersDir := filepath.Join(o.vaultPath, "papers")
	if err := os.MkdirAll(papersDir, 0o755); err != nil {
		return "", fmt.Errorf("creating vault papers dir: %w", err)
	}

	paper := pp.Paper
	pubDate := "unknown"
	if !paper.PublishedDate.IsZero() {
		pubDate = paper.PublishedDate.Format("2006-01-02")
	}

	authors := paper.Authors
	if len(authors) > 10 {
		authors = authors[:10]
	}
	fm, err := yaml.Marshal(noteFrontmatter{
		Title:   paper.Title,
		Authors: authors,
		Journal: paper.Journal,
		Date:    pubDate,
		DOI:     paper.DOI,
		URL:     paper.URL,
		Tags:    paperTags(paper),
		Created: o.now().Format("2006-01-02 15:04"),
		Type:    "paper",
	})
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}

	figures, err := o.copyFigures(pp)
	if err != nil {
		fmt.Fprintf(o.w, "warning: copying figures for %q: %v\n", paper.Title, err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", paper.Title)

	b.WriteString("## Metadata\n")
	fmt.Fprintf(&b, "- **Journal**: %s\n", paper.Journal)
	fmt.Fprintf(&b, "- **Published**: %s\n", pubDate)
	fmt.Fprintf(&b, "- **Authors**: %s\n", strings.Join(authors, ", "))
	if paper.DOI != "" {
		fmt.Fprintf(&b, "- **DOI**: [%s](https://doi.org/%s)\n", paper.DOI, paper.DOI)
	}
	if paper.URL != "" {
		fmt.Fprintf(&b, "- **Link**: [article](%s)\n", paper.URL)
	}
	b.WriteString("\n")

	if line := oneLineSummary(pp.Summary); line != "" {
		fmt.Fprintf(&b, "## In One Line\n%s\n\n", line)
	}

	b.WriteString("---\n\n## Summary\n\n")
	if pp.Summary != "" {
		b.WriteString(pp.Summary)
	} else {
		b.WriteString("*no summary*")
	}
	b.WriteString("\n\n---\n\n## Abstract Translation\n\n")
	b.WriteString(formatTranslation(pp.TranslatedAbstract))
	b.WriteString("\n\n---\n\n## Figures\n\n")
	b.WriteString(figures)
	b.WriteString("\n\n---\n\n## Related\n-\n\n## Notes\n-\n")

	notePath := filepath.Join(papersDir, noteFilename(paper.Title)+".md")
	if err := os.WriteFile(notePath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing note: %w", err)
	}
	fmt.Fprintf(o.w, "exported note %s\n", notePath)
	return notePath, nil
}

// copyFigures copies the paper's stored figures into the vault and returns
// the embed block for the note body.
func (o *Obsidian) copyFigures(pp types.ProcessedPaper) (string, error) {
	figures := pp.Figures
	if len(figures) == 0 {
		return "*no figures*", nil
	}
	if len(figures) > maxFiguresPerPaper {
		figures = figures[:maxFiguresPerPaper]
	}

	figDir := filepath.Join(o.vaultPath, "figures", noteFilename(pp.Paper.Title))
	if err := os.MkdirAll(figDir, 0o755); err != nil {
		return "*no figures*", err
	}

	var lines []string
	for _, fig := range figures {
		if fig.Path == "" {
			continue
		}
		data, err := os.ReadFile(fig.Path)
		if err != nil {
			continue
		}
		dst := filepath.Join(figDir, filepath.Base(fig.Path))
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			continue
		}
		rel, err := filepath.Rel(o.vaultPath, dst)
		if err != nil {
			rel = dst
		}
		lines = append(lines, fmt.Sprintf("![[%s|Figure %s]]", filepath.ToSlash(rel), fig.Number))
		if fig.Caption != "" {
			lines = append(lines, fmt.Sprintf("*Figure %s: %s*", fig.Number, fig.Caption))
		}
		lines = append(lines, "")
	}
	if len(lines) == 0 {
		return "*no figures*", nil
	}
	return strings.Join(lines, "\n"), nil
}

// formatTranslation renders sentence pairs as numbered quote blocks.
func formatTranslation(pairs []types.SentencePair) string {
	if len(pairs) == 0 {
		return "*no translation*"
	}
	var lines []string
	for i, pair := range pairs {
		lines = append(lines, fmt.Sprintf("**%d.** %s", i+1, pair.Original))
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("> %s", pair.Translated))
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// digestFrontmatter is the YAML header of a daily digest note.
type digestFrontmatter struct {
	Title  string   `yaml:"title"`
	Date   string   `yaml:"date"`
	Type   string   `yaml:"type"`
	Papers int      `yaml:"papers"`
	Tags   []string `yaml:"tags,flow"`
}

// exportDigest writes the daily digest note linking the exported papers.
func (o *Obsidian) exportDigest(papers []types.ProcessedPaper) (string, error) {
	digestsDir := filepath.Join(o.vaultPath, "digests")
	if err := os.MkdirAll(digestsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating vault digests dir: %w", err)
	}

	now := o.now()
	date := now.Format("2006-01-02")

	fm, err := yaml.Marshal(digestFrontmatter{
		Title:  "Paper Digest - " + date,
		Date:   date,
		Type:   "digest",
		Papers: len(papers),
		Tags:   []string{"paper", "digest", now.Format("2006-01")},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# Paper Digest - %s\n\n", date)
	fmt.Fprintf(&b, "> %d paper(s) summarized.\n\n## Papers\n\n", len(papers))

	for i, pp := range papers {
		note := noteFilename(pp.Paper.Title)
		fmt.Fprintf(&b, "%d. [[papers/%s|%s]]\n", i+1, note, pp.Paper.Title)
		if line := oneLineSummary(pp.Summary); line != "" {
			fmt.Fprintf(&b, "   - %s\n", line)
		}
	}

	b.WriteString("\n---\n\n## Details\n\n")
	for i, pp := range papers {
		note := noteFilename(pp.Paper.Title)
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, pp.Paper.Title)
		fmt.Fprintf(&b, "- **Journal**: %s\n", pp.Paper.Journal)
		fmt.Fprintf(&b, "- **Full note**: [[papers/%s|open]]\n\n", note)
		if line := oneLineSummary(pp.Summary); line != "" {
			fmt.Fprintf(&b, "%s\n\n", line)
		}
		b.WriteString("---\n\n")
	}

	digestPath := filepath.Join(digestsDir, "digest_"+now.Format("20060102")+".md")
	if err := os.WriteFile(digestPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing digest note: %w", err)
	}
	fmt.Fprintf(o.w, "exported digest %s\n", digestPath)
	return digestPath, nil
}
