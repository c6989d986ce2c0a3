// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// HTML writes a self-contained digest report: figures are inlined as data
// URIs so the file can be mailed or archived without sidecar directories.
type HTML struct {
	dir string
	w   io.Writer

	now func() time.Time
}

// NewHTML returns a report writer targeting dir.
func NewHTML(dir string, w io.Writer) *HTML {
	return &HTML{dir: dir, w: w, now: time.Now}
}

type reportData struct {
	Date   string
	Papers []paperView
}

type paperView struct {
	Index    int
	Title    string
	Journal  string
	Date     string
	Authors  string
	DOI      string
	URL      string
	OneLine  string
	Summary  string
	Pairs    []types.SentencePair
	Figures  []figureView
	PDFPath  string
	Notes    []string
}

type figureView struct {
	Number  string
	Caption string
	DataURI template.URL
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Paper Digest - {{.Date}}</title>
<style>
  body { font-family: 'Inter', 'Noto Sans KR', sans-serif; background: #f8fafc; color: #1e293b; margin: 0; }
  .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
  header h1 { color: #2563eb; margin-bottom: 0.25rem; }
  header p { color: #64748b; margin-top: 0; }
  .paper { background: #fff; border: 1px solid #e2e8f0; border-radius: 8px; padding: 1.5rem; margin: 1.5rem 0; box-shadow: 0 1px 3px rgba(0,0,0,0.1); }
  .paper h2 { margin-top: 0; color: #1d4ed8; }
  .meta { color: #475569; font-size: 0.9rem; }
  .meta a { color: #0ea5e9; }
  .oneline { border-left: 4px solid #2563eb; padding: 0.5rem 1rem; margin: 1rem 0; background: #eff6ff; }
  .summary { white-space: pre-wrap; }
  .pair { margin: 0.75rem 0; }
  .pair .original { font-weight: 500; }
  .pair .translated { color: #475569; border-left: 3px solid #e2e8f0; padding-left: 0.75rem; margin-top: 0.25rem; }
  figure { margin: 1rem 0; }
  figure img { max-width: 100%; border: 1px solid #e2e8f0; border-radius: 4px; }
  figcaption { color: #64748b; font-size: 0.85rem; margin-top: 0.25rem; }
  .notes { color: #94a3b8; font-size: 0.8rem; }
</style>
</head>
<body>
<div class="container">
<header>
  <h1>Paper Digest</h1>
  <p>{{.Date}} &middot; {{len .Papers}} paper(s)</p>
</header>
{{range .Papers}}
<article class="paper">
  <h2>{{.Index}}. {{.Title}}</h2>
  <p class="meta">
    {{.Journal}}{{if .Date}} &middot; {{.Date}}{{end}}{{if .Authors}} &middot; {{.Authors}}{{end}}
    {{if .DOI}}&middot; <a href="https://doi.org/{{.DOI}}">{{.DOI}}</a>{{else if .URL}}&middot; <a href="{{.URL}}">link</a>{{end}}
  </p>
  {{if .OneLine}}<div class="oneline">{{.OneLine}}</div>{{end}}
  {{if .Summary}}<h3>Summary</h3><div class="summary">{{.Summary}}</div>{{end}}
  {{if .Pairs}}
  <h3>Abstract Translation</h3>
  {{range .Pairs}}
  <div class="pair">
    <div class="original">{{.Original}}</div>
    <div class="translated">{{.Translated}}</div>
  </div>
  {{end}}
  {{end}}
  {{if .Figures}}
  <h3>Figures</h3>
  {{range .Figures}}
  <figure>
    <img src="{{.DataURI}}" alt="Figure {{.Number}}">
    {{if .Caption}}<figcaption>Figure {{.Number}}: {{.Caption}}</figcaption>{{end}}
  </figure>
  {{end}}
  {{end}}
  {{if .Notes}}<p class="notes">{{range .Notes}}{{.}} {{end}}</p>{{end}}
</article>
{{end}}
</div>
</body>
</html>
`))

// Write renders the digest report and returns its path.
func (h *HTML) Write(papers []types.ProcessedPaper) (string, error) {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports dir: %w", err)
	}

	now := h.now()
	data := reportData{Date: now.Format("2006-01-02")}
	for i, pp := range papers {
		data.Papers = append(data.Papers, h.paperView(i+1, pp))
	}

	path := filepath.Join(h.dir, "report_"+now.Format("20060102")+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}
	if err := reportTemplate.Execute(f, data); err != nil {
		f.Close()
		return "", fmt.Errorf("rendering report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing report file: %w", err)
	}
	fmt.Fprintf(h.w, "wrote report %s\n", path)
	return path, nil
}

func (h *HTML) paperView(index int, pp types.ProcessedPaper) paperView {
	paper := pp.Paper
	view := paperView{
		Index:   index,
		Title:   paper.Title,
		Journal: paper.Journal,
		Authors: joinAuthors(paper.Authors),
		DOI:     paper.DOI,
		URL:     paper.URL,
		OneLine: oneLineSummary(pp.Summary),
		Summary: pp.Summary,
		Pairs:   pp.TranslatedAbstract,
		PDFPath: pp.PDFPath,
		Notes:   pp.Processing.Notes,
	}
	if !paper.PublishedDate.IsZero() {
		view.Date = paper.PublishedDate.Format("2006-01-02")
	}

	figures := pp.Figures
	if len(figures) > maxFiguresPerPaper {
		figures = figures[:maxFiguresPerPaper]
	}
	for _, fig := range figures {
		if fig.Path == "" {
			continue
		}
		data, err := os.ReadFile(fig.Path)
		if err != nil {
			fmt.Fprintf(h.w, "warning: reading figure %s: %v\n", fig.Path, err)
			continue
		}
		contentType := fig.ContentType
		if contentType == "" {
			contentType = "image/png"
		}
		uri := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
		view.Figures = append(view.Figures, figureView{
			Number:  fig.Number,
			Caption: fig.Caption,
			DataURI: template.URL(uri),
		})
	}
	return view
}

func joinAuthors(authors []string) string {
	if len(authors) == 0 {
		return ""
	}
	if len(authors) > 5 {
		return fmt.Sprintf("%s et al.", authors[0])
	}
	out := authors[0]
	for _, a := range authors[1:] {
		out += ", " + a
	}
	return out
}
