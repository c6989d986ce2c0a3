// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfextract pulls body text and figure images out of a downloaded
// PDF. It is the last resort of content acquisition: used when no web source
// yielded text or figures.
package pdfextract

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	ledongpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// minFigureDim is the minimum width and height for an extracted image to
// count as a figure.
const minFigureDim = 100

// minImageBytes drops tiny embedded assets (bullets, rules, logos) that
// survive the dimension check.
const minImageBytes = 5 * 1024

// maxAspectRatio rejects page decorations: very wide rules and very tall
// sidebars are not figures.
const maxAspectRatio = 5.0

// maxCaptionLen bounds captions recovered from body text.
const maxCaptionLen = 500

// Result is what one PDF yielded.
type Result struct {
	// Text is the concatenated plain text of all pages, in page order.
	Text string

	Figures []types.FigureRef
}

// Extractor extracts text and figures from PDF files.
type Extractor struct {
	w io.Writer
}

// New returns an Extractor reporting progress to w.
func New(w io.Writer) *Extractor {
	return &Extractor{w: w}
}

// Extract reads pdfPath and stores accepted figure images under figuresDir.
// Text extraction and image extraction fail independently: a PDF whose
// images cannot be decoded still yields its text, and vice versa. Extract
// errors only when the file is unreadable as a PDF at all.
func (e *Extractor) Extract(pdfPath, figuresDir string) (Result, error) {
	var result Result

	text, textErr := extractText(pdfPath)
	if textErr != nil {
		fmt.Fprintf(e.w, "  pdf text: %v\n", textErr)
	}
	result.Text = text

	figures, imgErr := e.extractImages(pdfPath, figuresDir)
	if imgErr != nil {
		fmt.Fprintf(e.w, "  pdf images: %v\n", imgErr)
	}
	result.Figures = figures

	if textErr != nil && imgErr != nil {
		return result, fmt.Errorf("extracting %s: %w", filepath.Base(pdfPath), textErr)
	}

	applyCaptions(result.Figures, parseCaptions(result.Text))
	return result, nil
}

// extractText returns the plain text of every page, in page order.
func extractText(pdfPath string) (string, error) {
	f, reader, err := ledongpdf.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("no extractable text in %s", filepath.Base(pdfPath))
	}
	return strings.Join(pages, "\n\n"), nil
}

// extractImages dumps the PDF's embedded images into a scratch directory
// and runs the figure filters over them.
func (e *Extractor) extractImages(pdfPath, figuresDir string) ([]types.FigureRef, error) {
	scratch, err := os.MkdirTemp("", "pdf-images-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := api.ExtractImagesFile(pdfPath, scratch, nil, nil); err != nil {
		return nil, fmt.Errorf("extracting images: %w", err)
	}
	return collectImages(scratch, figuresDir)
}

// collectImages filters the raw extracted images and copies the survivors
// into destDir with sequential fig_N names. Files are visited in name order,
// which for extracted images follows page order.
func collectImages(srcDir, destDir string) ([]types.FigureRef, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, fmt.Errorf("reading extracted images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var figures []types.FigureRef
	seen := make(map[[sha256.Size]byte]struct{})

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(srcDir, name))
		if err != nil {
			continue
		}
		contentType, ok := acceptImage(data)
		if !ok {
			continue
		}
		sum := sha256.Sum256(data)
		if _, dup := seen[sum]; dup {
			continue
		}

		if len(figures) == 0 {
			if err := os.MkdirAll(destDir, 0o755); err != nil {
				return nil, fmt.Errorf("creating figures dir: %w", err)
			}
		}
		number := fmt.Sprintf("%d", len(figures)+1)
		destPath := filepath.Join(destDir, "fig_"+number+strings.ToLower(filepath.Ext(name)))
		if err := os.WriteFile(destPath, data, 0o644); err != nil {
			continue
		}

		seen[sum] = struct{}{}
		figures = append(figures, types.FigureRef{
			Number:      number,
			Path:        destPath,
			ContentType: contentType,
		})
	}
	return figures, nil
}

// acceptImage applies the figure filters to raw image bytes: recognized
// format, minimum byte size, minimum dimensions, and a bounded aspect ratio.
func acceptImage(data []byte) (string, bool) {
	if len(data) < minImageBytes {
		return "", false
	}
	contentType := sniffImageType(data)
	if contentType == "" {
		return "", false
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", false
	}
	if cfg.Width < minFigureDim || cfg.Height < minFigureDim {
		return "", false
	}
	w, h := float64(cfg.Width), float64(cfg.Height)
	if w/h > maxAspectRatio || h/w > maxAspectRatio {
		return "", false
	}
	return contentType, true
}

// sniffImageType identifies an image by its magic bytes.
func sniffImageType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG")):
		return "image/png"
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "image/gif"
	case bytes.HasPrefix(data, []byte("RIFF")):
		return "image/webp"
	default:
		return ""
	}
}

// captionPattern matches "Figure 3. caption..." or "Fig. 3: caption..." at
// line starts in extracted body text.
var captionPattern = regexp.MustCompile(`(?m)^\s*(?:Figure|Fig\.?)\s+(\d+)[.:]\s*(\S[^\n]*)`)

// parseCaptions scans body text for figure captions, keyed by figure number.
// The first caption per number wins; papers repeat figure references in
// running text, and the caption is almost always the first line-initial hit.
func parseCaptions(text string) map[string]string {
	captions := make(map[string]string)
	for _, m := range captionPattern.FindAllStringSubmatch(text, -1) {
		number, caption := m[1], strings.TrimSpace(m[2])
		if _, ok := captions[number]; ok {
			continue
		}
		if len(caption) > maxCaptionLen {
			caption = caption[:maxCaptionLen]
		}
		captions[number] = caption
	}
	return captions
}

// applyCaptions attaches recovered captions to figures by number. Figure
// numbering from collectImages is sequential in page order, which matches
// how papers number their figures.
func applyCaptions(figures []types.FigureRef, captions map[string]string) {
	for i := range figures {
		if caption, ok := captions[figures[i].Number]; ok {
			figures[i].Caption = caption
		}
	}
}
