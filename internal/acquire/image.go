// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// minFigureDim is the minimum width and height for an image to count as a
// figure rather than an icon or logo.
const minFigureDim = 100

// maxCaptionLen bounds stored captions.
const maxCaptionLen = 500

// sniffImageType identifies an image by its magic bytes. Returns "" for
// anything that is not PNG, JPEG, GIF, or WebP.
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

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// skipImageURLMarkers flag decorative assets by their URL alone.
var skipImageURLMarkers = []string{"logo", "orcid", "icon", "avatar"}

func looksDecorative(imgURL string) bool {
	lower := strings.ToLower(imgURL)
	for _, marker := range skipImageURLMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// figureCandidate is one image a stage proposes as a figure, before the
// download filters have run.
type figureCandidate struct {
	URL     string
	Caption string
	// Number is set when the stage can read it from the URL (PLOS ".g001",
	// eLife "-fig1-"); otherwise it is parsed from the caption or assigned
	// sequentially.
	Number string
}

// figureSink downloads candidate figures into a directory, rejecting
// images that are too small, not really images, or already collected.
type figureSink struct {
	client    *http.Client
	dir       string
	userAgent string

	hashes  map[[sha256.Size]byte]struct{}
	urls    map[string]struct{}
	numbers map[string]struct{}
	count   int
}

func newFigureSink(client *http.Client, dir, userAgent string) *figureSink {
	return &figureSink{
		client:    client,
		dir:       dir,
		userAgent: userAgent,
		hashes:    make(map[[sha256.Size]byte]struct{}),
		urls:      make(map[string]struct{}),
		numbers:   make(map[string]struct{}),
	}
}

// add downloads and validates one candidate. It returns the stored figure
// and true on acceptance; any rejection (filtered, duplicate, download
// failure) returns false with no side effects beyond dedup bookkeeping.
func (s *figureSink) add(ctx context.Context, cand figureCandidate) (types.FigureRef, bool) {
	if cand.URL == "" || looksDecorative(cand.URL) {
		return types.FigureRef{}, false
	}
	if _, ok := s.urls[cand.URL]; ok {
		return types.FigureRef{}, false
	}
	s.urls[cand.URL] = struct{}{}

	data, err := s.fetch(ctx, cand.URL)
	if err != nil {
		return types.FigureRef{}, false
	}

	contentType := sniffImageType(data)
	if contentType == "" {
		return types.FigureRef{}, false
	}

	// Identical bytes under a different URL are the same figure.
	sum := sha256.Sum256(data)
	if _, ok := s.hashes[sum]; ok {
		return types.FigureRef{}, false
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if cfg.Width < minFigureDim || cfg.Height < minFigureDim {
			return types.FigureRef{}, false
		}
	}

	number := cand.Number
	if number == "" {
		number = figureNumber(cand.Caption)
	}
	if number == "" {
		number = strconv.Itoa(s.count + 1)
	}
	if _, ok := s.numbers[number]; ok {
		return types.FigureRef{}, false
	}

	ext := urlExtension(cand.URL)
	if ext == "" {
		ext = imageExtensions[contentType]
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return types.FigureRef{}, false
	}
	filePath := filepath.Join(s.dir, fmt.Sprintf("fig_%s%s", number, ext))
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return types.FigureRef{}, false
	}

	s.hashes[sum] = struct{}{}
	s.numbers[number] = struct{}{}
	s.count++

	caption := cand.Caption
	if len(caption) > maxCaptionLen {
		caption = caption[:maxCaptionLen]
	}
	return types.FigureRef{
		Number:      number,
		Caption:     caption,
		URL:         cand.URL,
		Path:        filePath,
		ContentType: contentType,
	}, true
}

func (s *figureSink) fetch(ctx context.Context, imgURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, imgURL)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "image") && !strings.Contains(contentType, "octet-stream") {
		return nil, fmt.Errorf("not an image: %s", contentType)
	}
	return io.ReadAll(resp.Body)
}

func urlExtension(imgURL string) string {
	u, err := url.Parse(imgURL)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	default:
		return ""
	}
}

// FigureLegends renders "Figure N: caption" lines for figures that carry
// captions.
func FigureLegends(figures []types.FigureRef) string {
	var legends []string
	for _, fig := range figures {
		if fig.Caption != "" {
			legends = append(legends, fmt.Sprintf("Figure %s: %s", fig.Number, fig.Caption))
		}
	}
	return strings.Join(legends, "\n\n")
}
