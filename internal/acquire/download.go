// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// unpaywallAPIBase locates open-access copies by DOI. Declared as a var so
// tests can substitute an httptest server.
var unpaywallAPIBase = "https://api.unpaywall.org/v2"

var pdfMagic = []byte("%PDF-")

// Downloader fetches PDF copies of papers into a directory.
type Downloader struct {
	Client *http.Client

	cfg types.AcquisitionConfig
	dir string
	w   io.Writer
}

// NewDownloader returns a Downloader writing PDFs into dir.
func NewDownloader(cfg types.AcquisitionConfig, dir string, w io.Writer) *Downloader {
	return &Downloader{
		Client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		dir:    dir,
		w:      w,
	}
}

// Download fetches the paper's PDF, trying each candidate source until one
// yields a real PDF: the source's direct link, the PMC copy, an Unpaywall
// open-access location, then the preprint servers. An existing file is
// reused without a download. Returns the local path, or an error when every
// candidate fails.
func (d *Downloader) Download(ctx context.Context, paper types.Paper) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}
	destPath := filepath.Join(d.dir, Slug(paper.Title)+".pdf")

	if _, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(d.w, "  already downloaded: %s\n", filepath.Base(destPath))
		return destPath, nil
	}

	candidates := d.candidateURLs(ctx, paper)
	if len(candidates) == 0 {
		return "", fmt.Errorf("no PDF sources for %q", paper.Title)
	}

	var lastErr error
	for i, pdfURL := range candidates {
		if i > 0 && d.cfg.DownloadDelay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(d.cfg.DownloadDelay):
			}
		}
		if err := d.downloadPDF(ctx, pdfURL, destPath); err != nil {
			lastErr = err
			fmt.Fprintf(d.w, "  pdf candidate failed: %v\n", err)
			continue
		}
		fmt.Fprintf(d.w, "  downloaded %s\n", filepath.Base(destPath))
		return destPath, nil
	}
	return "", fmt.Errorf("all PDF sources failed for %q: %w", paper.Title, lastErr)
}

// candidateURLs assembles the ordered PDF source list for a paper.
func (d *Downloader) candidateURLs(ctx context.Context, paper types.Paper) []string {
	var urls []string
	if paper.PDFURL != "" {
		urls = append(urls, paper.PDFURL)
	}
	if paper.PMCID != "" {
		urls = append(urls, pmcPDFURL(paper.PMCID))
	}
	if paper.DOI != "" && d.cfg.UnpaywallEmail != "" {
		if oaURL, err := d.checkUnpaywall(ctx, paper.DOI); err == nil && oaURL != "" {
			urls = append(urls, oaURL)
		}
	}
	if IsPreprintDOI(paper.DOI) {
		urls = append(urls, preprintPDFURLs(paper.DOI)...)
	}
	return dedupeStrings(urls)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

type unpaywallResponse struct {
	BestOALocation *struct {
		URLForPDF string `json:"url_for_pdf"`
		URL       string `json:"url"`
	} `json:"best_oa_location"`
}

// checkUnpaywall asks Unpaywall for the best open-access location of a DOI.
func (d *Downloader) checkUnpaywall(ctx context.Context, doi string) (string, error) {
	apiURL := fmt.Sprintf("%s/%s?email=%s", unpaywallAPIBase, doi, d.cfg.UnpaywallEmail)

	resp, err := httputil.Get(ctx, d.Client, apiURL, d.cfg.UserAgent)
	if err != nil {
		return "", fmt.Errorf("unpaywall: %w", err)
	}
	defer resp.Body.Close()

	var ur unpaywallResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", fmt.Errorf("parsing unpaywall response: %w", err)
	}
	if ur.BestOALocation == nil {
		return "", nil
	}
	if ur.BestOALocation.URLForPDF != "" {
		return ur.BestOALocation.URLForPDF, nil
	}
	return ur.BestOALocation.URL, nil
}

// downloadPDF fetches url to destPath through a temporary file, so a failed
// or interrupted download never leaves a partial PDF behind. The payload
// must both claim to be a PDF and start with the PDF magic.
func (d *Downloader) downloadPDF(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, d.Client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "pdf") && !strings.Contains(contentType, "octet-stream") {
		return fmt.Errorf("not a PDF: %s", contentType)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	header := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(resp.Body, header); err != nil || !bytes.Equal(header, pdfMagic) {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("payload from %s is not a PDF", url)
	}

	_, copyErr := io.Copy(tmpFile, io.MultiReader(bytes.NewReader(header), resp.Body))
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
