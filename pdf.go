package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Slide-hosting CDNs serve PDFs under URLs that are not always linked with
// an anchor.
var pdfCDNPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https://on\.notist\.cloud/pdfs/[^"'\s<>]+\.pdf`),
	regexp.MustCompile(`https://files\.speakerdeck\.com/presentations/[^"'\s<>]+\.pdf`),
}

// PdfIngestor downloads a talk's slide PDF and publishes it to the file store
type PdfIngestor struct {
	fetcher     *SourceFetcher
	store       FileStore
	folder      string
	pdfDir      string
	titleMaxLen int
	logger      *slog.Logger
}

// NewPdfIngestor creates an ingestor
func NewPdfIngestor(fetcher *SourceFetcher, store FileStore, settings *Settings, logger *slog.Logger) *PdfIngestor {
	return &PdfIngestor{
		fetcher:     fetcher,
		store:       store,
		folder:      settings.FileStore.Folder,
		pdfDir:      settings.PDFDirectory,
		titleMaxLen: settings.TitleSlugMaxLength,
		logger:      logger,
	}
}

// LocalPath returns the deterministic download location for record's PDF
func (p *PdfIngestor) LocalPath(record *TalkRecord) string {
	name := fmt.Sprintf("%s-%s-%s.pdf", record.Date, slugify(record.Conference, 0), slugify(record.Title, p.titleMaxLen))
	return filepath.Join(p.pdfDir, name)
}

// Ingest publishes the page's PDF, if any, and sets the slides resource.
// A page without a PDF succeeds without changes. Download and upload are
// both required once a PDF is referenced.
func (p *PdfIngestor) Ingest(ctx context.Context, page *Page, record *TalkRecord, errs *ErrorLog) error {
	pdfURL, ok := findPDFReference(page)
	if !ok {
		p.logger.Debug("no PDF found")
		return nil
	}

	localPath := p.LocalPath(record)
	p.logger.Info("downloading slides", "url", pdfURL, "path", localPath)
	if err := p.fetcher.Download(ctx, pdfURL, localPath); err != nil {
		errs.Addf("downloading PDF %s: %v", pdfURL, err)
		return ErrFetch
	}

	publicURL, err := p.store.Upload(ctx, localPath, p.folder)
	if err != nil {
		errs.Addf("uploading %s: %v", localPath, err)
		return ErrUpload
	}
	if publicURL == "" {
		errs.Addf("uploading %s: file store returned no URL", localPath)
		return ErrUpload
	}

	if !record.Resources.SetSlides(Resource{
		Type:        ResourceSlides,
		Title:       "Slides",
		URL:         publicURL,
		Description: "Slide deck (PDF)",
	}) {
		p.logger.Debug("slides resource already present", "url", publicURL)
	}
	return nil
}

// findPDFReference returns the first PDF linked from the page, falling back
// to known slide CDN URLs anywhere in the markup
func findPDFReference(page *Page) (string, bool) {
	found := ""
	page.Doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if !isPDFLink(href) {
			return true
		}
		found = resolveReference(page.URL, href)
		return found == ""
	})
	if found != "" {
		return found, true
	}

	for _, pattern := range pdfCDNPatterns {
		if m := pattern.FindString(page.Raw); m != "" {
			return m, true
		}
	}
	return "", false
}

func isPDFLink(href string) bool {
	parsed, err := url.Parse(href)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsed.Path), ".pdf")
}

// resolveReference resolves href against base; "" when either is invalid
func resolveReference(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}
