package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "talk-migrator/1.0"

// FetchError represents a response outside the 2xx range
type FetchError struct {
	StatusCode int
	URL        string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// ParseError represents a body that could not be parsed as HTML
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Page is a fetched and parsed HTML page
type Page struct {
	URL string
	Raw string
	Doc *goquery.Document
}

// Text returns the visible text of the page body. Block elements are
// separated by a space so adjacent blocks never run into each other.
func (p *Page) Text() string {
	var b strings.Builder
	writeText(&b, p.Doc.Find("body"))
	return collapseSpace(b.String())
}

var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "code": true, "em": true, "i": true,
	"mark": true, "small": true, "span": true, "strong": true, "sub": true,
	"sup": true, "time": true, "u": true,
}

func writeText(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch {
		case name == "#text":
			b.WriteString(c.Text())
		case inlineElements[name]:
			writeText(b, c)
		default:
			b.WriteByte(' ')
			writeText(b, c)
			b.WriteByte(' ')
		}
	})
}

// SourceFetcher performs single-attempt GETs. Redirects are never followed
// here; steps that need them handle them explicitly.
type SourceFetcher struct {
	client *http.Client
}

// NewSourceFetcher creates a fetcher with the given timeout
func NewSourceFetcher(timeout time.Duration) *SourceFetcher {
	return &SourceFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Fetch downloads and parses a single HTML page
func (f *SourceFetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	resp, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{URL: pageURL, Err: err}
	}

	return &Page{URL: pageURL, Raw: string(body), Doc: doc}, nil
}

// Download streams the body of fileURL into dest. A partially written file
// is removed on failure.
func (f *SourceFetcher) Download(ctx context.Context, fileURL, dest string) error {
	resp, err := f.get(ctx, fileURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating download directory: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("downloading %s: %w", fileURL, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("closing %s: %w", dest, err)
	}
	return nil
}

func (f *SourceFetcher) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", target, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &FetchError{StatusCode: resp.StatusCode, URL: target}
	}
	return resp, nil
}
