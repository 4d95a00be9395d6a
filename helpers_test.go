package main

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return NewLogger(io.Discard, true)
}

func newTestPage(t *testing.T, pageURL, html string) *Page {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return &Page{URL: pageURL, Raw: html, Doc: doc}
}

// testSettings returns the embedded defaults rooted in a temp directory
func testSettings(t *testing.T) *Settings {
	t.Helper()
	settings, err := parseSettings([]byte(defaultSettings))
	require.NoError(t, err)

	dir := t.TempDir()
	settings.OutputDirectory = dir + "/talks"
	settings.PDFDirectory = dir + "/pdfs"
	settings.ThumbnailDirectory = dir + "/thumbnails"
	settings.AuditDatabase = dir + "/audit.db"
	settings.HTTPTimeoutSeconds = 5
	settings.BatchPauseMillis = 0
	return settings
}
