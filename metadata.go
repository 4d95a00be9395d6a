package main

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/kaptinlin/jsonrepair"
)

const (
	isoDate              = "2006-01-02"
	unknownSpeaker       = "Unknown Speaker"
	genericConference    = "Conference Talk"
	maxConferenceWords   = 6
	maxConferenceCapture = 80
)

var (
	presentationAtPattern = regexp.MustCompile(`(?i)A presentation at (.+?) in `)

	// Text that shows the "presentation at" capture ran into slide content.
	slidePhrases = []string{"slide", "thank you", "questions?", "agenda"}

	presentationTypes = map[string]bool{
		"presentationdigitaldocument": true,
		"event":                       true,
		"educationevent":              true,
		"businessevent":               true,
		"socialevent":                 true,
	}
)

// datePattern pairs a regex with the layout its first group parses with
type datePattern struct {
	expr   *regexp.Regexp
	layout string
}

// Numeric dates must not follow a digit; month names may follow anything.
var bodyDatePatterns = []datePattern{
	{regexp.MustCompile(`(?:^|\D)(\d{4}-\d{2}-\d{2})\b`), isoDate},
	{regexp.MustCompile(`((?:January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2}, \d{4})\b`), "January 2, 2006"},
	{regexp.MustCompile(`((?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) \d{1,2}, \d{4})\b`), "Jan 2, 2006"},
	{regexp.MustCompile(`(?:^|\D)(\d{1,2} (?:January|February|March|April|May|June|July|August|September|October|November|December) \d{4})\b`), "2 January 2006"},
	{regexp.MustCompile(`(?:^|\D)(\d{1,2} (?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) \d{4})\b`), "2 Jan 2006"},
}

// dateContext carries what date strategies need beyond the page
type dateContext struct {
	outputDir      string
	conferenceSlug string
	knownSlugs     []string
}

type dateStrategy struct {
	name string
	find func(*Page, dateContext) (string, bool)
}

type conferenceStrategy struct {
	name string
	find func(*Page) (string, bool)
}

// MetadataExtractor derives talk metadata from a parsed page
type MetadataExtractor struct {
	outputDir         string
	knownConferences  []string
	platformFallbacks map[string]string
	speakers          map[string]string
	abstractMinLength int
	converter         *md.Converter
	logger            *slog.Logger

	dateStrategies       []dateStrategy
	conferenceStrategies []conferenceStrategy
}

// NewMetadataExtractor creates an extractor configured from settings
func NewMetadataExtractor(settings *Settings, logger *slog.Logger) *MetadataExtractor {
	e := &MetadataExtractor{
		outputDir:         settings.OutputDirectory,
		knownConferences:  settings.KnownConferences,
		platformFallbacks: settings.PlatformFallbacks,
		speakers:          settings.Speakers,
		abstractMinLength: settings.AbstractMinLength,
		converter:         md.NewConverter("", true, nil),
		logger:            logger,
	}
	e.dateStrategies = []dateStrategy{
		{"existing-artifact", dateFromExistingArtifacts},
		{"time-element", func(p *Page, _ dateContext) (string, bool) { return dateFromTimeElement(p.Doc) }},
		{"body-text", func(p *Page, _ dateContext) (string, bool) { return dateFromText(p.Text()) }},
	}
	e.conferenceStrategies = []conferenceStrategy{
		{"presentation-at", func(p *Page) (string, bool) { return conferenceFromPresentationAt(p.Raw) }},
		{"known-name", func(p *Page) (string, bool) { return conferenceFromKnownNames(p.Text(), e.knownConferences) }},
		{"structured-data", func(p *Page) (string, bool) { return conferenceFromStructuredData(p.Doc) }},
		{"platform", func(p *Page) (string, bool) { return conferenceFromPlatform(p.URL, e.platformFallbacks) }},
	}
	return e
}

// Extract fills the metadata fields of record. Title, date and conference
// are required; the first one missing stops extraction.
func (e *MetadataExtractor) Extract(page *Page, record *TalkRecord, errs *ErrorLog) error {
	record.Title = extractTitle(page.Doc)
	if record.Title == "" {
		errs.Add("no top-level heading found for title")
		return ErrExtraction
	}

	// The date chain reuses earlier artifacts of the same conference, so the
	// conference is resolved before it and only reported missing afterwards.
	conference, conferenceOK := e.conference(page)

	dctx := dateContext{outputDir: e.outputDir}
	if conferenceOK {
		dctx.conferenceSlug = slugify(conference, 0)
		for _, name := range e.knownConferences {
			dctx.knownSlugs = append(dctx.knownSlugs, slugify(name, 0))
		}
	}
	date, ok := e.date(page, dctx)
	if !ok {
		errs.Add("could not determine talk date")
		return ErrExtraction
	}
	record.Date = date

	if !conferenceOK {
		errs.Add("could not determine conference name")
		return ErrExtraction
	}
	record.Conference = conference

	record.Speaker = e.speaker(page.URL)
	record.Abstract = e.abstract(page.Doc)
	return nil
}

func (e *MetadataExtractor) date(page *Page, dctx dateContext) (string, bool) {
	for _, s := range e.dateStrategies {
		if date, ok := s.find(page, dctx); ok {
			e.logger.Debug("resolved date", "strategy", s.name, "date", date)
			return date, true
		}
	}
	return "", false
}

func (e *MetadataExtractor) conference(page *Page) (string, bool) {
	for _, s := range e.conferenceStrategies {
		if name, ok := s.find(page); ok {
			e.logger.Debug("resolved conference", "strategy", s.name, "conference", name)
			return name, true
		}
	}
	return "", false
}

func (e *MetadataExtractor) speaker(pageURL string) string {
	if name, ok := e.speakers[hostOf(pageURL)]; ok && name != "" {
		return name
	}
	return unknownSpeaker
}

func (e *MetadataExtractor) abstract(doc *goquery.Document) string {
	abstract := ""
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if len([]rune(collapseSpace(p.Text()))) <= e.abstractMinLength {
			return true
		}
		html, err := goquery.OuterHtml(p)
		if err == nil {
			if converted, err := e.converter.ConvertString(html); err == nil {
				abstract = strings.TrimSpace(converted)
			}
		}
		if abstract == "" {
			abstract = collapseSpace(p.Text())
		}
		return false
	})
	return abstract
}

func extractTitle(doc *goquery.Document) string {
	return collapseSpace(doc.Find("h1").First().Text())
}

// dateFromExistingArtifacts reuses the date of an artifact previously
// written for the same conference
func dateFromExistingArtifacts(_ *Page, dctx dateContext) (string, bool) {
	if dctx.outputDir == "" || dctx.conferenceSlug == "" {
		return "", false
	}
	files, err := filepath.Glob(filepath.Join(dctx.outputDir, "*-"+dctx.conferenceSlug+"-*.md"))
	if err != nil {
		return "", false
	}
	sort.Strings(files)

	for _, file := range files {
		base := filepath.Base(file)
		m := artifactPrefix.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		rest := base[len(m[0]):]
		if !strings.HasPrefix(rest, dctx.conferenceSlug+"-") || longerConference(rest, dctx) {
			continue
		}
		if _, err := time.Parse(isoDate, m[1]); err == nil {
			return m[1], true
		}
	}
	return "", false
}

// longerConference reports whether rest starts with a known conference whose
// slug extends the current one, such as gophercon-eu for gophercon
func longerConference(rest string, dctx dateContext) bool {
	for _, slug := range dctx.knownSlugs {
		if len(slug) > len(dctx.conferenceSlug) &&
			strings.HasPrefix(slug, dctx.conferenceSlug+"-") &&
			strings.HasPrefix(rest, slug+"-") {
			return true
		}
	}
	return false
}

// dateFromTimeElement reads the calendar date of the first parseable
// datetime attribute, as written (no timezone conversion)
func dateFromTimeElement(doc *goquery.Document) (string, bool) {
	date := ""
	doc.Find("time[datetime]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		value := strings.TrimSpace(s.AttrOr("datetime", ""))
		if len(value) < len(isoDate) {
			return true
		}
		if _, err := time.Parse(isoDate, value[:len(isoDate)]); err != nil {
			return true
		}
		date = value[:len(isoDate)]
		return false
	})
	return date, date != ""
}

func dateFromText(text string) (string, bool) {
	for _, p := range bodyDatePatterns {
		for _, m := range p.expr.FindAllStringSubmatch(text, -1) {
			if t, err := time.Parse(p.layout, m[1]); err == nil {
				return t.Format(isoDate), true
			}
		}
	}
	return "", false
}

func conferenceFromPresentationAt(raw string) (string, bool) {
	m := presentationAtPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}

	name := collapseSpace(stripHTML(m[1]))
	if name == "" || len(name) > maxConferenceCapture {
		return "", false
	}
	lower := strings.ToLower(name)
	for _, phrase := range slidePhrases {
		if strings.Contains(lower, phrase) {
			return "", false
		}
	}

	words := strings.Fields(name)
	if len(words) > maxConferenceWords {
		words = words[:maxConferenceWords]
	}
	return strings.Join(words, " "), true
}

func conferenceFromKnownNames(text string, known []string) (string, bool) {
	for _, name := range known {
		if name != "" && strings.Contains(text, name) {
			return name, true
		}
	}
	return "", false
}

// conferenceFromStructuredData inspects JSON-LD blocks for something that
// looks like a presentation. Only a generic name can be derived from it.
func conferenceFromStructuredData(doc *goquery.Document) (string, bool) {
	found := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		data, ok := decodeJSONLD(s.Text())
		if ok && looksLikePresentation(data) {
			found = true
			return false
		}
		return true
	})
	if !found {
		return "", false
	}
	return genericConference, true
}

func decodeJSONLD(raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err == nil {
		return data, true
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &data); err != nil {
		return nil, false
	}
	return data, true
}

func looksLikePresentation(v any) bool {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			if looksLikePresentation(item) {
				return true
			}
		}
	case map[string]any:
		if typeMatches(node["@type"]) {
			return true
		}
		if desc, ok := node["description"].(string); ok && strings.Contains(strings.ToLower(desc), "presentation") {
			return true
		}
		for _, child := range node {
			if looksLikePresentation(child) {
				return true
			}
		}
	}
	return false
}

func typeMatches(v any) bool {
	switch t := v.(type) {
	case string:
		return presentationTypes[strings.ToLower(t)]
	case []any:
		for _, item := range t {
			if typeMatches(item) {
				return true
			}
		}
	}
	return false
}

func conferenceFromPlatform(pageURL string, fallbacks map[string]string) (string, bool) {
	name, ok := fallbacks[hostOf(pageURL)]
	return name, ok && name != ""
}

// stripHTML returns the text content of an HTML fragment
func stripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return doc.Text()
}

// hostOf returns the lowercase host of rawURL without a leading "www."
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}
