package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractFrom(t *testing.T, settings *Settings, pageURL, html string) (*TalkRecord, *ErrorLog, error) {
	t.Helper()
	record := NewTalkRecord(pageURL)
	errs := &ErrorLog{}
	err := NewMetadataExtractor(settings, discardLogger()).Extract(newTestPage(t, pageURL, html), record, errs)
	return record, errs, err
}

func TestExtractMetadata(t *testing.T) {
	settings := testSettings(t)
	settings.Speakers = map[string]string{"noti.st": "Jane Doe"}

	record, errs, err := extractFrom(t, settings, "https://noti.st/jane/abc123", `<html><body>
		<h1>  Concurrency   Patterns </h1>
		<p>A presentation at <a href="https://gophercon.eu">GopherCon EU</a> in June 2025 in Berlin</p>
		<time datetime="2025-06-20T08:00:00+02:00">20 June 2025</time>
		<p>Short intro.</p>
		<p>Go makes concurrency approachable, but <strong>channels</strong> alone do not make programs correct. This talk walks through patterns that hold up in production.</p>
	</body></html>`)

	require.NoError(t, err)
	assert.True(t, errs.Empty())
	assert.Equal(t, "Concurrency Patterns", record.Title)
	assert.Equal(t, "GopherCon EU", record.Conference)
	assert.Equal(t, "2025-06-20", record.Date, "datetime keeps its calendar date without timezone conversion")
	assert.Equal(t, "Jane Doe", record.Speaker)
	assert.Contains(t, record.Abstract, "**channels**")
	assert.NotContains(t, record.Abstract, "Short intro")
}

func TestExtractMetadataMissingTitle(t *testing.T) {
	record, errs, err := extractFrom(t, testSettings(t), "https://noti.st/jane/abc123",
		`<html><body><h2>Not a title</h2><time datetime="2025-06-20">x</time></body></html>`)

	assert.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, []string{"no top-level heading found for title"}, errs.Messages())
	assert.Empty(t, record.Date, "extraction stops at the first missing field")
}

func TestExtractMetadataMissingDate(t *testing.T) {
	_, errs, err := extractFrom(t, testSettings(t), "https://noti.st/jane/abc123",
		`<html><body><h1>Talk</h1><p>Given at FOSDEM.</p></body></html>`)

	assert.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, []string{"could not determine talk date"}, errs.Messages())
}

func TestExtractMetadataMissingConference(t *testing.T) {
	record, errs, err := extractFrom(t, testSettings(t), "https://talks.example/jane/abc123",
		`<html><body><h1>Talk</h1><p>Held on March 3, 2024.</p></body></html>`)

	assert.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, []string{"could not determine conference name"}, errs.Messages())
	assert.Equal(t, "2024-03-03", record.Date)
}

func TestExtractMetadataDefaults(t *testing.T) {
	record, _, err := extractFrom(t, testSettings(t), "https://speakerdeck.com/jane/talk",
		`<html><body><h1>Talk</h1><p>2024-02-01</p></body></html>`)

	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", record.Date, "a date right after the heading is found")
	assert.Equal(t, unknownSpeaker, record.Speaker)
	assert.Empty(t, record.Abstract)
	assert.Equal(t, "Speaker Deck Presentation", record.Conference)
}

func TestDateFromExistingArtifacts(t *testing.T) {
	settings := testSettings(t)
	require.NoError(t, os.MkdirAll(settings.OutputDirectory, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(settings.OutputDirectory, "2023-11-02-gophercon-earlier-talk.md"), []byte("# Earlier\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(settings.OutputDirectory, "2022-01-01-fosdem-other.md"), []byte("# Other\n"), 0644))

	record, _, err := extractFrom(t, settings, "https://noti.st/jane/abc123", `<html><body>
		<h1>Later Talk</h1>
		<p>A presentation at GopherCon in Denver by Jane</p>
		<time datetime="2024-07-08">8 July 2024</time>
	</body></html>`)

	require.NoError(t, err)
	assert.Equal(t, "GopherCon", record.Conference)
	assert.Equal(t, "2023-11-02", record.Date, "an earlier artifact of the conference wins over page dates")
}

func TestExtractMetadataDateAfterHeading(t *testing.T) {
	record, errs, err := extractFrom(t, testSettings(t), "https://noti.st/jane/abc123",
		`<html><body><h1>Talk</h1><p>June 20, 2025</p><p>A presentation at FOSDEM in Brussels</p></body></html>`)

	require.NoError(t, err)
	assert.True(t, errs.Empty())
	assert.Equal(t, "2025-06-20", record.Date)
}

func TestDateFromExistingArtifactsIgnoresLongerConference(t *testing.T) {
	settings := testSettings(t)
	require.NoError(t, os.MkdirAll(settings.OutputDirectory, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(settings.OutputDirectory, "2024-06-17-gophercon-eu-old-talk.md"), []byte("# Old\n"), 0644))

	record, _, err := extractFrom(t, settings, "https://noti.st/jane/abc123", `<html><body>
		<h1>New Talk</h1>
		<p>A presentation at GopherCon in Denver by Jane</p>
		<time datetime="2025-11-10">10 November 2025</time>
	</body></html>`)

	require.NoError(t, err)
	assert.Equal(t, "GopherCon", record.Conference)
	assert.Equal(t, "2025-11-10", record.Date, "a GopherCon EU artifact is not a GopherCon artifact")
}

func TestDateFromText(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"Presented 2024-05-17 in Oslo", "2024-05-17", true},
		{"Presented on June 5, 2024", "2024-06-05", true},
		{"Presented on Sep 9, 2023", "2023-09-09", true},
		{"Presented on 12 October 2022", "2022-10-12", true},
		{"Presented on 1 Feb 2021", "2021-02-01", true},
		{"Presented 2024-13-45, then June 5, 2024", "2024-06-05", true},
		{"Talk2024-02-01", "2024-02-01", true},
		{"TalkJune 20, 2025", "2025-06-20", true},
		{"Build 12024-02-01", "", false},
		{"No date here", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := dateFromText(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateFromTimeElement(t *testing.T) {
	page := newTestPage(t, "https://noti.st/x", `<html><body>
		<time datetime="soon">soon</time>
		<time datetime="2025-06-20T08:00:00+02:00">x</time>
	</body></html>`)

	date, ok := dateFromTimeElement(page.Doc)
	assert.True(t, ok)
	assert.Equal(t, "2025-06-20", date)
}

func TestConferenceFromPresentationAt(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"plain", "A presentation at FOSDEM in February 2024 in Brussels", "FOSDEM", true},
		{"linked", `A presentation at <a href="https://x">KubeCon</a> in Paris`, "KubeCon", true},
		{"truncated to six words", "A presentation at The Very Long Annual International Go Developers Summit in Berlin", "The Very Long Annual International Go", true},
		{"slide content", "A presentation at slide 3 of the deck in Paris", "", false},
		{"missing", "Nothing to see", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := conferenceFromPresentationAt(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConferenceFromKnownNames(t *testing.T) {
	known := []string{"GopherCon EU", "GopherCon", "FOSDEM"}

	name, ok := conferenceFromKnownNames("Recorded at GopherCon EU 2024", known)
	assert.True(t, ok)
	assert.Equal(t, "GopherCon EU", name, "list order decides")

	_, ok = conferenceFromKnownNames("Recorded at a meetup", known)
	assert.False(t, ok)
}

func TestConferenceFromStructuredData(t *testing.T) {
	tests := []struct {
		name string
		html string
		ok   bool
	}{
		{"presentation type", `<script type="application/ld+json">{"@type": "PresentationDigitalDocument", "name": "Talk"}</script>`, true},
		{"nested event", `<script type="application/ld+json">{"@graph": [{"@type": "Person"}, {"@type": ["Thing", "Event"]}]}</script>`, true},
		{"description mentions presentation", `<script type="application/ld+json">{"@type": "WebPage", "description": "A Presentation by Jane"}</script>`, true},
		{"broken JSON is repaired", `<script type="application/ld+json">{"@type": "PresentationDigitalDocument", "name": "Talk",}</script>`, true},
		{"unrelated", `<script type="application/ld+json">{"@type": "Person", "name": "Jane"}</script>`, false},
		{"none", `<p>nothing</p>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newTestPage(t, "https://x.example", "<html><head>"+tt.html+"</head><body></body></html>")
			name, ok := conferenceFromStructuredData(page.Doc)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, genericConference, name)
			}
		})
	}
}

func TestConferenceFromPlatform(t *testing.T) {
	fallbacks := map[string]string{"noti.st": "Notist Presentation"}

	name, ok := conferenceFromPlatform("https://www.noti.st/jane/abc", fallbacks)
	assert.True(t, ok)
	assert.Equal(t, "Notist Presentation", name)

	_, ok = conferenceFromPlatform("https://other.example/jane", fallbacks)
	assert.False(t, ok)
}
