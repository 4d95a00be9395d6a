package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Talk pages live at /<speaker>/<short id>[/<slug>]
var talkPathPattern = regexp.MustCompile(`^/[^/]+/[A-Za-z0-9]{4,10}(?:/[A-Za-z0-9-]+)?/?$`)

var genericPageSegments = map[string]bool{
	"about":         true,
	"contact":       true,
	"events":        true,
	"videos":        true,
	"presentations": true,
	"speakers":      true,
	"login":         true,
	"signup":        true,
}

// Migrator runs one talk migration
type Migrator interface {
	Migrate(ctx context.Context, sourceURL string, opts MigrateOptions) (*MigrationReport, error)
}

// BatchResult is the outcome of a speaker batch
type BatchResult struct {
	Outcome     MigrationOutcome
	TestsPassed bool
}

// OK reports whether every talk migrated and the tests passed
func (r *BatchResult) OK() bool {
	return r.Outcome.OK() && r.TestsPassed
}

// SpeakerBatch migrates every talk listed on a speaker's profile page
type SpeakerBatch struct {
	fetcher  *SourceFetcher
	migrator Migrator
	tests    TestRunner
	pause    time.Duration
	console  *Console
	logger   *slog.Logger
	sleep    func(time.Duration)
}

// NewSpeakerBatch creates a batch orchestrator
func NewSpeakerBatch(fetcher *SourceFetcher, migrator Migrator, tests TestRunner, pause time.Duration, console *Console, logger *slog.Logger) *SpeakerBatch {
	if console == nil {
		console = NewConsole(io.Discard)
	}
	return &SpeakerBatch{
		fetcher:  fetcher,
		migrator: migrator,
		tests:    tests,
		pause:    pause,
		console:  console,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Run discovers the speaker's talks and migrates each one. A failing talk
// does not stop the others; the tests run once at the end.
func (b *SpeakerBatch) Run(ctx context.Context, profileURL string) (*BatchResult, error) {
	page, err := b.fetcher.Fetch(ctx, profileURL)
	if err != nil {
		return nil, fmt.Errorf("fetching speaker profile: %w", err)
	}

	talks := DiscoverTalkURLs(page)
	b.logger.Info("discovered talks", "profile", profileURL, "count", len(talks))

	result := &BatchResult{}
	for i, talkURL := range talks {
		if i > 0 && b.pause > 0 {
			b.sleep(b.pause)
		}

		b.console.Println(fmt.Sprintf("[%d/%d] %s", i+1, len(talks), talkURL))
		report, err := b.migrator.Migrate(ctx, talkURL, MigrateOptions{RunTests: false})
		if err != nil {
			b.console.Failure("Failed %s: %v", talkURL, err)
			result.Outcome.Record(talkURL, false)
			continue
		}
		b.console.Success("Generated: %s", report.ArtifactPath)
		result.Outcome.Record(talkURL, true)
	}

	b.console.Step("Running tests")
	result.TestsPassed = b.tests.RunTests(ctx)
	return result, nil
}

// DiscoverTalkURLs returns the talk pages linked from a profile page, in
// order of first appearance
func DiscoverTalkURLs(page *Page) []string {
	base, err := url.Parse(page.URL)
	if err != nil {
		return nil
	}
	profile := normalizeTalkURL(base)

	var talks []string
	seen := map[string]bool{}
	page.Doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		ref, err := url.Parse(strings.TrimSpace(a.AttrOr("href", "")))
		if err != nil {
			return
		}
		u := base.ResolveReference(ref)
		if !strings.EqualFold(u.Host, base.Host) {
			return
		}

		candidate := normalizeTalkURL(u)
		if candidate == profile || seen[candidate] || !isTalkPath(u.Path) {
			return
		}
		seen[candidate] = true
		talks = append(talks, candidate)
	})
	return talks
}

func isTalkPath(path string) bool {
	if !talkPathPattern.MatchString(path) {
		return false
	}
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		lower := strings.ToLower(segment)
		if genericPageSegments[lower] || lower == "video" {
			return false
		}
	}
	return true
}

// normalizeTalkURL drops query, fragment and trailing slash
func normalizeTalkURL(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	clean.Fragment = ""
	clean.Path = strings.TrimRight(clean.Path, "/")
	return clean.String()
}

// RenderOutcome renders the batch summary table followed by both URL lists
func RenderOutcome(result *BatchResult) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Talks", "Succeeded", "Failed", "Tests"})
	tests := "passed"
	if !result.TestsPassed {
		tests = "failed"
	}
	tw.AppendRow(table.Row{result.Outcome.Total(), len(result.Outcome.Succeeded), len(result.Outcome.Failed), tests})

	var b strings.Builder
	b.WriteString(tw.Render())
	b.WriteString("\n")
	writeURLList(&b, "Succeeded", result.Outcome.Succeeded)
	writeURLList(&b, "Failed", result.Outcome.Failed)
	return b.String()
}

func writeURLList(b *strings.Builder, title string, urls []string) {
	fmt.Fprintf(b, "\n%s (%d):\n", title, len(urls))
	for _, u := range urls {
		fmt.Fprintf(b, "  - %s\n", u)
	}
}
