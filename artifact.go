package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	resourcesHeading  = "## Resources"
	sourceCommentOpen = "<!-- source_url: "
	sourceCommentEnd  = " -->"
	defaultSlug       = "talk"
)

var (
	slugInvalid    = regexp.MustCompile(`[^a-z0-9]+`)
	sourceURLLine  = regexp.MustCompile(`<!-- source_url: (\S+) -->`)
	artifactPrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-`)
)

// slugify derives a lowercase, hyphen-separated slug from text. Diacritics
// are folded to their base letters. maxLen <= 0 means no cap.
func slugify(text string, maxLen int) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}

	slug := strings.ToLower(folded)
	slug = slugInvalid.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.Trim(slug[:maxLen], "-")
	}

	if slug == "" {
		return defaultSlug
	}
	return slug
}

// ArtifactWriter renders a talk record into its plain-text document
type ArtifactWriter struct {
	outputDir   string
	titleMaxLen int
}

// NewArtifactWriter creates a writer rooted at outputDir
func NewArtifactWriter(outputDir string, titleMaxLen int) *ArtifactWriter {
	return &ArtifactWriter{outputDir: outputDir, titleMaxLen: titleMaxLen}
}

// Path returns the deterministic artifact path for a record
func (w *ArtifactWriter) Path(record *TalkRecord) string {
	name := fmt.Sprintf("%s-%s-%s.md", record.Date, slugify(record.Conference, 0), slugify(record.Title, w.titleMaxLen))
	return filepath.Join(w.outputDir, name)
}

// Render builds the artifact body. The output depends only on the record.
func (w *ArtifactWriter) Render(record *TalkRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", record.Title)
	fmt.Fprintf(&b, "**Conference:** %s\n", record.Conference)
	fmt.Fprintf(&b, "**Date:** %s\n", record.Date)
	if slides, ok := record.Resources.Slides(); ok {
		fmt.Fprintf(&b, "**Slides:** %s\n", slides.URL)
	}
	if video, ok := record.Resources.Video(); ok {
		fmt.Fprintf(&b, "**Video:** %s\n", video.URL)
	}
	b.WriteString("\n")

	if abstract := strings.TrimSpace(record.Abstract); abstract != "" {
		b.WriteString(abstract)
		b.WriteString("\n\n")
	}

	if others := record.Resources.Others(); len(others) > 0 {
		b.WriteString(resourcesHeading)
		b.WriteString("\n\n")
		for _, r := range others {
			fmt.Fprintf(&b, "- [%s](%s)", r.Title, r.URL)
			if r.Description != "" {
				fmt.Fprintf(&b, " — %s", r.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(sourceCommentOpen + record.SourceURL + sourceCommentEnd + "\n")
	return b.String()
}

// Write renders record to its path and returns the path
func (w *ArtifactWriter) Write(record *TalkRecord) (string, error) {
	path := w.Path(record)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(w.Render(record)), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// ArtifactInfo describes an artifact found on disk
type ArtifactInfo struct {
	Path      string
	Date      string
	SourceURL string
}

// ListArtifacts returns every artifact in dir, sorted by file name
func ListArtifacts(dir string) ([]ArtifactInfo, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	infos := make([]ArtifactInfo, 0, len(files))
	for _, file := range files {
		info := ArtifactInfo{Path: file}
		if m := artifactPrefix.FindStringSubmatch(filepath.Base(file)); m != nil {
			info.Date = m[1]
		}
		source, err := readSourceURL(file)
		if err != nil {
			return nil, err
		}
		info.SourceURL = source
		infos = append(infos, info)
	}
	return infos, nil
}

// FindArtifactBySource returns the path of the artifact recording sourceURL,
// or "" when there is none
func FindArtifactBySource(dir, sourceURL string) string {
	infos, err := ListArtifacts(dir)
	if err != nil {
		return ""
	}
	for _, info := range infos {
		if info.SourceURL == sourceURL {
			return info.Path
		}
	}
	return ""
}

func readSourceURL(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	source := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if m := sourceURLLine.FindStringSubmatch(scanner.Text()); m != nil {
			source = m[1]
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return source, nil
}
