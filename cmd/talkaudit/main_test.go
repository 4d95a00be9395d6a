package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := "# Talk\n\n**Conference:** GopherCon\n"
	if source != "" {
		body += "<!-- source_url: " + source + " -->\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestExtractSourceURL(t *testing.T) {
	assert.Equal(t, "https://noti.st/jane/abc123", extractSourceURL("# T\n<!-- source_url: https://noti.st/jane/abc123 -->\n"))
	assert.Empty(t, extractSourceURL("# T\nno marker here\n"))
}

func TestDuplicateGroupsKeepsNewestFirst(t *testing.T) {
	groups := duplicateGroups([]artifact{
		{path: "a/2023-01-01-conf-talk.md", date: "2023-01-01", sourceURL: "https://x/1"},
		{path: "a/2024-05-01-conf-talk.md", date: "2024-05-01", sourceURL: "https://x/1"},
		{path: "a/2024-06-01-other.md", date: "2024-06-01", sourceURL: "https://x/2"},
		{path: "a/untracked.md"},
	})

	require.Len(t, groups, 1)
	files := groups["https://x/1"]
	require.Len(t, files, 2)
	assert.Equal(t, "2024-05-01", files[0].date)
	assert.Equal(t, "2023-01-01", files[1].date)
}

func TestRemoveDuplicates(t *testing.T) {
	dir := t.TempDir()
	older := writeArtifact(t, dir, "2023-01-01-gophercon-talk.md", "https://noti.st/jane/abc123")
	newer := writeArtifact(t, dir, "2024-01-01-gophercon-talk.md", "https://noti.st/jane/abc123")
	single := writeArtifact(t, dir, "2024-02-01-fosdem-other.md", "https://noti.st/jane/def456")

	var out bytes.Buffer
	require.NoError(t, removeDuplicates(strings.NewReader("y\n"), &out, dir))

	assert.NoFileExists(t, older)
	assert.FileExists(t, newer)
	assert.FileExists(t, single)
	assert.Contains(t, out.String(), "KEEP: 2024-01-01-gophercon-talk.md")
	assert.Contains(t, out.String(), "Removed 1 duplicate artifacts")
}

func TestRemoveDuplicatesDeclined(t *testing.T) {
	dir := t.TempDir()
	older := writeArtifact(t, dir, "2023-01-01-gophercon-talk.md", "https://noti.st/jane/abc123")
	writeArtifact(t, dir, "2024-01-01-gophercon-talk.md", "https://noti.st/jane/abc123")

	var out bytes.Buffer
	require.NoError(t, removeDuplicates(strings.NewReader("maybe\nn\n"), &out, dir))

	assert.FileExists(t, older)
	assert.Contains(t, out.String(), "Please enter y or n.")
	assert.Contains(t, out.String(), "SKIP: 2023-01-01-gophercon-talk.md")
}

func TestListArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "2024-01-01-gophercon-talk.md", "https://noti.st/jane/abc123")
	writeArtifact(t, dir, "notes.md", "")

	var out bytes.Buffer
	require.NoError(t, listArtifacts(&out, dir))

	assert.Contains(t, out.String(), "2024-01-01-gophercon-talk.md")
	assert.Contains(t, out.String(), "https://noti.st/jane/abc123")
	assert.Contains(t, out.String(), "(missing)")
	assert.Contains(t, strings.ToLower(out.String()), "2 artifacts")
}
