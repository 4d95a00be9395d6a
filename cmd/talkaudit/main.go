package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	sourceURLComment = regexp.MustCompile(`<!-- source_url: (\S+) -->`)
	datePrefix       = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-`)
)

type artifact struct {
	path      string
	date      string
	sourceURL string
}

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: talkaudit <list|duplicates> <talks-directory>")
	}

	command := os.Args[1]
	talksDir := os.Args[2]

	switch command {
	case "list":
		if err := listArtifacts(os.Stdout, talksDir); err != nil {
			log.Fatal(err)
		}
	case "duplicates":
		if err := removeDuplicates(os.Stdin, os.Stdout, talksDir); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Unknown command %q", command)
	}
}

func collectArtifacts(talksDir string) ([]artifact, error) {
	var artifacts []artifact
	err := filepath.WalkDir(talksDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Continue on errors
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Error reading %s: %v", path, err)
			return nil
		}
		a := artifact{path: path, sourceURL: extractSourceURL(string(content))}
		if m := datePrefix.FindStringSubmatch(filepath.Base(path)); m != nil {
			a.date = m[1]
		}
		artifacts = append(artifacts, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}
	return artifacts, nil
}

func extractSourceURL(content string) string {
	matches := sourceURLComment.FindStringSubmatch(content)
	if len(matches) >= 2 {
		return matches[1]
	}
	return ""
}

func listArtifacts(out io.Writer, talksDir string) error {
	artifacts, err := collectArtifacts(talksDir)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Date", "Artifact", "Source"})
	for _, a := range artifacts {
		source := a.sourceURL
		if source == "" {
			source = "(missing)"
		}
		tw.AppendRow(table.Row{a.date, filepath.Base(a.path), source})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d artifacts", len(artifacts)), ""})
	tw.Render()
	return nil
}

// duplicateGroups returns the artifacts sharing a source URL, newest first
func duplicateGroups(artifacts []artifact) map[string][]artifact {
	bySource := make(map[string][]artifact)
	for _, a := range artifacts {
		if a.sourceURL == "" {
			continue
		}
		bySource[a.sourceURL] = append(bySource[a.sourceURL], a)
	}

	groups := make(map[string][]artifact)
	for source, files := range bySource {
		if len(files) <= 1 {
			continue
		}
		sort.SliceStable(files, func(i, j int) bool {
			if files[i].date != files[j].date {
				return files[i].date > files[j].date
			}
			return files[i].path < files[j].path
		})
		groups[source] = files
	}
	return groups
}

func removeDuplicates(in io.Reader, out io.Writer, talksDir string) error {
	artifacts, err := collectArtifacts(talksDir)
	if err != nil {
		return err
	}
	groups := duplicateGroups(artifacts)

	sources := make([]string, 0, len(groups))
	for source := range groups {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	reader := bufio.NewReader(in)
	totalRemoved := 0
	for _, source := range sources {
		files := groups[source]
		fmt.Fprintf(out, "\nFound %d artifacts for %s:\n", len(files), source)
		for i, file := range files {
			fileName := filepath.Base(file.path)
			if i == 0 {
				fmt.Fprintf(out, "  KEEP: %s\n", fileName)
				continue
			}

			if confirmDelete(reader, out, file.path) {
				if err := os.Remove(file.path); err != nil {
					log.Printf("Error removing %s: %v", file.path, err)
				} else {
					totalRemoved++
					fmt.Fprintf(out, "  REMOVED: %s\n", fileName)
				}
			} else {
				fmt.Fprintf(out, "  SKIP: %s\n", fileName)
			}
		}
	}

	fmt.Fprintf(out, "\nRemoved %d duplicate artifacts\n", totalRemoved)
	return nil
}

func confirmDelete(reader *bufio.Reader, out io.Writer, path string) bool {
	for {
		fmt.Fprintf(out, "  DELETE %s? [y/N]: ", filepath.Base(path))
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			if err != nil {
				return false
			}
			fmt.Fprintln(out, "  Please enter y or n.")
		}
	}
}
