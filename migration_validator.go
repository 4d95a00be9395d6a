package main

import (
	"fmt"
	"os"
	"strings"
)

const frontMatterDelimiter = "---"

// MigrationValidator re-reads a written artifact and checks its structure
type MigrationValidator struct{}

// Validate records every structural problem of the artifact at path
func (MigrationValidator) Validate(path string, record *TalkRecord, errs *ErrorLog) error {
	data, err := os.ReadFile(path)
	if err != nil {
		errs.Addf("reading artifact %s: %v", path, err)
		return ErrValidation
	}
	content := string(data)

	if strings.HasPrefix(strings.TrimPrefix(content, "\ufeff"), frontMatterDelimiter) {
		errs.Add("artifact starts with a front-matter block")
	}
	if !hasTopLevelHeading(content) {
		errs.Add("artifact has no top-level heading")
	}
	if !strings.Contains(content, record.Conference) {
		errs.Addf("artifact does not mention conference %q", record.Conference)
	}
	if !strings.Contains(content, record.Date) {
		errs.Addf("artifact does not mention date %s", record.Date)
	}
	if len(record.Resources.Others()) > 0 && !strings.Contains(content, resourcesHeading) {
		errs.Add("artifact is missing its resources section")
	}
	if !strings.Contains(content, fmt.Sprintf("%s%s%s", sourceCommentOpen, record.SourceURL, sourceCommentEnd)) {
		errs.Add("artifact is missing the source_url comment")
	}

	if !errs.Empty() {
		return ErrValidation
	}
	return nil
}

func hasTopLevelHeading(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			return true
		}
	}
	return false
}
