package main

import (
	"errors"
	"fmt"
	"strings"
)

// ResourceType is the semantic kind of a talk resource
type ResourceType string

const (
	ResourceSlides ResourceType = "slides"
	ResourceVideo  ResourceType = "video"
	ResourceCode   ResourceType = "code"
	ResourceLink   ResourceType = "link"
)

// Resource is a single link attached to a talk
type Resource struct {
	Type        ResourceType
	Title       string
	URL         string
	Description string
}

// TalkStatus represents whether a talk already has a video
type TalkStatus string

const (
	StatusCompleted    TalkStatus = "completed"
	StatusVideoPending TalkStatus = "video-pending"
)

// TalkRecord is the in-memory state of one migration. It is created empty at
// the start of a run, filled by each step and folded into the artifact.
type TalkRecord struct {
	Title      string
	Date       string // YYYY-MM-DD
	Conference string
	Speaker    string
	Abstract   string
	SourceURL  string
	Status     TalkStatus
	Resources  *ResourceList
}

// NewTalkRecord creates an empty record for sourceURL
func NewTalkRecord(sourceURL string) *TalkRecord {
	return &TalkRecord{
		SourceURL: sourceURL,
		Resources: NewResourceList(),
	}
}

// MigrationReport describes a successful single-talk run
type MigrationReport struct {
	RunID        string
	SourceURL    string
	ArtifactPath string
	Status       TalkStatus
	Record       *TalkRecord
	TestsPassed  *bool
}

// MigrationOutcome aggregates the per-talk results of a batch run
type MigrationOutcome struct {
	Succeeded []string
	Failed    []string
}

// Record appends url to the succeeded or failed list
func (o *MigrationOutcome) Record(url string, ok bool) {
	if ok {
		o.Succeeded = append(o.Succeeded, url)
		return
	}
	o.Failed = append(o.Failed, url)
}

// OK reports whether every talk in the batch succeeded
func (o *MigrationOutcome) OK() bool {
	return len(o.Failed) == 0
}

// Total returns the number of talks attempted
func (o *MigrationOutcome) Total() int {
	return len(o.Succeeded) + len(o.Failed)
}

// Error kinds. Every step failure wraps exactly one of these.
var (
	ErrFetch      = errors.New("fetch failed")
	ErrParse      = errors.New("parse failed")
	ErrExtraction = errors.New("extraction failed")
	ErrUpload     = errors.New("upload failed")
	ErrValidation = errors.New("validation failed")
	ErrWrite      = errors.New("write failed")
)

// ErrorLog collects the failure messages of a single step
type ErrorLog struct {
	messages []string
}

// Add records a message
func (l *ErrorLog) Add(msg string) {
	l.messages = append(l.messages, msg)
}

// Addf records a formatted message
func (l *ErrorLog) Addf(format string, args ...any) {
	l.Add(fmt.Sprintf(format, args...))
}

// Messages returns the recorded messages in order
func (l *ErrorLog) Messages() []string {
	out := make([]string, len(l.messages))
	copy(out, l.messages)
	return out
}

// Empty reports whether no message was recorded
func (l *ErrorLog) Empty() bool {
	return len(l.messages) == 0
}

// StepError is returned by the orchestrator when a step fails
type StepError struct {
	Step     string
	Kind     error
	Messages []string
}

func (e *StepError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("%s: %v", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Step, e.Kind, strings.Join(e.Messages, "; "))
}

func (e *StepError) Unwrap() error {
	return e.Kind
}

// stepFailure builds a StepError from an error log
func stepFailure(step string, kind error, log *ErrorLog) *StepError {
	return &StepError{Step: step, Kind: kind, Messages: log.Messages()}
}
