package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const lockFileName = ".talk-migrator.lock"

// MigrateOptions controls a single-talk run
type MigrateOptions struct {
	RunTests bool
}

// TalkMigrator runs the single-talk pipeline
type TalkMigrator struct {
	outputDir string
	fetcher   *SourceFetcher
	metadata  *MetadataExtractor
	resources *ResourceSectionExtractor
	pdf       *PdfIngestor
	video     *VideoResolver
	sources   *ResourceSourceValidator
	writer    *ArtifactWriter
	checker   MigrationValidator
	tests     TestRunner
	audit     *AuditStore
	console   *Console
	logger    *slog.Logger
}

// NewTalkMigrator wires the pipeline. audit may be nil.
func NewTalkMigrator(settings *Settings, store FileStore, tests TestRunner, audit *AuditStore, console *Console, logger *slog.Logger) *TalkMigrator {
	if console == nil {
		console = NewConsole(io.Discard)
	}
	fetcher := NewSourceFetcher(settings.HTTPTimeout())
	return &TalkMigrator{
		outputDir: settings.OutputDirectory,
		fetcher:   fetcher,
		metadata:  NewMetadataExtractor(settings, logger.With("component", "metadata")),
		resources: NewResourceSectionExtractor(logger.With("component", "resources")),
		pdf:       NewPdfIngestor(fetcher, store, settings, logger.With("component", "pdf")),
		video:     NewVideoResolver(fetcher, logger.With("component", "video")),
		sources:   NewResourceSourceValidator(settings, logger.With("component", "sources")),
		writer:    NewArtifactWriter(settings.OutputDirectory, settings.TitleSlugMaxLength),
		tests:     tests,
		audit:     audit,
		console:   console,
		logger:    logger,
	}
}

type pipelineStep struct {
	name  string
	label string
	run   func(errs *ErrorLog) error
}

// Migrate runs every step for sourceURL and stops at the first failing one,
// returning a *StepError with that step's messages.
func (m *TalkMigrator) Migrate(ctx context.Context, sourceURL string, opts MigrateOptions) (*MigrationReport, error) {
	runID := uuid.NewString()
	started := time.Now()
	logger := m.logger.With("run_id", runID, "url", sourceURL)

	record := NewTalkRecord(sourceURL)
	var (
		page         *Page
		artifactPath string
	)

	steps := []pipelineStep{
		{"fetch", "Fetching page", func(errs *ErrorLog) error {
			p, err := m.fetcher.Fetch(ctx, sourceURL)
			if err != nil {
				errs.Add(err.Error())
				var parseErr *ParseError
				if errors.As(err, &parseErr) {
					return ErrParse
				}
				return ErrFetch
			}
			page = p
			return nil
		}},
		{"metadata", "Extracting metadata", func(errs *ErrorLog) error {
			return m.metadata.Extract(page, record, errs)
		}},
		{"resources", "Extracting resources", func(errs *ErrorLog) error {
			n := m.resources.Extract(page.Doc, record.Resources)
			logger.Debug("resources extracted", "count", n)
			return nil
		}},
		{"pdf", "Publishing slides", func(errs *ErrorLog) error {
			return m.pdf.Ingest(ctx, page, record, errs)
		}},
		{"video", "Resolving video", func(errs *ErrorLog) error {
			m.video.Resolve(ctx, page, record)
			record.Resources.PromoteHeads()
			return nil
		}},
		{"validate-sources", "Validating resource sources", func(errs *ErrorLog) error {
			return m.sources.Validate(record.Resources.Items(), errs)
		}},
		{"write", "Writing artifact", func(errs *ErrorLog) error {
			path, err := m.write(record)
			if err != nil {
				errs.Add(err.Error())
				return ErrWrite
			}
			artifactPath = path
			return nil
		}},
		{"validate-artifact", "Validating artifact", func(errs *ErrorLog) error {
			return m.checker.Validate(artifactPath, record, errs)
		}},
	}

	for _, step := range steps {
		m.console.Step("%s", step.label)
		errs := &ErrorLog{}
		if err := step.run(errs); err != nil {
			stepErr := newStepError(step.name, err, errs)
			logger.Error("migration failed", "step", step.name, "error", stepErr)
			m.recordAudit(ctx, AuditEntry{
				RunID:     runID,
				SourceURL: sourceURL,
				Status:    "failed",
				Step:      step.name,
				Errors:    stepErr.Messages,
				StartedAt: started,
			})
			return nil, stepErr
		}
	}

	report := &MigrationReport{
		RunID:        runID,
		SourceURL:    sourceURL,
		ArtifactPath: artifactPath,
		Status:       record.Status,
		Record:       record,
	}
	logger.Info("talk migrated", "artifact", artifactPath, "status", record.Status)
	m.recordAudit(ctx, AuditEntry{
		RunID:        runID,
		SourceURL:    sourceURL,
		Status:       string(record.Status),
		ArtifactPath: artifactPath,
		StartedAt:    started,
	})

	if opts.RunTests {
		m.console.Step("Running tests")
		passed := m.tests.RunTests(ctx)
		report.TestsPassed = &passed
	}
	return report, nil
}

// write holds the output directory lock while the artifact is written, so
// two runs never write the same deterministic path at once
func (m *TalkMigrator) write(record *TalkRecord) (string, error) {
	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	lock := flock.New(filepath.Join(m.outputDir, lockFileName))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("acquire output lock: %w", err)
	}
	defer lock.Unlock()

	previous := FindArtifactBySource(m.outputDir, record.SourceURL)
	path, err := m.writer.Write(record)
	if err != nil {
		return "", err
	}
	if previous != "" && previous != path {
		m.logger.Warn("source was migrated before under another name", "previous", previous, "artifact", path)
	}
	return path, nil
}

func (m *TalkMigrator) recordAudit(ctx context.Context, entry AuditEntry) {
	if m.audit == nil {
		return
	}
	entry.FinishedAt = time.Now()
	if err := m.audit.Record(ctx, entry); err != nil {
		m.logger.Warn("failed to record audit entry", "error", err)
	}
}

// newStepError maps a step's error onto the error taxonomy
func newStepError(step string, err error, errs *ErrorLog) *StepError {
	kind := ErrValidation
	for _, k := range []error{ErrFetch, ErrParse, ErrExtraction, ErrUpload, ErrValidation, ErrWrite} {
		if errors.Is(err, k) {
			kind = k
			break
		}
	}
	if errs.Empty() {
		errs.Add(err.Error())
	}
	return stepFailure(step, kind, errs)
}
