package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConfigDir = ".talk-migrator"

	outputDirEnv   = "TALK_MIGRATOR_OUTPUT_DIR"
	driveFolderEnv = "TALK_MIGRATOR_DRIVE_FOLDER"
	testCommandEnv = "TALK_MIGRATOR_TEST_COMMAND"
)

//go:embed config/settings.yaml
var defaultSettings string

// FileStoreSettings configures the command-backed file store
type FileStoreSettings struct {
	Folder        string   `yaml:"folder"`
	UploadCommand []string `yaml:"upload_command"`
	ListCommand   []string `yaml:"list_command"`
	DeleteCommand []string `yaml:"delete_command"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	OutputDirectory    string            `yaml:"output_directory"`
	PDFDirectory       string            `yaml:"pdf_directory"`
	ThumbnailDirectory string            `yaml:"thumbnail_directory"`
	AuditDatabase      string            `yaml:"audit_database"`
	HTTPTimeoutSeconds int               `yaml:"http_timeout_seconds"`
	BatchPauseMillis   int               `yaml:"batch_pause_milliseconds"`
	AbstractMinLength  int               `yaml:"abstract_min_length"`
	TitleSlugMaxLength int               `yaml:"title_slug_max_length"`
	TestCommand        string            `yaml:"test_command"`
	FileStore          FileStoreSettings `yaml:"file_store"`
	FileStoreHosts     []string          `yaml:"file_store_hosts"`
	LegacyHosts        []string          `yaml:"legacy_hosts"`
	Speakers           map[string]string `yaml:"speakers"`
	PlatformFallbacks  map[string]string `yaml:"platform_fallbacks"`
	KnownConferences   []string          `yaml:"known_conferences"`
}

// HTTPTimeout returns the per-request timeout
func (s *Settings) HTTPTimeout() time.Duration {
	return time.Duration(s.HTTPTimeoutSeconds) * time.Second
}

// BatchPause returns the pause inserted between talks of a batch
func (s *Settings) BatchPause() time.Duration {
	return time.Duration(s.BatchPauseMillis) * time.Millisecond
}

// Validate checks the settings for values the pipeline cannot run with
func (s *Settings) Validate() error {
	var errs []error
	if s.OutputDirectory == "" {
		errs = append(errs, errors.New("output_directory is required"))
	}
	if s.PDFDirectory == "" {
		errs = append(errs, errors.New("pdf_directory is required"))
	}
	if s.HTTPTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout_seconds must be positive, got %d", s.HTTPTimeoutSeconds))
	}
	if s.BatchPauseMillis < 0 {
		errs = append(errs, fmt.Errorf("batch_pause_milliseconds must not be negative, got %d", s.BatchPauseMillis))
	}
	if len(s.FileStore.UploadCommand) == 0 {
		errs = append(errs, errors.New("file_store.upload_command is required"))
	}
	return errors.Join(errs...)
}

// LoadSettings reads settings from path. An empty path means the default
// location, which falls back to the embedded defaults when missing; an
// explicit path must exist.
func LoadSettings(path string) (*Settings, error) {
	settings, err := parseSettings([]byte(defaultSettings))
	if err != nil {
		return nil, fmt.Errorf("parsing embedded settings: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(defaultConfigDir, "settings.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("parsing settings %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}

	settings.applyEnvOverrides()

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

func parseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *Settings) applyEnvOverrides() {
	if v := os.Getenv(outputDirEnv); v != "" {
		s.OutputDirectory = v
	}
	if v := os.Getenv(driveFolderEnv); v != "" {
		s.FileStore.Folder = v
	}
	if v := os.Getenv(testCommandEnv); v != "" {
		s.TestCommand = v
	}
}

// ensureConfigExists creates the config directory and writes the default
// settings.yaml on first run
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := filepath.Join(defaultConfigDir, "settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
	}
	return nil
}
