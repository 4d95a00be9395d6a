package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	settings, err := LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, "talks", settings.OutputDirectory)
	assert.Equal(t, 30*time.Second, settings.HTTPTimeout())
	assert.Equal(t, time.Second, settings.BatchPause())
	assert.Equal(t, 50, settings.TitleSlugMaxLength)
	assert.Equal(t, "talk-slides", settings.FileStore.Folder)
	assert.Contains(t, settings.FileStoreHosts, "drive.google.com")
	assert.Contains(t, settings.LegacyHosts, "notist.cloud")
	assert.Equal(t, "Speaker Deck Presentation", settings.PlatformFallbacks["speakerdeck.com"])
}

func TestLoadSettingsOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_directory: site/talks\nhttp_timeout_seconds: 10\nspeakers:\n  talks.example: Jane Doe\n"), 0644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "site/talks", settings.OutputDirectory)
	assert.Equal(t, 10*time.Second, settings.HTTPTimeout())
	assert.Equal(t, "Jane Doe", settings.Speakers["talks.example"])
	assert.Equal(t, ".talk-migrator/pdfs", settings.PDFDirectory, "unset keys keep their defaults")
}

func TestLoadSettingsEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(outputDirEnv, "env/talks")
	t.Setenv(driveFolderEnv, "env-folder")
	t.Setenv(testCommandEnv, "make test")

	settings, err := LoadSettings("")
	require.NoError(t, err)

	assert.Equal(t, "env/talks", settings.OutputDirectory)
	assert.Equal(t, "env-folder", settings.FileStore.Folder)
	assert.Equal(t, "make test", settings.TestCommand)
}

func TestLoadSettingsExplicitMissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadSettingsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_timeout_seconds: 0\nbatch_pause_milliseconds: -1\n"), 0644))

	_, err := LoadSettings(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http_timeout_seconds must be positive")
	assert.Contains(t, err.Error(), "batch_pause_milliseconds must not be negative")
}

func TestLoadSettingsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_directory: [unterminated\n"), 0644))

	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestEnsureConfigExists(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, ensureConfigExists())
	data, err := os.ReadFile(filepath.Join(defaultConfigDir, "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultSettings, string(data))

	custom := []byte("output_directory: mine\n")
	require.NoError(t, os.WriteFile(filepath.Join(defaultConfigDir, "settings.yaml"), custom, 0644))
	require.NoError(t, ensureConfigExists())
	data, err = os.ReadFile(filepath.Join(defaultConfigDir, "settings.yaml"))
	require.NoError(t, err)
	assert.Equal(t, string(custom), string(data), "an existing file is never overwritten")
}
