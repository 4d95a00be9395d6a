package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// FileStore is the cloud file store the slides are published to
type FileStore interface {
	// Upload places localPath in folder and returns a public URL for it
	Upload(ctx context.Context, localPath, folder string) (string, error)
	List(ctx context.Context, folder string) ([]string, error)
	Delete(ctx context.Context, fileID string) error
}

// Executor abstracts command execution for testability
type Executor interface {
	Run(ctx context.Context, argv []string) (stdout string, err error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("empty command")
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.String(), fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return stdout.String(), fmt.Errorf("%s: %w", argv[0], err)
	}
	return stdout.String(), nil
}

// CommandFileStoreOption configures a CommandFileStore
type CommandFileStoreOption func(*CommandFileStore)

// WithExecutor injects a custom executor (primarily for tests)
func WithExecutor(exec Executor) CommandFileStoreOption {
	return func(s *CommandFileStore) {
		if exec != nil {
			s.exec = exec
		}
	}
}

// CommandFileStore drives an external file store CLI. Command templates may
// use the {path}, {folder} and {id} placeholders.
type CommandFileStore struct {
	upload []string
	list   []string
	delete []string
	exec   Executor
}

// NewCommandFileStore creates a store from settings
func NewCommandFileStore(settings FileStoreSettings, opts ...CommandFileStoreOption) (*CommandFileStore, error) {
	if len(settings.UploadCommand) == 0 {
		return nil, errors.New("file store upload command required")
	}
	store := &CommandFileStore{
		upload: settings.UploadCommand,
		list:   settings.ListCommand,
		delete: settings.DeleteCommand,
		exec:   commandExecutor{},
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Upload runs the upload command. The last non-empty line of its output
// must be the public URL.
func (s *CommandFileStore) Upload(ctx context.Context, localPath, folder string) (string, error) {
	out, err := s.exec.Run(ctx, expandCommand(s.upload, map[string]string{"{path}": localPath, "{folder}": folder}))
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", localPath, err)
	}

	publicURL := lastLine(out)
	if !strings.HasPrefix(publicURL, "http://") && !strings.HasPrefix(publicURL, "https://") {
		return "", fmt.Errorf("uploading %s: no public URL in output %q", localPath, publicURL)
	}
	return publicURL, nil
}

// List returns the file ids in folder, one per output line (first field)
func (s *CommandFileStore) List(ctx context.Context, folder string) ([]string, error) {
	if len(s.list) == 0 {
		return nil, errors.New("file store list command not configured")
	}
	out, err := s.exec.Run(ctx, expandCommand(s.list, map[string]string{"{folder}": folder}))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", folder, err)
	}

	var ids []string
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			ids = append(ids, fields[0])
		}
	}
	return ids, nil
}

// Delete removes a file by id
func (s *CommandFileStore) Delete(ctx context.Context, fileID string) error {
	if len(s.delete) == 0 {
		return errors.New("file store delete command not configured")
	}
	if _, err := s.exec.Run(ctx, expandCommand(s.delete, map[string]string{"{id}": fileID})); err != nil {
		return fmt.Errorf("deleting %s: %w", fileID, err)
	}
	return nil
}

func expandCommand(template []string, values map[string]string) []string {
	argv := make([]string, len(template))
	for i, arg := range template {
		for placeholder, value := range values {
			arg = strings.ReplaceAll(arg, placeholder, value)
		}
		argv[i] = arg
	}
	return argv
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
