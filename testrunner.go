package main

import (
	"context"
	"log/slog"
	"strings"
)

// TestRunner runs the site's regression tests after artifacts are written.
// Its result never changes files already written.
type TestRunner interface {
	RunTests(ctx context.Context) bool
}

// CommandTestRunner runs a shell command; an empty command is a no-op pass
type CommandTestRunner struct {
	command string
	exec    Executor
	logger  *slog.Logger
}

// NewCommandTestRunner creates a runner for command
func NewCommandTestRunner(command string, logger *slog.Logger) *CommandTestRunner {
	return &CommandTestRunner{command: strings.TrimSpace(command), exec: commandExecutor{}, logger: logger}
}

// RunTests reports whether the command exited successfully
func (r *CommandTestRunner) RunTests(ctx context.Context) bool {
	if r.command == "" {
		r.logger.Info("no test command configured, skipping tests")
		return true
	}

	r.logger.Info("running tests", "command", r.command)
	out, err := r.exec.Run(ctx, []string{"sh", "-c", r.command})
	if err != nil {
		r.logger.Error("tests failed", "error", err, "output", lastLine(out))
		return false
	}
	return true
}
