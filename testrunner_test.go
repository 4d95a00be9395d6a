package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandTestRunnerEmptyCommandPasses(t *testing.T) {
	exec := &fakeExecutor{}
	runner := NewCommandTestRunner("   ", discardLogger())
	runner.exec = exec

	assert.True(t, runner.RunTests(context.Background()))
	assert.Empty(t, exec.calls)
}

func TestCommandTestRunner(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"passing", nil, true},
		{"failing", errors.New("exit status 1"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{stdout: "ok\n", err: tt.err}
			runner := NewCommandTestRunner("hugo --quiet && npm test", discardLogger())
			runner.exec = exec

			assert.Equal(t, tt.want, runner.RunTests(context.Background()))
			assert.Equal(t, [][]string{{"sh", "-c", "hugo --quiet && npm test"}}, exec.calls)
		})
	}
}
