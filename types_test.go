package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorLog(t *testing.T) {
	var log ErrorLog
	assert.True(t, log.Empty())

	log.Add("first")
	log.Addf("second %d", 2)

	assert.False(t, log.Empty())
	assert.Equal(t, []string{"first", "second 2"}, log.Messages())

	msgs := log.Messages()
	msgs[0] = "changed"
	assert.Equal(t, "first", log.Messages()[0], "Messages must return a copy")
}

func TestStepErrorWrapsKind(t *testing.T) {
	log := &ErrorLog{}
	log.Add("slides https://noti.st/x.pdf are hosted on a legacy platform")
	err := error(stepFailure("validate-sources", ErrValidation, log))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrFetch))
	assert.Equal(t, "validate-sources: validation failed: slides https://noti.st/x.pdf are hosted on a legacy platform", err.Error())

	wrapped := fmt.Errorf("batch: %w", err)
	var stepErr *StepError
	assert.True(t, errors.As(wrapped, &stepErr))
	assert.Equal(t, "validate-sources", stepErr.Step)
}

func TestStepErrorWithoutMessages(t *testing.T) {
	err := &StepError{Step: "fetch", Kind: ErrFetch}
	assert.Equal(t, "fetch: fetch failed", err.Error())
}

func TestNewStepErrorMapsKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"fetch", ErrFetch, ErrFetch},
		{"wrapped upload", fmt.Errorf("store: %w", ErrUpload), ErrUpload},
		{"write", ErrWrite, ErrWrite},
		{"unknown falls back to validation", errors.New("boom"), ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stepErr := newStepError("step", tt.err, &ErrorLog{})
			assert.Equal(t, tt.want, stepErr.Kind)
			assert.NotEmpty(t, stepErr.Messages, "an empty log gets the error text")
		})
	}
}

func TestMigrationOutcome(t *testing.T) {
	var outcome MigrationOutcome
	assert.True(t, outcome.OK())

	outcome.Record("https://a", true)
	outcome.Record("https://b", false)
	outcome.Record("https://c", true)

	assert.Equal(t, []string{"https://a", "https://c"}, outcome.Succeeded)
	assert.Equal(t, []string{"https://b"}, outcome.Failed)
	assert.Equal(t, 3, outcome.Total())
	assert.False(t, outcome.OK())
}
