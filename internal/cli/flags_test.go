package cli

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mtessler/coxswain/internal/errors"
)

func TestIsValidOutputFormat(t *testing.T) {
	assert.True(t, IsValidOutputFormat(OutputText))
	assert.True(t, IsValidOutputFormat(OutputJSON))
	assert.False(t, IsValidOutputFormat("yaml"))
	assert.False(t, IsValidOutputFormat(""))
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", assert.AnError, ExitError},
		{"invalid output format", errors.ErrInvalidOutputFormat, ExitInvalidInput},
		{"wrapped invalid format", fmt.Errorf("check: %w", errors.ErrInvalidOutputFormat), ExitInvalidInput},
		{"empty value", errors.ErrEmptyValue, ExitInvalidInput},
		{"unknown flag", fmt.Errorf("unknown flag: --bogus"), ExitInvalidInput},
		{"unknown command", fmt.Errorf(`unknown command "frobnicate" for "coxswain"`), ExitInvalidInput},
		{"domain error", errors.ErrWorkflowActive, ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeForError(tt.err))
		})
	}
}
