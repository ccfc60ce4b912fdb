package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtessler/coxswain/internal/errors"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, BuildInfo{})

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootShowsHelp(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "coxswain")
	assert.Contains(t, out, "workflow")
	assert.Contains(t, out, "agent")
}

func TestRootRejectsInvalidOutputFormat(t *testing.T) {
	_, err := executeCommand(t, "--output", "yaml")
	require.ErrorIs(t, err, errors.ErrInvalidOutputFormat)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestRootRejectsVerboseAndQuietTogether(t *testing.T) {
	_, err := executeCommand(t, "--verbose", "--quiet")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestWorkflowCommandsRegistered(t *testing.T) {
	out, err := executeCommand(t, "workflow", "--help")
	require.NoError(t, err)
	for _, sub := range []string{"branch", "diff", "complete", "approve", "reject", "preview", "delete"} {
		assert.Contains(t, out, sub)
	}
}

func TestAgentCommandsRegistered(t *testing.T) {
	out, err := executeCommand(t, "agent", "--help")
	require.NoError(t, err)
	for _, sub := range []string{"create", "changes", "commit", "merge", "cleanup"} {
		assert.Contains(t, out, sub)
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "dev (commit: none, built: unknown)", formatVersion(BuildInfo{}))
	assert.Equal(t, "1.2.3 (commit: abc, built: today)",
		formatVersion(BuildInfo{Version: "1.2.3", Commit: "abc", Date: "today"}))
}
