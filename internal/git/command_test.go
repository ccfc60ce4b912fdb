package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coxerrors "github.com/mtessler/coxswain/internal/errors"
)

// setupTestRepo initializes a temporary git repository for testing.
// This helper is used throughout the git package tests.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	runGit(t, dir, "init", "--initial-branch=main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")

	return dir
}

// runGit executes a git command in dir, failing the test on error.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.CommandContext(context.Background(), "git", args...) //#nosec G204 -- test code with safe inputs
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
	return string(out)
}

// createFile writes a file in the repository.
func createFile(t *testing.T, repoPath, filename, content string) {
	t.Helper()
	path := filepath.Join(repoPath, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// commitAll stages and commits all changes, returning the commit id.
func commitAll(t *testing.T, repoPath, message string) string {
	t.Helper()
	runGit(t, repoPath, "add", "-A")
	runGit(t, repoPath, "commit", "-m", message)
	out := runGit(t, repoPath, "rev-parse", "HEAD")
	return out[:40]
}

func TestRunCommandSuccess(t *testing.T) {
	dir := setupTestRepo(t)
	ctx := context.Background()

	output, err := RunCommand(ctx, dir, "rev-parse", "--git-dir")

	require.NoError(t, err)
	assert.Equal(t, ".git", output)
}

func TestRunCommandFailureIncludesStderr(t *testing.T) {
	dir := setupTestRepo(t)
	ctx := context.Background()

	_, err := RunCommand(ctx, dir, "show", "nonexistent-commit-hash")

	require.Error(t, err)
	require.ErrorIs(t, err, coxerrors.ErrGitOperation)
	assert.Contains(t, err.Error(), "git show failed")
}

func TestRunCommandCanceledContext(t *testing.T) {
	dir := setupTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunCommand(ctx, dir, "status")

	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeBranchName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple lowercase", input: "fix-login", want: "fix-login"},
		{name: "uppercase and spaces", input: "Fix Login Bug", want: "fix-login-bug"},
		{name: "special characters", input: "agent@01!", want: "agent-01"},
		{name: "consecutive separators", input: "a -- b", want: "a-b"},
		{name: "leading and trailing junk", input: "--hello--", want: "hello"},
		{name: "empty", input: "", want: ""},
		{name: "only special characters", input: "!!!", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeBranchName(tt.input))
		})
	}
}

func TestGenerateBranchName(t *testing.T) {
	assert.Equal(t, "agent-backend-01", GenerateBranchName("agent-", "Backend 01"))
	assert.Equal(t, "workflow-unnamed", GenerateBranchName("workflow-", "!!!"))
}
