package worktree

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtessler/coxswain/internal/config"
	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/domain"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
	"github.com/mtessler/coxswain/internal/git"
	"github.com/mtessler/coxswain/internal/store"
)

// newTestRepo initializes a git repository with an initial commit on main.
func newTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	runGit(t, dir, "init", "--initial-branch=main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")
	writeFile(t, dir, "README.md", "# Test\n")
	runGit(t, dir, "add", "-A")
	runGit(t, dir, "commit", "-m", "initial commit")

	return dir
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.CommandContext(context.Background(), "git", args...) //#nosec G204 -- test code with safe inputs
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Store, string) {
	t.Helper()

	repo := newTestRepo(t)
	s, err := store.Open(store.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cfg := config.DefaultConfig()
	cfg.Git.RepoPath = repo
	cfg.Worktree.BasePath = filepath.Join(t.TempDir(), "worktrees")

	coord, err := NewCoordinator(context.Background(), s, cfg, NewAgentLocks(), zerolog.Nop())
	require.NoError(t, err)
	return coord, s, repo
}

func seedAgent(t *testing.T, s *store.Store, id string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.Q().CreateAgent(context.Background(), &domain.Agent{
		ID: id, Status: constants.AgentStatusWorking, CreatedAt: now, UpdatedAt: now,
	}))
}

func terminateAgent(t *testing.T, s *store.Store, id string) {
	t.Helper()
	require.NoError(t, s.Q().UpdateAgentStatus(context.Background(), id, constants.AgentStatusTerminated))
}

func TestCreateWorktree(t *testing.T) {
	coord, s, repo := newTestCoordinator(t)
	ctx := context.Background()
	seedAgent(t, s, "agent-1")

	wt, err := coord.Create(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-agent-1", wt.Branch)
	assert.Len(t, wt.BaseSHA, 40)
	assert.DirExists(t, wt.Path)

	// Branch exists in the main repo.
	runner := git.NewCLIRunnerAt(repo)
	exists, err := runner.BranchExists(ctx, wt.Branch)
	require.NoError(t, err)
	assert.True(t, exists)

	// Record persisted as active.
	stored, err := s.Q().GetActiveWorktree(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, wt.Path, stored.Path)
}

func TestCreateWorktreeConflicts(t *testing.T) {
	coord, s, _ := newTestCoordinator(t)
	ctx := context.Background()
	seedAgent(t, s, "agent-1")

	_, err := coord.Create(ctx, "agent-1")
	require.NoError(t, err)

	_, err = coord.Create(ctx, "agent-1")
	require.ErrorIs(t, err, coxerrors.ErrWorktreeExists)

	_, err = coord.Create(ctx, "")
	require.ErrorIs(t, err, coxerrors.ErrEmptyValue)
}

func TestChangesAndCommitWork(t *testing.T) {
	coord, s, _ := newTestCoordinator(t)
	ctx := context.Background()
	seedAgent(t, s, "agent-1")

	wt, err := coord.Create(ctx, "agent-1")
	require.NoError(t, err)

	// No changes yet.
	changes, err := coord.Changes(ctx, "agent-1", "")
	require.NoError(t, err)
	assert.Empty(t, changes)

	// Uncommitted file shows up as untracked.
	writeFile(t, wt.Path, "feature.txt", "work\n")
	changes, err = coord.Changes(ctx, "agent-1", "")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "feature.txt", changes[0].Path)
	assert.Equal(t, git.ChangeUntracked, changes[0].Status)

	// Commit records an audit row and the change becomes committed.
	sha, err := coord.CommitWork(ctx, "agent-1", "add feature")
	require.NoError(t, err)
	assert.Len(t, sha, 40)

	changes, err = coord.Changes(ctx, "agent-1", "")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, git.ChangeAdded, changes[0].Status)

	audit, err := s.Q().ListWorktreeCommits(ctx, "agent-1")
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, sha, audit[0].CommitSHA)
	assert.Equal(t, "add feature", audit[0].Message)

	// Nothing further to commit.
	sha, err = coord.CommitWork(ctx, "agent-1", "empty")
	require.NoError(t, err)
	assert.Empty(t, sha)
}

func TestChangesSinceCommit(t *testing.T) {
	coord, s, _ := newTestCoordinator(t)
	ctx := context.Background()
	seedAgent(t, s, "agent-1")

	wt, err := coord.Create(ctx, "agent-1")
	require.NoError(t, err)

	writeFile(t, wt.Path, "one.txt", "1\n")
	first, err := coord.CommitWork(ctx, "agent-1", "one")
	require.NoError(t, err)

	writeFile(t, wt.Path, "two.txt", "2\n")
	_, err = coord.CommitWork(ctx, "agent-1", "two")
	require.NoError(t, err)

	changes, err := coord.Changes(ctx, "agent-1", first)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "two.txt", changes[0].Path)
}

func TestCleanupWorktree(t *testing.T) {
	coord, s, repo := newTestCoordinator(t)
	ctx := context.Background()
	seedAgent(t, s, "agent-1")

	wt, err := coord.Create(ctx, "agent-1")
	require.NoError(t, err)
	terminateAgent(t, s, "agent-1")

	require.NoError(t, coord.Cleanup(ctx, "agent-1"))
	assert.NoDirExists(t, wt.Path)

	runner := git.NewCLIRunnerAt(repo)
	exists, err := runner.BranchExists(ctx, wt.Branch)
	require.NoError(t, err)
	assert.False(t, exists)

	stored, err := s.Q().GetWorktree(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, constants.WorktreeStatusRemoved, stored.Status)

	// Idempotent: second cleanup and unknown agent are no-ops.
	require.NoError(t, coord.Cleanup(ctx, "agent-1"))
	require.NoError(t, coord.Cleanup(ctx, "never-existed"))
}

func TestCleanupRefusedWhileAgentActive(t *testing.T) {
	coord, s, _ := newTestCoordinator(t)
	ctx := context.Background()
	seedAgent(t, s, "agent-1")

	wt, err := coord.Create(ctx, "agent-1")
	require.NoError(t, err)

	// A live agent keeps its checkout.
	err = coord.Cleanup(ctx, "agent-1")
	require.ErrorIs(t, err, coxerrors.ErrAgentActive)
	assert.DirExists(t, wt.Path)

	stored, err := s.Q().GetActiveWorktree(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, constants.WorktreeStatusActive, stored.Status)

	// Termination unblocks the cleanup.
	terminateAgent(t, s, "agent-1")
	require.NoError(t, coord.Cleanup(ctx, "agent-1"))
	assert.NoDirExists(t, wt.Path)
}

func TestCleanupThenRecreate(t *testing.T) {
	coord, s, _ := newTestCoordinator(t)
	ctx := context.Background()
	seedAgent(t, s, "agent-1")

	_, err := coord.Create(ctx, "agent-1")
	require.NoError(t, err)
	terminateAgent(t, s, "agent-1")
	require.NoError(t, coord.Cleanup(ctx, "agent-1"))

	// After cleanup the agent can be provisioned again.
	wt, err := coord.Create(ctx, "agent-1")
	require.NoError(t, err)
	assert.DirExists(t, wt.Path)
}

func TestParallelAgents(t *testing.T) {
	coord, s, _ := newTestCoordinator(t)
	ctx := context.Background()

	agents := []string{"agent-1", "agent-2", "agent-3", "agent-4"}
	for _, id := range agents {
		seedAgent(t, s, id)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(agents))
	for i, id := range agents {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, err := coord.Create(ctx, id)
			if err == nil {
				err = s.Q().UpdateAgentStatus(ctx, id, constants.AgentStatusTerminated)
			}
			if err == nil {
				err = coord.Cleanup(ctx, id)
			}
			errs[i] = err
		}(i, id)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "agent %s", agents[i])
	}
}

func TestAgentLocksMutualExclusion(t *testing.T) {
	locks := NewAgentLocks()

	unlock := locks.Lock("agent-1")
	acquired := make(chan struct{})
	go func() {
		u := locks.Lock("agent-1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}

	// Different agent proceeds immediately.
	done := make(chan struct{})
	go func() {
		u := locks.Lock("agent-2")
		u()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated agent blocked")
	}
}
