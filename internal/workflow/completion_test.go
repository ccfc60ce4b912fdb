package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/domain"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
	"github.com/mtessler/coxswain/internal/export"
)

func (r *testRig) seedTask(t *testing.T, workflowID string, status constants.TaskStatus, agentID string) *domain.Task {
	t.Helper()
	now := time.Now().UTC()
	task := &domain.Task{
		ID:              uuid.NewString(),
		WorkflowID:      workflowID,
		Title:           "task",
		Status:          status,
		AssignedAgentID: agentID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, r.store.Q().CreateTask(context.Background(), task))
	return task
}

func (r *testRig) seedAgent(t *testing.T, status constants.AgentStatus) *domain.Agent {
	t.Helper()
	now := time.Now().UTC()
	a := &domain.Agent{ID: uuid.NewString(), Status: status, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, r.store.Q().CreateAgent(context.Background(), a))
	return a
}

func TestCompleteWorkflowNoBranch(t *testing.T) {
	rig := newTestRig(t)
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	result, err := rig.finalizer.CompleteWorkflow(context.Background(), wf.ID, "all done")
	require.NoError(t, err)
	assert.Equal(t, constants.WorkflowStatusCompleted, result.Status)
	assert.False(t, result.AlreadyCompleted)
	assert.False(t, result.PendingReview)
	assert.Empty(t, result.MergeCommitSHA)
}

func TestCompleteWorkflowIdempotent(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	_, err := rig.finalizer.CompleteWorkflow(ctx, wf.ID, "")
	require.NoError(t, err)

	again, err := rig.finalizer.CompleteWorkflow(ctx, wf.ID, "")
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)
	assert.Equal(t, constants.WorkflowStatusCompleted, again.Status)
}

func TestCompleteWorkflowBlockedByActiveTask(t *testing.T) {
	rig := newTestRig(t)
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)
	rig.seedTask(t, wf.ID, constants.TaskStatusInProgress, "")

	_, err := rig.finalizer.CompleteWorkflow(context.Background(), wf.ID, "")
	require.ErrorIs(t, err, coxerrors.ErrWorkflowNotReady)

	// Workflow untouched.
	got, err := rig.store.Q().GetWorkflow(context.Background(), wf.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.WorkflowStatusActive, got.Status)
}

func TestCompleteWorkflowBlockedByActiveAgent(t *testing.T) {
	rig := newTestRig(t)
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)
	agent := rig.seedAgent(t, constants.AgentStatusWorking)
	rig.seedTask(t, wf.ID, constants.TaskStatusDone, agent.ID)

	_, err := rig.finalizer.CompleteWorkflow(context.Background(), wf.ID, "")
	require.ErrorIs(t, err, coxerrors.ErrWorkflowNotReady)
}

func TestCompleteWorkflowAutoMerge(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	info, err := rig.manager.CreateWorkflowBranch(ctx, wf.ID)
	require.NoError(t, err)
	rig.commitOnBranch(t, info.BranchName, "feature.txt", "shipped\n")

	result, err := rig.finalizer.CompleteWorkflow(ctx, wf.ID, "")
	require.NoError(t, err)
	assert.Equal(t, constants.WorkflowStatusCompleted, result.Status)
	assert.Equal(t, constants.FinalMergeMerged, result.FinalMergeStatus)
	assert.Len(t, result.MergeCommitSHA, 40)

	// Changes are on trunk.
	assert.Equal(t, "shipped\n", runGit(t, rig.repo, "show", "main:feature.txt"))

	got, err := rig.store.Q().GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.FinalMergeMerged, got.FinalMergeStatus)
	assert.Equal(t, result.MergeCommitSHA, got.FinalMergeCommitSHA)
}

func TestCompleteWorkflowEmptyBranchRecordsTrunkTip(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	// Integration branch with no commits of its own.
	_, err := rig.manager.CreateWorkflowBranch(ctx, wf.ID)
	require.NoError(t, err)
	trunkTip := strings.TrimSpace(runGit(t, rig.repo, "rev-parse", "main"))

	result, err := rig.finalizer.CompleteWorkflow(ctx, wf.ID, "")
	require.NoError(t, err)
	assert.Equal(t, constants.WorkflowStatusCompleted, result.Status)
	assert.Equal(t, constants.FinalMergeMerged, result.FinalMergeStatus)

	// merged always carries a concrete commit id, here the trunk tip the
	// branch is contained in.
	assert.Equal(t, trunkTip, result.MergeCommitSHA)

	got, err := rig.store.Q().GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, trunkTip, got.FinalMergeCommitSHA)
}

func TestApproveFinalMergeEmptyBranchRecordsTrunkTip(t *testing.T) {
	rig := newTestRig(t)
	rig.cfg.Workflow.RequireFinalReview = true
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	_, err := rig.manager.CreateWorkflowBranch(ctx, wf.ID)
	require.NoError(t, err)
	_, err = rig.finalizer.CompleteWorkflow(ctx, wf.ID, "")
	require.NoError(t, err)
	trunkTip := strings.TrimSpace(runGit(t, rig.repo, "rev-parse", "main"))

	result, err := rig.finalizer.ApproveFinalMerge(ctx, wf.ID, "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, constants.FinalMergeMerged, result.FinalMergeStatus)
	assert.Equal(t, trunkTip, result.MergeCommitSHA)
}

func TestCompleteWorkflowPausesForReview(t *testing.T) {
	rig := newTestRig(t)
	rig.cfg.Workflow.RequireFinalReview = true
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	info, err := rig.manager.CreateWorkflowBranch(ctx, wf.ID)
	require.NoError(t, err)
	rig.commitOnBranch(t, info.BranchName, "feature.txt", "awaiting review\n")

	trunkBefore := runGit(t, rig.repo, "rev-parse", "main")

	result, err := rig.finalizer.CompleteWorkflow(ctx, wf.ID, "")
	require.NoError(t, err)
	assert.Equal(t, constants.WorkflowStatusPendingFinalReview, result.Status)
	assert.True(t, result.PendingReview)

	// Trunk untouched, branch preserved.
	assert.Equal(t, trunkBefore, runGit(t, rig.repo, "rev-parse", "main"))
	assert.Contains(t, runGit(t, rig.repo, "branch", "--list", info.BranchName), info.BranchName)
}

func TestCompleteWorkflowAutoMergeFailureDowngrades(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	info, err := rig.manager.CreateWorkflowBranch(ctx, wf.ID)
	require.NoError(t, err)
	// Deleting the branch out from under the record makes auto-merge fail.
	runGit(t, rig.repo, "branch", "-D", info.BranchName)

	result, err := rig.finalizer.CompleteWorkflow(ctx, wf.ID, "")
	require.NoError(t, err)
	assert.Equal(t, constants.WorkflowStatusPendingFinalReview, result.Status)
	assert.Equal(t, constants.FinalMergePendingReview, result.FinalMergeStatus)
	assert.True(t, result.PendingReview)
}

func TestCompleteWorkflowFinalizesDanglingPhases(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	now := time.Now().UTC()
	phase := &domain.Phase{ID: uuid.NewString(), WorkflowID: wf.ID, Name: "build", Order: 1, CreatedAt: now}
	require.NoError(t, rig.store.Q().CreatePhase(ctx, phase))
	_, err := rig.store.Q().CreatePhaseExecution(ctx, &domain.PhaseExecution{
		PhaseID: phase.ID, Status: constants.PhaseExecutionInProgress, CreatedAt: now,
	})
	require.NoError(t, err)

	result, err := rig.finalizer.CompleteWorkflow(ctx, wf.ID, "wrap up")
	require.NoError(t, err)
	assert.Equal(t, 1, result.PhasesFinalized)

	running, err := rig.store.Q().ListRunningPhaseExecutions(ctx, wf.ID)
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestApproveFinalMerge(t *testing.T) {
	rig := newTestRig(t)
	rig.cfg.Workflow.RequireFinalReview = true
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	info, err := rig.manager.CreateWorkflowBranch(ctx, wf.ID)
	require.NoError(t, err)
	rig.commitOnBranch(t, info.BranchName, "feature.txt", "approved work\n")

	_, err = rig.finalizer.CompleteWorkflow(ctx, wf.ID, "")
	require.NoError(t, err)

	result, err := rig.finalizer.ApproveFinalMerge(ctx, wf.ID, "reviewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, constants.WorkflowStatusCompleted, result.Status)
	assert.Equal(t, constants.FinalMergeMerged, result.FinalMergeStatus)
	assert.Len(t, result.MergeCommitSHA, 40)

	assert.Equal(t, "approved work\n", runGit(t, rig.repo, "show", "main:feature.txt"))

	got, err := rig.store.Q().GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "reviewer@example.com", got.FinalMergeReviewedBy)
	require.NotNil(t, got.FinalMergeReviewedAt)
}

func TestRejectFinalMerge(t *testing.T) {
	rig := newTestRig(t)
	rig.cfg.Workflow.RequireFinalReview = true
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	info, err := rig.manager.CreateWorkflowBranch(ctx, wf.ID)
	require.NoError(t, err)
	rig.commitOnBranch(t, info.BranchName, "feature.txt", "rejected work\n")

	_, err = rig.finalizer.CompleteWorkflow(ctx, wf.ID, "")
	require.NoError(t, err)

	trunkBefore := runGit(t, rig.repo, "rev-parse", "main")

	result, err := rig.finalizer.RejectFinalMerge(ctx, wf.ID, "reviewer@example.com")
	require.NoError(t, err)
	assert.Equal(t, constants.WorkflowStatusFailed, result.Status)
	assert.Equal(t, constants.FinalMergeRejected, result.FinalMergeStatus)

	// Trunk untouched, branch preserved for inspection.
	assert.Equal(t, trunkBefore, runGit(t, rig.repo, "rev-parse", "main"))
	assert.Contains(t, runGit(t, rig.repo, "branch", "--list", info.BranchName), info.BranchName)
}

func TestApproveRequiresPendingReview(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	_, err := rig.manager.CreateWorkflowBranch(ctx, wf.ID)
	require.NoError(t, err)

	_, err = rig.finalizer.ApproveFinalMerge(ctx, wf.ID, "reviewer")
	require.ErrorIs(t, err, coxerrors.ErrWorkflowNotReady)
}

func TestCompletionPreview(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)
	rig.seedTask(t, wf.ID, constants.TaskStatusInProgress, "")
	rig.seedTask(t, wf.ID, constants.TaskStatusDone, "")

	preview, err := rig.finalizer.CompletionPreview(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.WorkflowStatusActive, preview.Status)
	assert.Equal(t, 1, preview.ActiveTasks)
	assert.Equal(t, 1, preview.TasksByStatus[constants.TaskStatusInProgress])
	assert.Equal(t, 1, preview.TasksByStatus[constants.TaskStatusDone])
}

func TestCheckAutoCompleteEligibility(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	t.Run("no tasks means not eligible", func(t *testing.T) {
		wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)
		el, err := rig.finalizer.CheckAutoCompleteEligibility(ctx, wf.ID)
		require.NoError(t, err)
		assert.False(t, el.Eligible)
		assert.Equal(t, "workflow has no tasks", el.Reason)
	})

	t.Run("active task blocks", func(t *testing.T) {
		wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)
		rig.seedTask(t, wf.ID, constants.TaskStatusAssigned, "")
		el, err := rig.finalizer.CheckAutoCompleteEligibility(ctx, wf.ID)
		require.NoError(t, err)
		assert.False(t, el.Eligible)
		assert.NotEmpty(t, el.Reason)
	})

	t.Run("all terminal is eligible", func(t *testing.T) {
		wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)
		rig.seedTask(t, wf.ID, constants.TaskStatusDone, "")
		rig.seedTask(t, wf.ID, constants.TaskStatusDone, "")
		rig.seedTask(t, wf.ID, constants.TaskStatusFailed, "")
		el, err := rig.finalizer.CheckAutoCompleteEligibility(ctx, wf.ID)
		require.NoError(t, err)
		assert.True(t, el.Eligible)
		assert.Equal(t, 2, el.DoneTasks)
		assert.Equal(t, 1, el.FailedTasks)
	})
}

type failingExporter struct{ called bool }

func (f *failingExporter) Export(context.Context, string) (*export.Summary, error) {
	f.called = true
	return nil, assert.AnError
}

func TestCompletionSurvivesExportFailure(t *testing.T) {
	rig := newTestRig(t)
	exp := &failingExporter{}
	finalizer := NewFinalizer(rig.store, rig.cfg, rig.manager, exp, zerolog.Nop())
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	result, err := finalizer.CompleteWorkflow(context.Background(), wf.ID, "")
	require.NoError(t, err)
	assert.Equal(t, constants.WorkflowStatusCompleted, result.Status)
	assert.True(t, exp.called)
}
