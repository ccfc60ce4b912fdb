package workflow

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtessler/coxswain/internal/constants"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
	"github.com/mtessler/coxswain/internal/session"
)

func TestDeleteActiveWorkflowRefused(t *testing.T) {
	rig := newTestRig(t)
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)

	_, err := rig.reaper.DeleteWorkflow(context.Background(), wf.ID, false)
	require.ErrorIs(t, err, coxerrors.ErrWorkflowActive)

	// Still there.
	_, err = rig.store.Q().GetWorkflow(context.Background(), wf.ID)
	require.NoError(t, err)
}

func TestDeleteCompletedWorkflow(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusCompleted)
	rig.seedTask(t, wf.ID, constants.TaskStatusDone, "")

	result, err := rig.reaper.DeleteWorkflow(ctx, wf.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Counts["workflows"])
	assert.Equal(t, int64(1), result.Counts["tasks"])
	assert.Zero(t, result.AgentsTerminated)

	_, err = rig.store.Q().GetWorkflow(ctx, wf.ID)
	require.ErrorIs(t, err, coxerrors.ErrWorkflowNotFound)
}

func TestForceDeleteTerminatesAgents(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)
	agent := rig.seedAgent(t, constants.AgentStatusWorking)
	rig.seedTask(t, wf.ID, constants.TaskStatusInProgress, agent.ID)

	result, err := rig.reaper.DeleteWorkflow(ctx, wf.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AgentsTerminated)
	assert.Equal(t, int64(1), result.Counts["workflows"])
	assert.Equal(t, int64(1), result.Counts["agents"])

	_, err = rig.store.Q().GetWorkflow(ctx, wf.ID)
	require.ErrorIs(t, err, coxerrors.ErrWorkflowNotFound)
	_, err = rig.store.Q().GetAgent(ctx, agent.ID)
	require.ErrorIs(t, err, coxerrors.ErrAgentNotFound)
}

func TestForceDeleteSurvivesTerminationFailure(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)
	agent := rig.seedAgent(t, constants.AgentStatusWorking)
	rig.seedTask(t, wf.ID, constants.TaskStatusInProgress, agent.ID)

	stubborn := session.TerminateFunc(func(context.Context, string) bool { return false })
	reaper := NewReaper(rig.store, rig.cfg, stubborn, zerolog.Nop())

	result, err := reaper.DeleteWorkflow(ctx, wf.ID, true)
	require.NoError(t, err)
	assert.Zero(t, result.AgentsTerminated)

	// Deletion proceeded regardless.
	_, err = rig.store.Q().GetWorkflow(ctx, wf.ID)
	require.ErrorIs(t, err, coxerrors.ErrWorkflowNotFound)
}

func TestDeletionPreview(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()
	wf := rig.seedWorkflow(t, constants.WorkflowStatusActive)
	agent := rig.seedAgent(t, constants.AgentStatusWorking)
	rig.seedTask(t, wf.ID, constants.TaskStatusInProgress, agent.ID)
	rig.seedTask(t, wf.ID, constants.TaskStatusDone, "")

	preview, err := rig.reaper.DeletionPreview(ctx, wf.ID)
	require.NoError(t, err)
	assert.True(t, preview.Blocked)
	assert.Equal(t, []string{agent.ID}, preview.ActiveAgents)
	assert.Equal(t, int64(2), preview.Counts["tasks"])
	assert.Equal(t, int64(1), preview.Counts["workflows"])
	assert.Equal(t, preview.Counts.Total(), preview.Total)

	// Preview never mutates.
	_, err = rig.store.Q().GetWorkflow(ctx, wf.ID)
	require.NoError(t, err)
}

func TestDeletionPreviewUnknownWorkflow(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.reaper.DeletionPreview(context.Background(), "missing")
	require.ErrorIs(t, err, coxerrors.ErrWorkflowNotFound)
}
