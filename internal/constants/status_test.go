package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentStatusIsActive(t *testing.T) {
	tests := []struct {
		status AgentStatus
		active bool
	}{
		{AgentStatusWorking, true},
		{AgentStatusIdle, true},
		{AgentStatusPending, true},
		{AgentStatusTerminated, false},
		{AgentStatus("unknown"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.active, tt.status.IsActive())
		})
	}
}

func TestActiveAgentStatusesExcludesTerminated(t *testing.T) {
	for _, s := range ActiveAgentStatuses() {
		assert.True(t, s.IsActive())
		assert.NotEqual(t, AgentStatusTerminated, s)
	}
}

func TestTaskStatusIsTerminal(t *testing.T) {
	terminal := []TaskStatus{TaskStatusDone, TaskStatusFailed, TaskStatusCancelled}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "expected %s to be terminal", s)
	}

	for _, s := range ActiveTaskStatuses() {
		assert.False(t, s.IsTerminal(), "expected %s to be non-terminal", s)
	}
}

func TestActiveTaskStatusesCoverEveryBlockingState(t *testing.T) {
	want := []TaskStatus{
		TaskStatusPending,
		TaskStatusAssigned,
		TaskStatusInProgress,
		TaskStatusUnderReview,
		TaskStatusValidationInProgress,
	}
	assert.ElementsMatch(t, want, ActiveTaskStatuses())
}
