package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtessler/coxswain/internal/config"
	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/domain"
	"github.com/mtessler/coxswain/internal/store"
)

func newTestExporter(t *testing.T) (*Exporter, *store.Store, string) {
	t.Helper()

	s, err := store.Open(store.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	outDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Export.IncidentLoggingEnabled = true
	cfg.Export.OutputDir = outDir

	return NewExporter(s, cfg, zerolog.Nop()), s, outDir
}

func seedIncident(t *testing.T, s *store.Store, workflowID, agentID, content string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	taskID := "task-" + agentID
	require.NoError(t, s.Q().CreateTask(ctx, &domain.Task{
		ID: taskID, WorkflowID: workflowID, Title: "t",
		Status: constants.TaskStatusDone, AssignedAgentID: agentID,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, s.Q().CreateMemory(ctx, &domain.Memory{
		AgentID: agentID, RelatedTaskID: taskID,
		Kind: domain.MemoryKindIncident, Content: content, CreatedAt: now,
	}))
}

func TestExportWritesReports(t *testing.T) {
	exp, s, outDir := newTestExporter(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Q().CreateWorkflow(ctx, &domain.Workflow{
		ID: "wf-1", Name: "wf", Status: constants.WorkflowStatusActive,
		FinalMergeStatus: constants.FinalMergeNotApplicable,
		CreatedAt:        now, UpdatedAt: now,
	}))
	require.NoError(t, s.Q().CreateAgent(ctx, &domain.Agent{
		ID: "agent-1", Status: constants.AgentStatusWorking, CreatedAt: now, UpdatedAt: now,
	}))
	seedIncident(t, s, "wf-1", "agent-1",
		"INCIDENT: flaky migration | symptom: intermittent lock | attempted: retry once | status: RESOLVED | verify: rerun suite")
	seedIncident(t, s, "wf-1", "agent-1", "plain unstructured note")

	summary, err := exp.Export(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalIncidents)
	require.Len(t, summary.IncidentFiles, 2)
	assert.Equal(t, "INC-0001-flaky-migration.md", summary.IncidentFiles[0])
	assert.Equal(t, 1, summary.ByStatus["RESOLVED"])
	assert.Equal(t, 1, summary.ByStatus["OPEN"])

	wfDir := filepath.Join(outDir, "wf-1")
	report, err := os.ReadFile(filepath.Join(wfDir, "incidents", summary.IncidentFiles[0])) //#nosec G304 -- test path
	require.NoError(t, err)
	assert.Contains(t, string(report), "# Symptoms\n\nintermittent lock")
	assert.Contains(t, string(report), "status: RESOLVED")

	for _, name := range []string{"README.md", "timeline.md", "summary.yaml"} {
		_, statErr := os.Stat(filepath.Join(wfDir, name))
		assert.NoError(t, statErr, name)
	}
}

func TestExportEmptyWorkflow(t *testing.T) {
	exp, _, _ := newTestExporter(t)

	summary, err := exp.Export(context.Background(), "wf-none")
	require.NoError(t, err)
	assert.Zero(t, summary.TotalIncidents)
	assert.Empty(t, summary.IncidentFiles)
}

func TestParseIncident(t *testing.T) {
	tests := []struct {
		name    string
		content string
		title   string
		status  string
	}{
		{"structured", "INCIDENT: db lock | symptom: stall | status: OPEN", "db lock", "OPEN"},
		{"unstructured short", "quick note", "quick note", "OPEN"},
		{"unstructured long truncates", strings.Repeat("a", 60), strings.Repeat("a", 50) + "...", "OPEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inc := parseIncident(tt.content)
			assert.Equal(t, tt.title, inc.Title)
			assert.Equal(t, tt.status, inc.Status)
		})
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "flaky-migration", slugify("Flaky Migration!"))
	assert.Equal(t, "incident", slugify("???"))
}
