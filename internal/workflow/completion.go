package workflow

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mtessler/coxswain/internal/clock"
	"github.com/mtessler/coxswain/internal/config"
	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/ctxutil"
	"github.com/mtessler/coxswain/internal/domain"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
	"github.com/mtessler/coxswain/internal/export"
	"github.com/mtessler/coxswain/internal/store"
)

// IncidentExporter writes incident reports when a workflow completes.
// Export failures never roll back completion.
type IncidentExporter interface {
	Export(ctx context.Context, workflowID string) (*export.Summary, error)
}

// CompletionResult reports the outcome of a completion attempt.
type CompletionResult struct {
	WorkflowID       string                       `json:"workflow_id"`
	Status           constants.WorkflowStatus     `json:"status"`
	FinalMergeStatus constants.FinalMergeStatus   `json:"final_merge_status"`
	MergeCommitSHA   string                       `json:"merge_commit_sha,omitempty"`
	AlreadyCompleted bool                         `json:"already_completed"`
	PendingReview    bool                         `json:"pending_review"`
	PhasesFinalized  int                          `json:"phases_finalized"`
	TasksByStatus    map[constants.TaskStatus]int `json:"tasks_by_status,omitempty"`
	Reason           string                       `json:"reason,omitempty"`
}

// Preview is the read-only completion readiness report.
type Preview struct {
	WorkflowID       string                       `json:"workflow_id"`
	Status           constants.WorkflowStatus     `json:"status"`
	FinalMergeStatus constants.FinalMergeStatus   `json:"final_merge_status"`
	BranchName       string                       `json:"branch_name,omitempty"`
	ActiveTasks      int                          `json:"active_tasks"`
	ActiveAgents     int                          `json:"active_agents"`
	DanglingPhases   int                          `json:"dangling_phases"`
	TasksByStatus    map[constants.TaskStatus]int `json:"tasks_by_status,omitempty"`
}

// Eligibility reports whether a workflow can auto-complete.
type Eligibility struct {
	Eligible    bool   `json:"eligible"`
	Reason      string `json:"reason,omitempty"`
	DoneTasks   int    `json:"done_tasks"`
	FailedTasks int    `json:"failed_tasks"`
}

// Finalizer drives the final-merge and completion state machine. The workflow
// status axis runs active to pending_final_review to completed or failed, or
// active straight to completed on the no-branch and auto-merge paths. The
// final-merge axis runs not_applicable to merged automatically, or
// pending_review through approved to merged, or pending_review to rejected.
type Finalizer struct {
	store    *store.Store
	cfg      *config.Config
	branches *Manager
	exporter IncidentExporter
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewFinalizer creates a completion state machine. exporter may be nil when
// incident export is disabled.
func NewFinalizer(s *store.Store, cfg *config.Config, branches *Manager, exporter IncidentExporter, logger zerolog.Logger) *Finalizer {
	return &Finalizer{
		store:    s,
		cfg:      cfg,
		branches: branches,
		exporter: exporter,
		clock:    clock.RealClock{},
		logger:   logger.With().Str("component", "finalizer").Logger(),
	}
}

// CompleteWorkflow attempts to finalize the workflow. Completion never
// abandons in-flight work: any active task or assigned agent refuses it with
// ErrWorkflowNotReady. An armed review gate pauses at pending_final_review
// instead of completing. A failed auto-merge downgrades to manual review and
// is never fatal. Record mutations happen inside one transaction; the merge
// outcome is known before the transaction commits.
func (f *Finalizer) CompleteWorkflow(ctx context.Context, workflowID, reason string) (*CompletionResult, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if workflowID == "" {
		return nil, fmt.Errorf("%w: workflow id", coxerrors.ErrEmptyValue)
	}

	wf, err := f.store.Q().GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status == constants.WorkflowStatusCompleted {
		return &CompletionResult{
			WorkflowID:       workflowID,
			Status:           wf.Status,
			FinalMergeStatus: wf.FinalMergeStatus,
			MergeCommitSHA:   wf.FinalMergeCommitSHA,
			AlreadyCompleted: true,
		}, nil
	}

	if err = f.checkPreconditions(ctx, workflowID); err != nil {
		return nil, err
	}

	// Merge outcome is resolved before any record mutation so the
	// transaction below commits a known state.
	pendingReview := false
	switch {
	case !wf.HasBranch():
		wf.Status = constants.WorkflowStatusCompleted

	case wf.FinalMergeStatus == constants.FinalMergePendingReview:
		// Deliberate pause awaiting an external approve or reject.
		wf.Status = constants.WorkflowStatusPendingFinalReview
		pendingReview = true

	case wf.FinalMergeStatus == constants.FinalMergeNotApplicable:
		f.runAutoMerge(ctx, wf)
		pendingReview = wf.Status == constants.WorkflowStatusPendingFinalReview

	case wf.FinalMergeStatus == constants.FinalMergeMerged,
		wf.FinalMergeStatus == constants.FinalMergeApproved,
		wf.FinalMergeStatus == constants.FinalMergeRejected:
		// Merge already settled one way or the other; bookkeeping only.
		wf.Status = constants.WorkflowStatusCompleted

	default:
		f.logger.Warn().Str("workflow_id", workflowID).
			Str("final_merge_status", string(wf.FinalMergeStatus)).
			Msg("unknown final merge status, completing anyway")
		wf.Status = constants.WorkflowStatusCompleted
	}

	result := &CompletionResult{
		WorkflowID:    workflowID,
		PendingReview: pendingReview,
		Reason:        reason,
	}

	err = f.store.WithTx(ctx, func(q *store.Queries) error {
		finalized, txErr := f.finalizeDanglingPhases(ctx, q, workflowID, reason)
		if txErr != nil {
			return txErr
		}
		result.PhasesFinalized = finalized

		if result.TasksByStatus, txErr = q.CountTasksByStatus(ctx, workflowID); txErr != nil {
			return txErr
		}
		return q.UpdateWorkflow(ctx, wf)
	})
	if err != nil {
		return nil, fmt.Errorf("finalize workflow records: %w", err)
	}

	result.Status = wf.Status
	result.FinalMergeStatus = wf.FinalMergeStatus
	result.MergeCommitSHA = wf.FinalMergeCommitSHA

	if wf.Status == constants.WorkflowStatusCompleted {
		f.exportIncidents(ctx, workflowID)
	}

	f.logger.Info().Str("workflow_id", workflowID).Str("status", string(wf.Status)).
		Str("final_merge_status", string(wf.FinalMergeStatus)).
		Int("phases_finalized", result.PhasesFinalized).Msg("workflow finalization processed")
	return result, nil
}

// runAutoMerge folds the workflow branch into trunk. Failure is downgraded
// to manual review so agent work is never discarded.
func (f *Finalizer) runAutoMerge(ctx context.Context, wf *domain.Workflow) {
	result, err := f.branches.MergeWorkflowToBase(ctx, wf.ID, wf.BranchName)
	if err != nil || result.Status == constants.MergeStatusFailed {
		f.logger.Warn().Err(err).Str("workflow_id", wf.ID).Str("branch", wf.BranchName).
			Msg("auto-merge failed, downgrading to manual review")
		wf.FinalMergeStatus = constants.FinalMergePendingReview
		wf.Status = constants.WorkflowStatusPendingFinalReview
		return
	}

	wf.FinalMergeStatus = constants.FinalMergeMerged
	wf.FinalMergeCommitSHA = result.CommitSHA
	wf.Status = constants.WorkflowStatusCompleted
}

// ApproveFinalMerge merges the workflow branch into trunk and completes the
// workflow. The reviewer is recorded on the workflow row.
func (f *Finalizer) ApproveFinalMerge(ctx context.Context, workflowID, reviewer string) (*CompletionResult, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	wf, err := f.store.Q().GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !wf.HasBranch() {
		return nil, fmt.Errorf("%w: workflow has no integration branch", coxerrors.ErrBranchNotFound)
	}
	if wf.FinalMergeStatus != constants.FinalMergePendingReview {
		return nil, fmt.Errorf("%w: final merge is %s, not pending review",
			coxerrors.ErrWorkflowNotReady, wf.FinalMergeStatus)
	}

	result, err := f.branches.MergeWorkflowToBase(ctx, workflowID, wf.BranchName)
	if err != nil {
		return nil, err
	}

	now := f.clock.Now().UTC()
	wf.FinalMergeStatus = constants.FinalMergeMerged
	wf.FinalMergeCommitSHA = result.CommitSHA
	wf.FinalMergeReviewedAt = &now
	wf.FinalMergeReviewedBy = reviewer
	wf.Status = constants.WorkflowStatusCompleted
	if err = f.store.Q().UpdateWorkflow(ctx, wf); err != nil {
		return nil, err
	}

	f.exportIncidents(ctx, workflowID)
	f.logger.Info().Str("workflow_id", workflowID).Str("reviewer", reviewer).
		Str("commit", result.CommitSHA).Msg("final merge approved")
	return &CompletionResult{
		WorkflowID:       workflowID,
		Status:           wf.Status,
		FinalMergeStatus: wf.FinalMergeStatus,
		MergeCommitSHA:   wf.FinalMergeCommitSHA,
	}, nil
}

// RejectFinalMerge marks the final merge rejected and fails the workflow.
// The integration branch is preserved for inspection.
func (f *Finalizer) RejectFinalMerge(ctx context.Context, workflowID, reviewer string) (*CompletionResult, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	wf, err := f.store.Q().GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.FinalMergeStatus != constants.FinalMergePendingReview {
		return nil, fmt.Errorf("%w: final merge is %s, not pending review",
			coxerrors.ErrWorkflowNotReady, wf.FinalMergeStatus)
	}

	now := f.clock.Now().UTC()
	wf.FinalMergeStatus = constants.FinalMergeRejected
	wf.FinalMergeReviewedAt = &now
	wf.FinalMergeReviewedBy = reviewer
	wf.Status = constants.WorkflowStatusFailed
	if err = f.store.Q().UpdateWorkflow(ctx, wf); err != nil {
		return nil, err
	}

	f.logger.Info().Str("workflow_id", workflowID).Str("reviewer", reviewer).
		Msg("final merge rejected")
	return &CompletionResult{
		WorkflowID:       workflowID,
		Status:           wf.Status,
		FinalMergeStatus: wf.FinalMergeStatus,
	}, nil
}

// CompletionPreview reports completion readiness without mutating anything.
func (f *Finalizer) CompletionPreview(ctx context.Context, workflowID string) (*Preview, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	wf, err := f.store.Q().GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	q := f.store.Q()
	activeTasks, err := q.ListActiveTasks(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	activeAgents, err := q.ListActiveAgentsForWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	dangling, err := q.ListRunningPhaseExecutions(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	byStatus, err := q.CountTasksByStatus(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return &Preview{
		WorkflowID:       workflowID,
		Status:           wf.Status,
		FinalMergeStatus: wf.FinalMergeStatus,
		BranchName:       wf.BranchName,
		ActiveTasks:      len(activeTasks),
		ActiveAgents:     len(activeAgents),
		DanglingPhases:   len(dangling),
		TasksByStatus:    byStatus,
	}, nil
}

// CheckAutoCompleteEligibility reports whether the workflow has finished all
// scheduled work. A workflow with no tasks at all is never auto-completed.
func (f *Finalizer) CheckAutoCompleteEligibility(ctx context.Context, workflowID string) (*Eligibility, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	byStatus, err := f.store.Q().CountTasksByStatus(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	if total == 0 {
		return &Eligibility{Reason: "workflow has no tasks"}, nil
	}

	for _, st := range constants.ActiveTaskStatuses() {
		if n := byStatus[st]; n > 0 {
			return &Eligibility{Reason: fmt.Sprintf("%d task(s) still %s", n, st)}, nil
		}
	}

	agents, err := f.store.Q().ListActiveAgentsForWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if len(agents) > 0 {
		return &Eligibility{Reason: fmt.Sprintf("%d agent(s) still active", len(agents))}, nil
	}

	return &Eligibility{
		Eligible:    true,
		DoneTasks:   byStatus[constants.TaskStatusDone],
		FailedTasks: byStatus[constants.TaskStatusFailed],
	}, nil
}

// checkPreconditions refuses completion while any task or assigned agent is
// in a non-terminal state.
func (f *Finalizer) checkPreconditions(ctx context.Context, workflowID string) error {
	q := f.store.Q()

	tasks, err := q.ListActiveTasks(ctx, workflowID)
	if err != nil {
		return err
	}
	if len(tasks) > 0 {
		return fmt.Errorf("%w: %d task(s) still active", coxerrors.ErrWorkflowNotReady, len(tasks))
	}

	agents, err := q.ListActiveAgentsForWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}
	if len(agents) > 0 {
		return fmt.Errorf("%w: %d agent(s) still active", coxerrors.ErrWorkflowNotReady, len(agents))
	}
	return nil
}

// finalizeDanglingPhases closes still-running phase executions with a
// synthetic summary so no execution outlives its workflow.
func (f *Finalizer) finalizeDanglingPhases(ctx context.Context, q *store.Queries, workflowID, reason string) (int, error) {
	running, err := q.ListRunningPhaseExecutions(ctx, workflowID)
	if err != nil {
		return 0, err
	}

	summary := "Finalized at workflow completion"
	if reason != "" {
		summary = fmt.Sprintf("Finalized at workflow completion: %s", reason)
	}
	now := f.clock.Now().UTC()
	for _, pe := range running {
		if err = q.FinalizePhaseExecution(ctx, pe.ID, summary, now); err != nil {
			return 0, err
		}
	}
	return len(running), nil
}

// exportIncidents invokes the incident exporter. Failures are logged only.
func (f *Finalizer) exportIncidents(ctx context.Context, workflowID string) {
	if f.exporter == nil || !f.cfg.Export.IncidentLoggingEnabled {
		return
	}
	summary, err := f.exporter.Export(ctx, workflowID)
	if err != nil {
		f.logger.Warn().Err(err).Str("workflow_id", workflowID).
			Msg("incident export failed, completion unaffected")
		return
	}
	f.logger.Info().Str("workflow_id", workflowID).
		Int("incidents", summary.TotalIncidents).Msg("incidents exported")
}
