package workflow

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mtessler/coxswain/internal/config"
	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/ctxutil"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
	"github.com/mtessler/coxswain/internal/session"
	"github.com/mtessler/coxswain/internal/store"
)

// DeletionPreview lists what a delete would remove and what blocks it.
type DeletionPreview struct {
	WorkflowID   string               `json:"workflow_id"`
	Counts       store.DeletionCounts `json:"counts"`
	Total        int64                `json:"total"`
	ActiveAgents []string             `json:"active_agents,omitempty"`
	Blocked      bool                 `json:"blocked"`
}

// DeletionResult reports what a delete removed.
type DeletionResult struct {
	WorkflowID       string               `json:"workflow_id"`
	Counts           store.DeletionCounts `json:"counts"`
	Total            int64                `json:"total"`
	AgentsTerminated int                  `json:"agents_terminated"`
}

// Reaper deletes workflows with strict children-before-parents ordering so
// no orphaned rows survive a teardown.
type Reaper struct {
	store      *store.Store
	cfg        *config.Config
	terminator session.Terminator
	logger     zerolog.Logger
}

// NewReaper creates a workflow deletion reaper.
func NewReaper(s *store.Store, cfg *config.Config, terminator session.Terminator, logger zerolog.Logger) *Reaper {
	return &Reaper{
		store:      s,
		cfg:        cfg,
		terminator: terminator,
		logger:     logger.With().Str("component", "reaper").Logger(),
	}
}

// DeletionPreview reports what deleting the workflow would remove, without
// mutating anything.
func (r *Reaper) DeletionPreview(ctx context.Context, workflowID string) (*DeletionPreview, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if workflowID == "" {
		return nil, fmt.Errorf("%w: workflow id", coxerrors.ErrEmptyValue)
	}

	wf, err := r.store.Q().GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	counts, err := r.store.Q().DeletionPreviewCounts(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	agents, err := r.store.Q().ListActiveAgentsForWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	agentIDs := make([]string, 0, len(agents))
	for _, a := range agents {
		agentIDs = append(agentIDs, a.ID)
	}

	return &DeletionPreview{
		WorkflowID:   workflowID,
		Counts:       counts,
		Total:        counts.Total(),
		ActiveAgents: agentIDs,
		Blocked:      wf.Status == constants.WorkflowStatusActive,
	}, nil
}

// DeleteWorkflow removes the workflow and every row that references it, in
// one transaction. An active workflow is refused unless forceTerminate is
// set, in which case every non-terminal agent is terminated first,
// independently and best-effort: one agent's failure never blocks the
// others or the deletion.
func (r *Reaper) DeleteWorkflow(ctx context.Context, workflowID string, forceTerminate bool) (*DeletionResult, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if workflowID == "" {
		return nil, fmt.Errorf("%w: workflow id", coxerrors.ErrEmptyValue)
	}

	wf, err := r.store.Q().GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if wf.Status == constants.WorkflowStatusActive && !forceTerminate {
		return nil, fmt.Errorf("%w: %s", coxerrors.ErrWorkflowActive, workflowID)
	}

	terminated := 0
	if forceTerminate {
		terminated, err = r.terminateAgents(ctx, workflowID)
		if err != nil {
			return nil, err
		}
	}

	var counts store.DeletionCounts
	err = r.store.WithTx(ctx, func(q *store.Queries) error {
		var txErr error
		counts, txErr = q.CascadeDeleteWorkflow(ctx, workflowID)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", coxerrors.ErrReferentialDeletion, err)
	}

	r.logger.Info().Str("workflow_id", workflowID).Int64("rows_deleted", counts.Total()).
		Int("agents_terminated", terminated).Msg("workflow deleted")
	return &DeletionResult{
		WorkflowID:       workflowID,
		Counts:           counts,
		Total:            counts.Total(),
		AgentsTerminated: terminated,
	}, nil
}

// terminateAgents stops every non-terminal agent tied to the workflow.
// Each agent is handled independently; failures are logged, not fatal.
func (r *Reaper) terminateAgents(ctx context.Context, workflowID string) (int, error) {
	agents, err := r.store.Q().ListAgentsForWorkflow(ctx, workflowID)
	if err != nil {
		return 0, err
	}

	var terminated int64
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range agents {
		if a.Status == constants.AgentStatusTerminated {
			continue
		}
		agentID := a.ID
		g.Go(func() error {
			if r.terminator.Terminate(gctx, agentID) {
				atomic.AddInt64(&terminated, 1)
			} else {
				r.logger.Warn().Str("agent_id", agentID).
					Msg("agent termination failed, continuing deletion")
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(atomic.LoadInt64(&terminated)), nil
}
