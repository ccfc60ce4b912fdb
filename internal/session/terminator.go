// Package session manages the lifecycle of live agent sessions.
package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/store"
)

// Terminator stops a live agent session. Terminate reports whether the
// agent ended up stopped; it must be idempotent and must never panic or
// propagate an error past this boundary. A failed termination is reported
// as false and the caller decides whether that is fatal.
type Terminator interface {
	Terminate(ctx context.Context, agentID string) bool
}

// TerminateFunc adapts a function to the Terminator interface.
type TerminateFunc func(ctx context.Context, agentID string) bool

// Terminate calls f.
func (f TerminateFunc) Terminate(ctx context.Context, agentID string) bool {
	return f(ctx, agentID)
}

// StoreTerminator terminates agents by flipping their store records to
// terminated and clearing their task reference.
type StoreTerminator struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewStoreTerminator creates a Terminator backed by the given store.
func NewStoreTerminator(s *store.Store, logger zerolog.Logger) *StoreTerminator {
	return &StoreTerminator{store: s, logger: logger}
}

// Terminate stops the agent. Already-terminated and unknown agents report
// true and false respectively without error.
func (t *StoreTerminator) Terminate(ctx context.Context, agentID string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Str("agent_id", agentID).Interface("panic", r).
				Msg("panic during agent termination")
			ok = false
		}
	}()

	agent, err := t.store.Q().GetAgent(ctx, agentID)
	if err != nil {
		t.logger.Warn().Err(err).Str("agent_id", agentID).
			Msg("terminate: agent lookup failed")
		return false
	}
	if agent.Status == constants.AgentStatusTerminated {
		return true
	}

	err = t.store.WithTx(ctx, func(q *store.Queries) error {
		if err := q.UpdateAgentStatus(ctx, agentID, constants.AgentStatusTerminated); err != nil {
			return err
		}
		return q.ClearAgentTask(ctx, agentID)
	})
	if err != nil {
		t.logger.Error().Err(err).Str("agent_id", agentID).
			Msg("terminate: failed to update agent record")
		return false
	}

	t.logger.Info().Str("agent_id", agentID).Msg("agent terminated")
	return true
}

var _ Terminator = (*StoreTerminator)(nil)
