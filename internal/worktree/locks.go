// Package worktree provisions and tears down agent-scoped git worktrees.
package worktree

import "sync"

// AgentLocks serializes operations per agent id. Cleanup and merge for the
// same agent share one lock so they are mutually exclusive, while unrelated
// agents proceed fully in parallel.
type AgentLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAgentLocks creates an empty lock table.
func NewAgentLocks() *AgentLocks {
	return &AgentLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the agent's lock, creating it on first use, and returns the
// unlock function.
func (l *AgentLocks) Lock(agentID string) func() {
	l.mu.Lock()
	m, ok := l.locks[agentID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[agentID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
