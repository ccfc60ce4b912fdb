package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mtessler/coxswain/internal/config"
	"github.com/mtessler/coxswain/internal/export"
	"github.com/mtessler/coxswain/internal/merge"
	"github.com/mtessler/coxswain/internal/session"
	"github.com/mtessler/coxswain/internal/store"
	"github.com/mtessler/coxswain/internal/workflow"
	"github.com/mtessler/coxswain/internal/worktree"
)

// app wires the configured store, git repository, and orchestration
// components together for the lifetime of one command invocation.
type app struct {
	cfg       *config.Config
	store     *store.Store
	coord     *worktree.Coordinator
	engine    *merge.Engine
	manager   *workflow.Manager
	finalizer *workflow.Finalizer
	reaper    *workflow.Reaper
}

// openApp loads configuration, opens the store, and constructs every
// component. The caller must Close the returned app.
func openApp(ctx context.Context, logger zerolog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load config, using defaults")
		cfg = config.DefaultConfig()
	}

	storePath, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(storePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	locks := worktree.NewAgentLocks()
	coord, err := worktree.NewCoordinator(ctx, s, cfg, locks, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	engine, err := merge.NewEngine(ctx, s, cfg, locks, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	manager, err := workflow.NewManager(ctx, s, cfg, engine, logger)
	if err != nil {
		engine.Close()
		_ = s.Close()
		return nil, err
	}

	exporter := export.NewExporter(s, cfg, logger)
	finalizer := workflow.NewFinalizer(s, cfg, manager, exporter, logger)
	terminator := session.NewStoreTerminator(s, logger)
	reaper := workflow.NewReaper(s, cfg, terminator, logger)

	return &app{
		cfg:       cfg,
		store:     s,
		coord:     coord,
		engine:    engine,
		manager:   manager,
		finalizer: finalizer,
		reaper:    reaper,
	}, nil
}

// Close drains the merge queues and closes the store.
func (a *app) Close() {
	a.engine.Close()
	_ = a.store.Close()
}
