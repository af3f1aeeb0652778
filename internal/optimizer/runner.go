package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"adpilot/internal/config"
	"adpilot/internal/logger"
	"adpilot/internal/platform"
	"adpilot/internal/policy"
	"adpilot/internal/store"
	"adpilot/internal/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Executor abstracts ExecutionService for the runner so tests can observe
// dispatches without a platform client.
type Executor interface {
	Execute(ctx context.Context, st *store.OptimizationState, action policy.Action, traceID string) (bool, error)
}

// Runner drives one evaluation cycle per entity: fetch summary, load or seed
// state, run the policy chain, dispatch at most one action.
type Runner struct {
	metrics  platform.MetricsSource
	entities platform.EntityReader
	lister   platform.EntityLister
	states   store.StateStore
	exec     Executor
	chain    *policy.Chain
	cfg      config.OptimizerConfig
}

type RunnerParams struct {
	Metrics  platform.MetricsSource
	Entities platform.EntityReader
	Lister   platform.EntityLister
	States   store.StateStore
	Exec     Executor
	Chain    *policy.Chain
	Config   config.OptimizerConfig
}

func NewRunner(p RunnerParams) *Runner {
	return &Runner{
		metrics:  p.Metrics,
		entities: p.Entities,
		lister:   p.Lister,
		states:   p.States,
		exec:     p.Exec,
		chain:    p.Chain,
		cfg:      p.Config,
	}
}

// RunForEntity evaluates one entity. A missing upstream entity is logged and
// skipped, not an error: entities get deleted out from under scheduled sweeps
// all the time. A lost optimistic-concurrency race is likewise a skip.
func (r *Runner) RunForEntity(ctx context.Context, entityType types.EntityType, entityID string) error {
	traceID := uuid.NewString()[:8]

	summary, err := r.metrics.GetEntitySummary(ctx, entityType, entityID, r.cfg.WindowDays)
	if err != nil {
		if errors.Is(err, platform.ErrEntityNotFound) {
			logger.Infof("[%s] %s %s no longer exists upstream, skipping", traceID, entityType, entityID)
			return nil
		}
		return fmt.Errorf("fetching summary for %s %s: %w", entityType, entityID, err)
	}

	st, err := r.loadOrSeedState(ctx, traceID, entityType, entityID)
	if err != nil || st == nil {
		return err
	}

	action, policyName := r.chain.Decide(ctx, policy.EvalContext{
		TraceID:       traceID,
		Summary:       *summary,
		CurrentBudget: st.CurrentBudget,
		TargetROAS:    st.TargetROAS,
		EntityType:    entityType,
		EntityID:      entityID,
		AccountID:     st.AccountID,
		Suggestion:    st.AISuggestion,
	})
	if action.IsNoop() {
		logger.Debugf("[%s] %s %s: no action (%s)", traceID, entityType, entityID, action.Reason)
		return nil
	}

	executed, err := r.exec.Execute(ctx, st, action, traceID)
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			logger.Warnf("[%s] %s %s: concurrent cycle won the write race, dropping %s",
				traceID, entityType, entityID, action.Type)
			return nil
		}
		return fmt.Errorf("executing %s for %s %s: %w", action.Type, entityType, entityID, err)
	}
	if executed {
		logger.Infof("[%s] %s %s: executed %s (policy %s)", traceID, entityType, entityID, action, policyName)
	}
	return nil
}

// loadOrSeedState loads persisted state, lazily creating it on first run from
// the platform entity's current budget and the default target ROAS. Returns
// (nil, nil) when the entity is gone upstream.
func (r *Runner) loadOrSeedState(ctx context.Context, traceID string, entityType types.EntityType, entityID string) (*store.OptimizationState, error) {
	st, err := r.states.Load(ctx, entityType, entityID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("loading state for %s %s: %w", entityType, entityID, err)
	}

	ent, err := r.entities.GetEntity(ctx, entityType, entityID)
	if err != nil {
		if errors.Is(err, platform.ErrEntityNotFound) {
			logger.Infof("[%s] %s %s not found on platform, skipping", traceID, entityType, entityID)
			return nil, nil
		}
		return nil, fmt.Errorf("fetching entity %s %s: %w", entityType, entityID, err)
	}
	seed := &store.OptimizationState{
		EntityType:    entityType,
		EntityID:      entityID,
		AccountID:     ent.AccountID,
		CurrentBudget: ent.DailyBudget(),
		TargetROAS:    r.cfg.Thresholds.DefaultTargetROAS,
		Status:        ent.Status,
	}
	if err := r.states.Create(ctx, seed); err != nil {
		return nil, fmt.Errorf("seeding state for %s %s: %w", entityType, entityID, err)
	}
	logger.Infof("[%s] initialized state for %s %s budget=$%.2f target_roas=%.2f",
		traceID, entityType, entityID, seed.CurrentBudget, seed.TargetROAS)
	// Reload in case a concurrent first run created the row before us.
	st, err = r.states.Load(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("reloading state for %s %s: %w", entityType, entityID, err)
	}
	return st, nil
}

// RunAll sweeps every active entity of the configured types with bounded
// concurrency. Per-entity failures are logged and never abort the batch.
func (r *Runner) RunAll(ctx context.Context) error {
	type target struct {
		entityType types.EntityType
		entityID   string
	}
	var targets []target
	for _, raw := range r.cfg.EntityTypes {
		entityType := types.EntityType(raw)
		entities, err := r.lister.ListActive(ctx, entityType)
		if err != nil {
			return fmt.Errorf("listing active %ss: %w", entityType, err)
		}
		for _, e := range entities {
			targets = append(targets, target{entityType: entityType, entityID: e.ID})
		}
	}
	if len(targets) == 0 {
		logger.Infof("batch run: no active entities")
		return nil
	}

	var failed atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.MaxConcurrency)
	for _, t := range targets {
		t := t
		eg.Go(func() error {
			if err := r.RunForEntity(egCtx, t.entityType, t.entityID); err != nil {
				failed.Add(1)
				logger.Errorf("batch run: %s %s failed: %v", t.entityType, t.entityID, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	logger.Infof("batch run complete: %d entities, %d failed", len(targets), failed.Load())
	return nil
}
