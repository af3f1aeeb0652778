// Package app wires configuration, storage, the platform client, the policy
// chain and the trigger surfaces into a runnable process.
package app

import (
	"context"
	"fmt"
	"time"

	"adpilot/internal/advisor"
	"adpilot/internal/config"
	"adpilot/internal/logger"
	"adpilot/internal/optimizer"
	"adpilot/internal/platform"
	"adpilot/internal/policy"
	"adpilot/internal/scheduler"
	"adpilot/internal/scoring"
	"adpilot/internal/store"
	"adpilot/internal/store/gormstore"
	httpapi "adpilot/internal/transport/http"
	"adpilot/internal/types"
)

// App holds the assembled process.
type App struct {
	cfg    *config.Config
	states store.StateStore
	runner *optimizer.Runner
	server *httpapi.Server
}

// New builds the full dependency graph from configuration.
func New(cfg *config.Config) (*App, error) {
	states, err := gormstore.New(cfg.App.StatePath)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	graph, err := platform.NewGraphClient(cfg.Platform)
	if err != nil {
		states.Close()
		return nil, fmt.Errorf("building platform client: %w", err)
	}
	metrics := platform.NewInsightsSource(graph)

	registry, err := config.NewScoringRegistry(cfg.Scoring)
	if err != nil {
		states.Close()
		return nil, fmt.Errorf("building scoring registry: %w", err)
	}
	engine := scoring.NewEngine(registry, cfg.Platform.Name)

	var model advisor.Model
	if cfg.Advisor.Enabled {
		model = advisor.NewChatModel(advisor.NewChatClient(cfg.Advisor))
	} else {
		model = heuristicOnly{}
	}

	chain := policy.NewChain(
		policy.NewAdvisorPolicy(model, states, cfg.Advisor),
		policy.NewStopLossPolicy(cfg.Optimizer.Thresholds),
		policy.NewRoasScalePolicy(cfg.Optimizer.Thresholds),
	)
	exec := optimizer.NewExecutionService(graph, states)
	runner := optimizer.NewRunner(optimizer.RunnerParams{
		Metrics:  metrics,
		Entities: graph,
		Lister:   graph,
		States:   states,
		Exec:     exec,
		Chain:    chain,
		Config:   cfg.Optimizer,
	})

	server, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:       cfg.App.HTTPAddr,
		Runner:     runner,
		States:     states,
		Scoring:    engine,
		Metrics:    metrics,
		WindowDays: cfg.Optimizer.WindowDays,
	})
	if err != nil {
		states.Close()
		return nil, fmt.Errorf("building http server: %w", err)
	}

	return &App{cfg: cfg, states: states, runner: runner, server: server}, nil
}

// Run starts the HTTP server and the sweep scheduler and blocks until ctx is
// canceled.
func (a *App) Run(ctx context.Context) error {
	defer a.states.Close()

	interval, ok := scheduler.ParseInterval(a.cfg.Optimizer.SweepInterval)
	if !ok {
		return fmt.Errorf("invalid optimizer.sweep_interval %q", a.cfg.Optimizer.SweepInterval)
	}
	sched := scheduler.NewAlignedScheduler(ctx, interval,
		secondsToDuration(a.cfg.Optimizer.SweepOffsetSeconds))
	sched.RunImmediately = a.cfg.Optimizer.RunImmediately

	go sched.Start(func() {
		if err := a.runner.RunAll(ctx); err != nil {
			logger.Errorf("scheduled batch run failed: %v", err)
		}
	})

	return a.server.Run(ctx)
}

func secondsToDuration(s int) time.Duration {
	if s < 0 {
		s = 0
	}
	return time.Duration(s) * time.Second
}

// heuristicOnly serves the fallback heuristic when no LLM is configured, so
// the advisory channel stays populated either way.
type heuristicOnly struct{}

func (heuristicOnly) Analyze(_ context.Context, summary types.EntitySummary, _, targetROAS float64) (advisor.Advice, error) {
	return advisor.Fallback(summary, targetROAS), nil
}
