package policy

import (
	"context"
	"time"

	"adpilot/internal/advisor"
	"adpilot/internal/config"
	"adpilot/internal/logger"
	"adpilot/internal/types"
)

// SuggestionWriter persists advisory annotations. The store satisfies it.
type SuggestionWriter interface {
	SaveSuggestion(ctx context.Context, entityType types.EntityType, entityID string, s types.AISuggestion) error
}

// AdvisorPolicy asks the advisory model for a strategic read on the entity
// and persists the answer for operators. It always returns a noop: the
// advisor annotates, it never acts. Failures are swallowed here and degrade
// to the heuristic fallback so a slow or broken model never blocks the chain.
type AdvisorPolicy struct {
	model  advisor.Model
	writer SuggestionWriter
	cfg    config.AdvisorConfig
	now    func() time.Time
}

func NewAdvisorPolicy(model advisor.Model, writer SuggestionWriter, cfg config.AdvisorConfig) *AdvisorPolicy {
	return &AdvisorPolicy{model: model, writer: writer, cfg: cfg, now: time.Now}
}

// SetClock overrides the time source for tests.
func (p *AdvisorPolicy) SetClock(now func() time.Time) { p.now = now }

func (p *AdvisorPolicy) Name() string { return "advisor" }

func (p *AdvisorPolicy) Apply(ctx context.Context, ec EvalContext) Action {
	if ec.Summary.Spend < p.cfg.MinSpendUSD {
		return Noop("spend $%.2f below advisor threshold $%.2f", ec.Summary.Spend, p.cfg.MinSpendUSD)
	}
	if ec.Suggestion != nil {
		age := p.now().Sub(ec.Suggestion.UpdatedAt)
		if age < p.cfg.Staleness() {
			return Noop("suggestion still fresh (age %s)", age.Truncate(time.Minute))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout())
	defer cancel()
	advice, err := p.model.Analyze(callCtx, ec.Summary, ec.CurrentBudget, ec.TargetROAS)
	if err != nil {
		logger.Warnf("[%s] advisor unavailable for %s %s, using heuristic: %v",
			ec.TraceID, ec.EntityType, ec.EntityID, err)
		advice = advisor.Fallback(ec.Summary, ec.TargetROAS)
	}

	suggestion := types.AISuggestion{
		Analysis:                  advice.Analysis,
		Strategy:                  advice.Strategy,
		SuggestedTargetROAS:       advice.SuggestedTargetROAS,
		SuggestedBudgetMultiplier: advice.SuggestedBudgetMultiplier,
		Reasoning:                 advice.Reasoning,
		UpdatedAt:                 p.now(),
	}
	if err := p.writer.SaveSuggestion(ctx, ec.EntityType, ec.EntityID, suggestion); err != nil {
		logger.Errorf("[%s] persisting suggestion for %s %s failed: %v",
			ec.TraceID, ec.EntityType, ec.EntityID, err)
		return Noop("advisory only: %s (not persisted)", advice.Strategy)
	}
	return Noop("advisory only: strategy %s recorded", advice.Strategy)
}
