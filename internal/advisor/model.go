// Package advisor wraps the LLM that annotates entities with strategic
// suggestions. The advisor informs operators and future evaluations; it never
// authorizes an automated action by itself.
package advisor

import (
	"context"

	"adpilot/internal/types"
)

// Advice is the structured output contract of an advisory model.
type Advice struct {
	Analysis                  string
	Strategy                  types.Strategy
	SuggestedTargetROAS       *float64
	SuggestedBudgetMultiplier *float64
	Reasoning                 string
}

// Model analyzes an entity's summary in the context of its current budget and
// target. Implementations are expected to be network-backed and must honor
// ctx deadlines.
type Model interface {
	Analyze(ctx context.Context, summary types.EntitySummary, currentBudget, targetROAS float64) (Advice, error)
}

// Fallback is the documented degradation path when the model is unavailable:
// a plain ROAS cut that keeps the advisory channel populated without any
// network dependency.
func Fallback(summary types.EntitySummary, targetROAS float64) Advice {
	switch {
	case summary.ROAS > 2.0:
		return Advice{
			Analysis:  "strong return on spend",
			Strategy:  types.StrategyGrowth,
			Reasoning: "heuristic fallback: roas above 2.0",
		}
	case summary.ROAS < 0.5:
		return Advice{
			Analysis:  "spend is not paying back",
			Strategy:  types.StrategyProfit,
			Reasoning: "heuristic fallback: roas below 0.5",
		}
	default:
		return Advice{
			Analysis:  "performance near target",
			Strategy:  types.StrategyMaintain,
			Reasoning: "heuristic fallback: roas between 0.5 and 2.0",
		}
	}
}
