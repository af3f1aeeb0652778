package policy

import (
	"context"

	"adpilot/internal/config"

	"github.com/shopspring/decimal"
)

// RoasScalePolicy grows budgets that clearly outperform the entity's target
// ROAS and retrenches those that clearly miss it, leaving a dead band in
// between so small fluctuations do not churn the budget.
type RoasScalePolicy struct {
	thresholds config.ThresholdsConfig
}

func NewRoasScalePolicy(t config.ThresholdsConfig) *RoasScalePolicy {
	return &RoasScalePolicy{thresholds: t}
}

func (p *RoasScalePolicy) Name() string { return "roas-scale" }

func (p *RoasScalePolicy) Apply(_ context.Context, ec EvalContext) Action {
	t := p.thresholds
	s := ec.Summary
	if s.Spend < t.ScaleMinSpendUSD {
		return Noop("insufficient data: spend $%.2f below $%.2f", s.Spend, t.ScaleMinSpendUSD)
	}
	switch {
	case s.ROAS >= ec.TargetROAS*t.ScaleUpRatio:
		next := roundUSD(ec.CurrentBudget * t.ScaleUpFactor)
		return AdjustBudget(next, "roas %.2f beats target %.2f by %.0f%%, scaling budget up",
			s.ROAS, ec.TargetROAS, (t.ScaleUpRatio-1)*100)
	case s.ROAS < ec.TargetROAS*t.ScaleDownRatio:
		if ec.CurrentBudget <= t.BudgetFloorUSD {
			return Noop("already at budget floor $%.2f", t.BudgetFloorUSD)
		}
		next := roundUSD(ec.CurrentBudget * t.ScaleDownFactor)
		if next < t.BudgetFloorUSD {
			next = t.BudgetFloorUSD
		}
		return AdjustBudget(next, "roas %.2f under %.0f%% of target %.2f, scaling budget down",
			s.ROAS, t.ScaleDownRatio*100, ec.TargetROAS)
	default:
		return Noop("roas %.2f within range of target %.2f", s.ROAS, ec.TargetROAS)
	}
}

// roundUSD rounds to cents using decimal math so repeated scaling does not
// accumulate binary float drift.
func roundUSD(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
