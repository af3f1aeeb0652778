package policy

import (
	"context"

	"adpilot/internal/config"
)

// StopLossPolicy contains risk: entities that have burned real money with
// nothing (or nearly nothing) to show for it are paused. It runs ahead of any
// growth policy in the chain.
type StopLossPolicy struct {
	thresholds config.ThresholdsConfig
}

func NewStopLossPolicy(t config.ThresholdsConfig) *StopLossPolicy {
	return &StopLossPolicy{thresholds: t}
}

func (p *StopLossPolicy) Name() string { return "stop-loss" }

func (p *StopLossPolicy) Apply(_ context.Context, ec EvalContext) Action {
	s := ec.Summary
	if s.Spend <= p.thresholds.StopLossSpendUSD {
		return Noop("spend $%.2f below stop-loss threshold $%.2f", s.Spend, p.thresholds.StopLossSpendUSD)
	}
	if s.PurchaseValue == 0 {
		return Pause("spend $%.2f with 0 return over the window", s.Spend)
	}
	if s.ROAS < p.thresholds.StopLossROAS {
		return Pause("roas %.2f below stop-loss floor %.2f after $%.2f spend",
			s.ROAS, p.thresholds.StopLossROAS, s.Spend)
	}
	return Noop("no stop-loss condition met")
}
