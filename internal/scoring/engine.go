// Package scoring turns an entity's recent performance into a normalized
// 0-100 score with a lifecycle stage and a trend/momentum breakdown. It is
// pure computation; nothing here performs I/O.
package scoring

import (
	"math"

	"adpilot/internal/config"
	"adpilot/internal/types"
)

// baselineAnchor maps "performing exactly at baseline" to a 60/100 score.
// The model is deliberately linear: 2x better than baseline lands near 90,
// 2x worse near 30.
const baselineAnchor = 60.0

// ScoreResult is the engine's full, explainable output for one evaluation.
type ScoreResult struct {
	FinalScore          float64            `json:"final_score"`
	BaseScore           float64            `json:"base_score"`
	MomentumBonus       float64            `json:"momentum_bonus"`
	Stage               string             `json:"stage"`
	MetricContributions map[string]float64 `json:"metric_contributions"`
	Slopes              map[string]float64 `json:"slopes"`
}

// Engine binds the pure evaluation to a live scoring model and platform name.
type Engine struct {
	registry *config.ScoringRegistry
	platform string
}

func NewEngine(registry *config.ScoringRegistry, platform string) *Engine {
	return &Engine{registry: registry, platform: platform}
}

// Evaluate scores summary against the currently active scoring model.
func (e *Engine) Evaluate(summary types.EntitySummary) ScoreResult {
	return Evaluate(summary, e.registry.Current().Scoring, e.platform)
}

// Evaluate is the pure scoring function: stage selection, per-metric
// normalization, platform-adjusted weighting and EMA momentum.
func Evaluate(summary types.EntitySummary, cfg config.ScoringConfig, platform string) ScoreResult {
	stage := SelectStage(cfg.Stages, summary.Spend)
	profile := cfg.Profile(platform)
	weights := effectiveWeights(stage, profile)

	contributions := make(map[string]float64, len(weights))
	base := 0.0
	for metric, w := range weights {
		score := normalizeMetric(metric, metricValue(summary, metric), cfg.Baselines[metric])
		contribution := score * w
		contributions[metric] = contribution
		base += contribution
	}

	bonus, slopes := momentumBonus(summary, weights, cfg.MomentumSensitivity, profile.EMAPeriod)

	return ScoreResult{
		FinalScore:          clamp(base*(1+bonus), 0, 100),
		BaseScore:           base,
		MomentumBonus:       bonus,
		Stage:               stage.Name,
		MetricContributions: contributions,
		Slopes:              slopes,
	}
}

// SelectStage returns the first stage whose [min, max) range contains spend.
// Spend beyond every configured range falls into the last stage, which acts
// as the open-ended mature bucket.
func SelectStage(stages []config.StageConfig, spend float64) config.StageConfig {
	for _, st := range stages {
		if st.Contains(spend) {
			return st
		}
	}
	return stages[len(stages)-1]
}

// effectiveWeights applies the platform's single-weight boost for the current
// stage, then renormalizes the whole vector back to sum 1 so a boost shifts
// emphasis without inflating the score.
func effectiveWeights(stage config.StageConfig, profile config.PlatformProfile) map[string]float64 {
	out := make(map[string]float64, len(stage.Weights))
	sum := 0.0
	for metric, w := range stage.Weights {
		if profile.BoostFactor > 0 && profile.BoostStage == stage.Name && profile.BoostMetric == metric {
			w *= profile.BoostFactor
		}
		out[metric] = w
		sum += w
	}
	if sum <= 0 {
		return out
	}
	for metric := range out {
		out[metric] /= sum
	}
	return out
}

// higherIsBetter metrics score up as the value rises; the rest of the known
// metrics are cost-like and score up as the value falls.
var higherIsBetter = map[string]bool{
	types.MetricCTR:  true,
	types.MetricROAS: true,
}

func normalizeMetric(metric string, value, baseline float64) float64 {
	if higherIsBetter[metric] {
		return NormalizeHigherIsBetter(value, baseline)
	}
	return NormalizeLowerIsBetter(value, baseline)
}

// NormalizeHigherIsBetter maps a "bigger is better" metric onto [0,100] with
// the baseline anchored at 60. Zero value scores 0; a zero baseline is
// treated as trivially beaten and scores 100.
func NormalizeHigherIsBetter(value, baseline float64) float64 {
	if value == 0 {
		return 0
	}
	if baseline == 0 {
		return 100
	}
	return math.Min(100, value/baseline*baselineAnchor)
}

// NormalizeLowerIsBetter maps a cost metric onto [0,100] with the baseline at
// 60. Zero cost is a perfect 100; a zero baseline scores 0.
func NormalizeLowerIsBetter(value, baseline float64) float64 {
	if value == 0 {
		return 100
	}
	if baseline == 0 {
		return 0
	}
	return math.Max(0, math.Min(100, baseline/value*baselineAnchor))
}

func metricValue(s types.EntitySummary, metric string) float64 {
	switch metric {
	case types.MetricROAS:
		return s.ROAS
	case types.MetricCTR:
		return s.CTR
	case types.MetricCPC:
		return s.CPC
	case types.MetricSpend:
		return s.Spend
	case types.MetricCPM:
		// CPM is only carried per-day; use the most recent day.
		if n := len(s.Last7Days); n > 0 {
			return s.Last7Days[n-1].CPM
		}
		return 0
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
