package config

import (
	"fmt"
	"math"
	"strings"

	"adpilot/internal/types"
)

// Validate rejects configurations that would otherwise produce degenerate
// scores or nonsensical policy behavior at runtime. It runs at load time so
// bad agent configs fail fast instead of silently mis-scoring.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.Platform.AccessToken) == "" {
		return fmt.Errorf("platform.access_token is required")
	}
	if strings.TrimSpace(cfg.Platform.AccountID) == "" {
		return fmt.Errorf("platform.account_id is required")
	}
	for _, et := range cfg.Optimizer.EntityTypes {
		if !types.EntityType(et).Valid() {
			return fmt.Errorf("optimizer.entity_types: unknown entity type %q", et)
		}
	}
	if err := validateThresholds(cfg.Optimizer.Thresholds); err != nil {
		return err
	}
	if cfg.Advisor.Enabled && strings.TrimSpace(cfg.Advisor.APIKey) == "" {
		return fmt.Errorf("advisor.api_key is required when advisor is enabled")
	}
	return ValidateScoring(cfg.Scoring)
}

func validateThresholds(t ThresholdsConfig) error {
	if t.ScaleUpRatio <= 1 {
		return fmt.Errorf("thresholds.scale_up_ratio must exceed 1 (got %v)", t.ScaleUpRatio)
	}
	if t.ScaleDownRatio <= 0 || t.ScaleDownRatio >= 1 {
		return fmt.Errorf("thresholds.scale_down_ratio must be in (0,1) (got %v)", t.ScaleDownRatio)
	}
	if t.ScaleUpFactor <= 1 {
		return fmt.Errorf("thresholds.scale_up_factor must exceed 1 (got %v)", t.ScaleUpFactor)
	}
	if t.ScaleDownFactor <= 0 || t.ScaleDownFactor >= 1 {
		return fmt.Errorf("thresholds.scale_down_factor must be in (0,1) (got %v)", t.ScaleDownFactor)
	}
	if t.StopLossROAS >= t.DefaultTargetROAS {
		return fmt.Errorf("thresholds.stop_loss_roas (%v) must be below default_target_roas (%v)",
			t.StopLossROAS, t.DefaultTargetROAS)
	}
	return nil
}

// ValidateScoring checks the scoring model on its own so the hot-reload
// registry can reuse it before swapping in new stages.
func ValidateScoring(s ScoringConfig) error {
	if len(s.Stages) == 0 {
		return fmt.Errorf("scoring.stages must not be empty")
	}
	prevMin := math.Inf(-1)
	for i, st := range s.Stages {
		if strings.TrimSpace(st.Name) == "" {
			return fmt.Errorf("scoring.stages[%d]: name is required", i)
		}
		if st.MinSpend < 0 || st.MaxSpend <= st.MinSpend {
			return fmt.Errorf("scoring.stages[%d] (%s): invalid spend range [%v, %v)",
				i, st.Name, st.MinSpend, st.MaxSpend)
		}
		if st.MinSpend < prevMin {
			return fmt.Errorf("scoring.stages[%d] (%s): stages must be ordered by min_spend", i, st.Name)
		}
		prevMin = st.MinSpend
		if len(st.Weights) == 0 {
			return fmt.Errorf("scoring.stages[%d] (%s): weights must not be empty", i, st.Name)
		}
		sum := 0.0
		for metric, w := range st.Weights {
			if w <= 0 {
				return fmt.Errorf("scoring.stages[%d] (%s): weight for %s must be positive", i, st.Name, metric)
			}
			if !types.ObservableMetric(metric) {
				return fmt.Errorf("scoring.stages[%d] (%s): metric %s is not observable on entity summaries", i, st.Name, metric)
			}
			if _, ok := s.Baselines[metric]; !ok {
				return fmt.Errorf("scoring.stages[%d] (%s): no baseline configured for metric %s", i, st.Name, metric)
			}
			sum += w
		}
		if math.Abs(sum-1) > 0.01 {
			return fmt.Errorf("scoring.stages[%d] (%s): weights sum to %.4f, want 1", i, st.Name, sum)
		}
	}
	for metric, b := range s.Baselines {
		if b < 0 {
			return fmt.Errorf("scoring.baselines: baseline for %s must not be negative", metric)
		}
	}
	if s.MomentumSensitivity < 0 || s.MomentumSensitivity > 5 {
		return fmt.Errorf("scoring.momentum_sensitivity must be in [0,5] (got %v)", s.MomentumSensitivity)
	}
	for name, p := range s.Platforms {
		if p.BoostFactor < 0 {
			return fmt.Errorf("scoring.platforms[%s]: boost_factor must not be negative", name)
		}
	}
	return nil
}
