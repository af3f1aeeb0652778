package config

import "adpilot/internal/types"

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":9980"
	}
	if c.App.StatePath == "" {
		c.App.StatePath = "data/adpilot.db"
	}
	if c.Platform.Name == "" {
		c.Platform.Name = "facebook"
	}
	if c.Platform.APIURL == "" {
		c.Platform.APIURL = "https://graph.facebook.com"
	}
	if c.Platform.APIVersion == "" {
		c.Platform.APIVersion = "v19.0"
	}
	if c.Platform.TimeoutSeconds <= 0 {
		c.Platform.TimeoutSeconds = 15
	}
	if c.Advisor.Model == "" {
		c.Advisor.Model = "gpt-4o-mini"
	}
	if c.Advisor.MinSpendUSD <= 0 {
		c.Advisor.MinSpendUSD = 50
	}
	if c.Advisor.StalenessHours <= 0 {
		c.Advisor.StalenessHours = 12
	}
	if c.Advisor.MaxRetries <= 0 {
		c.Advisor.MaxRetries = 2
	}
	if c.Optimizer.SweepInterval == "" {
		c.Optimizer.SweepInterval = "1h"
	}
	if c.Optimizer.MaxConcurrency <= 0 {
		c.Optimizer.MaxConcurrency = 10
	}
	if c.Optimizer.WindowDays <= 0 {
		c.Optimizer.WindowDays = 7
	}
	if len(c.Optimizer.EntityTypes) == 0 {
		c.Optimizer.EntityTypes = []string{string(types.EntityCampaign), string(types.EntityAdSet)}
	}
	c.Optimizer.Thresholds.applyDefaults()
	c.Scoring.applyDefaults()
}

func (t *ThresholdsConfig) applyDefaults() {
	if t.StopLossSpendUSD <= 0 {
		t.StopLossSpendUSD = 100
	}
	if t.StopLossROAS <= 0 {
		t.StopLossROAS = 0.2
	}
	if t.ScaleMinSpendUSD <= 0 {
		t.ScaleMinSpendUSD = 50
	}
	if t.ScaleUpRatio <= 0 {
		t.ScaleUpRatio = 1.2
	}
	if t.ScaleDownRatio <= 0 {
		t.ScaleDownRatio = 0.7
	}
	if t.ScaleUpFactor <= 0 {
		t.ScaleUpFactor = 1.2
	}
	if t.ScaleDownFactor <= 0 {
		t.ScaleDownFactor = 0.8
	}
	if t.BudgetFloorUSD <= 0 {
		t.BudgetFloorUSD = 10
	}
	if t.DefaultTargetROAS <= 0 {
		t.DefaultTargetROAS = 1.0
	}
}

func (s *ScoringConfig) applyDefaults() {
	if len(s.Stages) == 0 {
		s.Stages = DefaultStages()
	}
	if len(s.Baselines) == 0 {
		s.Baselines = DefaultBaselines()
	}
	if s.MomentumSensitivity <= 0 {
		s.MomentumSensitivity = 1.0
	}
	if s.Platforms == nil {
		s.Platforms = map[string]PlatformProfile{
			"facebook": {EMAPeriod: 3},
			"tiktok":   {EMAPeriod: 3, BoostStage: "testing", BoostMetric: types.MetricCTR, BoostFactor: 1.5},
		}
	}
	for name, p := range s.Platforms {
		if p.EMAPeriod <= 0 {
			p.EMAPeriod = 3
			s.Platforms[name] = p
		}
	}
}

// DefaultStages is the stock lifecycle ladder: the last stage is deliberately
// open-ended and acts as the mature bucket for any spend above the ladder.
func DefaultStages() []StageConfig {
	const unbounded = 1e12
	return []StageConfig{
		{Name: "testing", MinSpend: 0, MaxSpend: 100, Weights: map[string]float64{
			types.MetricCTR: 0.45, types.MetricCPC: 0.30, types.MetricROAS: 0.25,
		}},
		{Name: "learning", MinSpend: 100, MaxSpend: 500, Weights: map[string]float64{
			types.MetricROAS: 0.40, types.MetricCTR: 0.30, types.MetricCPC: 0.30,
		}},
		{Name: "scaling", MinSpend: 500, MaxSpend: 2000, Weights: map[string]float64{
			types.MetricROAS: 0.55, types.MetricCPC: 0.25, types.MetricCTR: 0.20,
		}},
		{Name: "mature", MinSpend: 2000, MaxSpend: unbounded, Weights: map[string]float64{
			types.MetricROAS: 0.70, types.MetricCPC: 0.20, types.MetricCTR: 0.10,
		}},
	}
}

// DefaultBaselines anchor a metric at a 60/100 score when performance matches.
func DefaultBaselines() map[string]float64 {
	return map[string]float64{
		types.MetricCTR:  0.015,
		types.MetricROAS: 1.5,
		types.MetricCPC:  1.0,
		types.MetricCPM:  20,
	}
}
