package scoring

import (
	"math/rand"
	"testing"

	"adpilot/internal/config"
	"adpilot/internal/types"

	"github.com/stretchr/testify/assert"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Stages:              config.DefaultStages(),
		Baselines:           config.DefaultBaselines(),
		MomentumSensitivity: 1.0,
		Platforms: map[string]config.PlatformProfile{
			"facebook": {EMAPeriod: 3},
		},
	}
}

func TestSelectStage(t *testing.T) {
	stages := config.DefaultStages()
	cases := []struct {
		spend float64
		want  string
	}{
		{0, "testing"},
		{99.99, "testing"},
		{100, "learning"},
		{499.99, "learning"},
		{500, "scaling"},
		{2000, "mature"},
		{1e15, "mature"}, // beyond every range: last stage wins
	}
	for _, tc := range cases {
		st := SelectStage(stages, tc.spend)
		assert.Equal(t, tc.want, st.Name, "spend=%v", tc.spend)
		if tc.spend < 1e12 {
			assert.True(t, st.Contains(tc.spend), "selected stage must contain spend %v", tc.spend)
		}
	}
}

func TestNormalizeBaselineFixedPoint(t *testing.T) {
	for _, b := range []float64{0.01, 1, 1.5, 20, 12345.6} {
		assert.Equal(t, 60.0, NormalizeHigherIsBetter(b, b))
		assert.Equal(t, 60.0, NormalizeLowerIsBetter(b, b))
	}
}

func TestNormalizeZeroGuards(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeHigherIsBetter(0, 1.5))
	assert.Equal(t, 100.0, NormalizeHigherIsBetter(2.0, 0))
	assert.Equal(t, 100.0, NormalizeLowerIsBetter(0, 1.0))
	assert.Equal(t, 0.0, NormalizeLowerIsBetter(1.0, 0))
}

func TestNormalizeLinearAnchors(t *testing.T) {
	// 2x better than baseline lands well above the anchor, 2x worse below.
	assert.InDelta(t, 100, NormalizeHigherIsBetter(3.0, 1.5), 1e-9) // capped
	assert.InDelta(t, 30, NormalizeHigherIsBetter(0.75, 1.5), 1e-9)
	assert.InDelta(t, 30, NormalizeLowerIsBetter(2.0, 1.0), 1e-9)
}

func TestFinalScoreAlwaysInRange(t *testing.T) {
	cfg := testScoringConfig()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		summary := types.EntitySummary{
			Spend: rng.Float64() * 5000,
			ROAS:  rng.Float64() * 20,
			CTR:   rng.Float64() * 0.2,
			CPC:   rng.Float64() * 10,
		}
		days := rng.Intn(9)
		for d := 0; d < days; d++ {
			summary.Last7Days = append(summary.Last7Days, types.DayMetrics{
				ROAS: rng.Float64() * 20,
				CTR:  rng.Float64() * 0.2,
				CPC:  rng.Float64() * 10,
				CPM:  rng.Float64() * 100,
			})
		}
		// Mix in the degenerate corners.
		switch i % 5 {
		case 0:
			summary.ROAS, summary.CTR, summary.CPC = 0, 0, 0
		case 1:
			summary.ROAS = 1e9
		}
		res := Evaluate(summary, cfg, "facebook")
		assert.GreaterOrEqual(t, res.FinalScore, 0.0, "iteration %d", i)
		assert.LessOrEqual(t, res.FinalScore, 100.0, "iteration %d", i)
	}
}

func TestEvaluateAtBaselineScoresSixty(t *testing.T) {
	cfg := testScoringConfig()
	summary := types.EntitySummary{
		Spend: 200, // learning stage
		ROAS:  cfg.Baselines[types.MetricROAS],
		CTR:   cfg.Baselines[types.MetricCTR],
		CPC:   cfg.Baselines[types.MetricCPC],
	}
	res := Evaluate(summary, cfg, "facebook")
	assert.InDelta(t, 60, res.BaseScore, 1e-9)
	assert.Equal(t, "learning", res.Stage)
	assert.Zero(t, res.MomentumBonus)
	assert.InDelta(t, 60, res.FinalScore, 1e-9)
}

func TestPlatformBoostRenormalizes(t *testing.T) {
	cfg := testScoringConfig()
	cfg.Platforms["tiktok"] = config.PlatformProfile{
		EMAPeriod:   3,
		BoostStage:  "testing",
		BoostMetric: types.MetricCTR,
		BoostFactor: 2.0,
	}
	// With every metric exactly at baseline all normalized scores are 60, so
	// any boost that inflated the weight sum would push the base above 60.
	summary := types.EntitySummary{
		Spend: 50,
		ROAS:  cfg.Baselines[types.MetricROAS],
		CTR:   cfg.Baselines[types.MetricCTR],
		CPC:   cfg.Baselines[types.MetricCPC],
	}
	res := Evaluate(summary, cfg, "tiktok")
	assert.InDelta(t, 60, res.BaseScore, 1e-9)

	// The boost must still shift relative emphasis: make CTR great and the
	// boosted platform should score higher than the plain one.
	summary.CTR = cfg.Baselines[types.MetricCTR] * 3
	boosted := Evaluate(summary, cfg, "tiktok")
	plain := Evaluate(summary, cfg, "facebook")
	assert.Greater(t, boosted.BaseScore, plain.BaseScore)
}

func TestMomentumNeedsHistory(t *testing.T) {
	cfg := testScoringConfig()
	summary := types.EntitySummary{Spend: 200, ROAS: 2, CTR: 0.02, CPC: 0.8}

	res := Evaluate(summary, cfg, "facebook")
	assert.Zero(t, res.MomentumBonus, "no history, no momentum")

	summary.Last7Days = []types.DayMetrics{{ROAS: 1.0}}
	res = Evaluate(summary, cfg, "facebook")
	assert.Zero(t, res.MomentumBonus, "single point, no momentum")
}

func TestMomentumRewardsImprovingROAS(t *testing.T) {
	cfg := testScoringConfig()
	summary := types.EntitySummary{Spend: 200, ROAS: 2, CTR: 0.015, CPC: 1.0}
	for i := 0; i < 7; i++ {
		summary.Last7Days = append(summary.Last7Days, types.DayMetrics{
			ROAS: 0.5 + float64(i)*0.5, // steadily improving
			CTR:  0.015,
			CPC:  1.0,
		})
	}
	res := Evaluate(summary, cfg, "facebook")
	assert.Positive(t, res.MomentumBonus)
	assert.Positive(t, res.Slopes[types.MetricROAS])
	assert.Greater(t, res.FinalScore, res.BaseScore)
}

func TestMomentumPenalizesRisingCPC(t *testing.T) {
	cfg := testScoringConfig()
	summary := types.EntitySummary{Spend: 200, ROAS: 1.5, CTR: 0.015, CPC: 2.0}
	for i := 0; i < 7; i++ {
		summary.Last7Days = append(summary.Last7Days, types.DayMetrics{
			ROAS: 1.5,
			CTR:  0.015,
			CPC:  0.5 + float64(i)*0.5, // getting more expensive
		})
	}
	res := Evaluate(summary, cfg, "facebook")
	assert.Negative(t, res.MomentumBonus)
	assert.Less(t, res.FinalScore, res.BaseScore)
}

func TestLeastSquaresSlope(t *testing.T) {
	assert.InDelta(t, 2.0, leastSquaresSlope([]float64{1, 3, 5, 7}), 1e-9)
	assert.InDelta(t, 0.0, leastSquaresSlope([]float64{4, 4, 4}), 1e-9)
	assert.Zero(t, leastSquaresSlope([]float64{1}))
}
