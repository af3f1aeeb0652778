package policy

import (
	"context"
	"testing"
	"time"

	"adpilot/internal/advisor"
	"adpilot/internal/config"
	"adpilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testThresholds() config.ThresholdsConfig {
	return config.ThresholdsConfig{
		StopLossSpendUSD:  100,
		StopLossROAS:      0.2,
		ScaleMinSpendUSD:  50,
		ScaleUpRatio:      1.2,
		ScaleDownRatio:    0.7,
		ScaleUpFactor:     1.2,
		ScaleDownFactor:   0.8,
		BudgetFloorUSD:    10,
		DefaultTargetROAS: 1.0,
	}
}

func testAdvisorConfig() config.AdvisorConfig {
	return config.AdvisorConfig{MinSpendUSD: 50, StalenessHours: 12, TimeoutSeconds: 5}
}

type MockModel struct {
	mock.Mock
}

func (m *MockModel) Analyze(ctx context.Context, summary types.EntitySummary, currentBudget, targetROAS float64) (advisor.Advice, error) {
	args := m.Called(ctx, summary, currentBudget, targetROAS)
	return args.Get(0).(advisor.Advice), args.Error(1)
}

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) SaveSuggestion(ctx context.Context, entityType types.EntityType, entityID string, s types.AISuggestion) error {
	args := m.Called(ctx, entityType, entityID, s)
	return args.Error(0)
}

func evalCtx(summary types.EntitySummary, budget, target float64) EvalContext {
	return EvalContext{
		TraceID:       "test",
		Summary:       summary,
		CurrentBudget: budget,
		TargetROAS:    target,
		EntityType:    types.EntityCampaign,
		EntityID:      "cmp-1",
		AccountID:     "act-1",
	}
}

func TestStopLossPausesZeroReturn(t *testing.T) {
	p := NewStopLossPolicy(testThresholds())
	action := p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 150, PurchaseValue: 0}, 50, 1.0))
	assert.Equal(t, ActionPauseEntity, action.Type)
	assert.Contains(t, action.Reason, "0 return")
}

func TestStopLossPausesLowROAS(t *testing.T) {
	p := NewStopLossPolicy(testThresholds())
	action := p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 150, PurchaseValue: 20, ROAS: 0.13}, 50, 1.0))
	assert.Equal(t, ActionPauseEntity, action.Type)
}

func TestStopLossNoopBelowSpendGate(t *testing.T) {
	p := NewStopLossPolicy(testThresholds())
	action := p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 80, PurchaseValue: 0}, 50, 1.0))
	assert.True(t, action.IsNoop())
}

func TestRoasScaleUp(t *testing.T) {
	p := NewRoasScalePolicy(testThresholds())
	// Scenario: spend $200, purchase value $480, roas 2.4 against target 1.0.
	action := p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 200, PurchaseValue: 480, ROAS: 2.4}, 50, 1.0))
	assert.Equal(t, ActionAdjustBudget, action.Type)
	assert.Equal(t, 60.0, action.NewBudget)
}

func TestRoasScaleUpInclusiveBoundary(t *testing.T) {
	p := NewRoasScalePolicy(testThresholds())
	action := p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 50.01, ROAS: 1.2, PurchaseValue: 60}, 33.33, 1.0))
	assert.Equal(t, ActionAdjustBudget, action.Type, "roas == target*1.2 exactly must trigger")
	assert.Equal(t, 40.0, action.NewBudget) // 33.33*1.2 = 39.996 rounded to cents
}

func TestRoasScaleInsufficientData(t *testing.T) {
	p := NewRoasScalePolicy(testThresholds())
	action := p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 49.99, ROAS: 5}, 50, 1.0))
	assert.True(t, action.IsNoop())
	assert.Contains(t, action.Reason, "insufficient data")
}

func TestRoasScaleDownRespectsFloor(t *testing.T) {
	p := NewRoasScalePolicy(testThresholds())

	action := p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 120, ROAS: 0.5, PurchaseValue: 60}, 12, 1.0))
	assert.Equal(t, ActionAdjustBudget, action.Type)
	assert.Equal(t, 10.0, action.NewBudget) // 12*0.8 = 9.6, clamped to the floor

	action = p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 120, ROAS: 0.5, PurchaseValue: 60}, 10, 1.0))
	assert.True(t, action.IsNoop())
	assert.Contains(t, action.Reason, "floor")
}

func TestRoasScaleDeadBand(t *testing.T) {
	p := NewRoasScalePolicy(testThresholds())
	action := p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 120, ROAS: 1.0, PurchaseValue: 120}, 50, 1.0))
	assert.True(t, action.IsNoop())
}

func TestChainStopLossPreemptsScale(t *testing.T) {
	// Spend high enough that stop-loss, scale and the advisor gate could all
	// fire; exactly one action may come out and it must be the pause.
	model := new(MockModel)
	writer := new(MockWriter)
	model.On("Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(advisor.Advice{Analysis: "a", Strategy: types.StrategyProfit, Reasoning: "r"}, nil)
	writer.On("SaveSuggestion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	chain := NewChain(
		NewAdvisorPolicy(model, writer, testAdvisorConfig()),
		NewStopLossPolicy(testThresholds()),
		NewRoasScalePolicy(testThresholds()),
	)
	action, policyName := chain.Decide(context.Background(),
		evalCtx(types.EntitySummary{Spend: 150, PurchaseValue: 0, ROAS: 0}, 50, 1.0))
	assert.Equal(t, ActionPauseEntity, action.Type)
	assert.Equal(t, "stop-loss", policyName)
	model.AssertExpectations(t)
}

func TestChainAllNoop(t *testing.T) {
	chain := NewChain(
		NewStopLossPolicy(testThresholds()),
		NewRoasScalePolicy(testThresholds()),
	)
	// Spend below every gate: nothing to do anywhere.
	action, _ := chain.Decide(context.Background(), evalCtx(types.EntitySummary{Spend: 30}, 50, 1.0))
	assert.True(t, action.IsNoop())
}

func TestAdvisorSkipsLowSpend(t *testing.T) {
	model := new(MockModel)
	writer := new(MockWriter)
	p := NewAdvisorPolicy(model, writer, testAdvisorConfig())

	action := p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 30}, 50, 1.0))
	assert.True(t, action.IsNoop())
	model.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdvisorSkipsFreshSuggestion(t *testing.T) {
	model := new(MockModel)
	writer := new(MockWriter)
	p := NewAdvisorPolicy(model, writer, testAdvisorConfig())
	now := time.Now()
	p.SetClock(func() time.Time { return now })

	ec := evalCtx(types.EntitySummary{Spend: 200, ROAS: 1.5}, 50, 1.0)
	ec.Suggestion = &types.AISuggestion{Strategy: types.StrategyMaintain, UpdatedAt: now.Add(-3 * time.Hour)}

	action := p.Apply(context.Background(), ec)
	assert.True(t, action.IsNoop())
	assert.Contains(t, action.Reason, "fresh")
	model.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdvisorReanalyzesStaleSuggestion(t *testing.T) {
	model := new(MockModel)
	writer := new(MockWriter)
	p := NewAdvisorPolicy(model, writer, testAdvisorConfig())
	now := time.Now()
	p.SetClock(func() time.Time { return now })

	model.On("Analyze", mock.Anything, mock.Anything, 50.0, 1.0).
		Return(advisor.Advice{Analysis: "scaling works", Strategy: types.StrategyGrowth, Reasoning: "r"}, nil)
	writer.On("SaveSuggestion", mock.Anything, types.EntityCampaign, "cmp-1",
		mock.MatchedBy(func(s types.AISuggestion) bool {
			return s.Strategy == types.StrategyGrowth && s.UpdatedAt.Equal(now)
		})).Return(nil)

	ec := evalCtx(types.EntitySummary{Spend: 200, ROAS: 2.5}, 50, 1.0)
	ec.Suggestion = &types.AISuggestion{Strategy: types.StrategyMaintain, UpdatedAt: now.Add(-13 * time.Hour)}

	action := p.Apply(context.Background(), ec)
	assert.True(t, action.IsNoop(), "the advisor never acts on its own")
	model.AssertExpectations(t)
	writer.AssertExpectations(t)
}

func TestAdvisorFallsBackWhenModelUnavailable(t *testing.T) {
	model := new(MockModel)
	writer := new(MockWriter)
	p := NewAdvisorPolicy(model, writer, testAdvisorConfig())

	model.On("Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(advisor.Advice{}, assert.AnError)
	writer.On("SaveSuggestion", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(s types.AISuggestion) bool {
			return s.Strategy == types.StrategyGrowth // heuristic: roas above 2.0
		})).Return(nil)

	action := p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 200, ROAS: 2.5}, 50, 1.0))
	assert.True(t, action.IsNoop())
	writer.AssertExpectations(t)
}

func TestAdvisorSwallowsWriterFailure(t *testing.T) {
	model := new(MockModel)
	writer := new(MockWriter)
	p := NewAdvisorPolicy(model, writer, testAdvisorConfig())

	model.On("Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(advisor.Advice{Analysis: "a", Strategy: types.StrategyMaintain, Reasoning: "r"}, nil)
	writer.On("SaveSuggestion", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError)

	action := p.Apply(context.Background(), evalCtx(types.EntitySummary{Spend: 200, ROAS: 1.0}, 50, 1.0))
	assert.True(t, action.IsNoop(), "a persistence failure must not surface as a chain failure")
}
