package optimizer

import (
	"context"
	"testing"

	"adpilot/internal/policy"
	"adpilot/internal/store"
	"adpilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Post(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	args := m.Called(ctx, path, params)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockStateStore struct {
	mock.Mock
}

func (m *MockStateStore) Load(ctx context.Context, entityType types.EntityType, entityID string) (*store.OptimizationState, error) {
	args := m.Called(ctx, entityType, entityID)
	if st := args.Get(0); st != nil {
		return st.(*store.OptimizationState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStateStore) Create(ctx context.Context, st *store.OptimizationState) error {
	return m.Called(ctx, st).Error(0)
}

func (m *MockStateStore) RecordAction(ctx context.Context, st *store.OptimizationState, entry store.HistoryEntry, update store.StateUpdate) error {
	return m.Called(ctx, st, entry, update).Error(0)
}

func (m *MockStateStore) SaveSuggestion(ctx context.Context, entityType types.EntityType, entityID string, s types.AISuggestion) error {
	return m.Called(ctx, entityType, entityID, s).Error(0)
}

func (m *MockStateStore) List(ctx context.Context) ([]store.OptimizationState, error) {
	args := m.Called(ctx)
	if states := args.Get(0); states != nil {
		return states.([]store.OptimizationState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStateStore) Close() error {
	return m.Called().Error(0)
}

func campaignState() *store.OptimizationState {
	return &store.OptimizationState{
		EntityType:    types.EntityCampaign,
		EntityID:      "cmp-1",
		AccountID:     "act-1",
		CurrentBudget: 50,
		TargetROAS:    1.0,
		Status:        "ACTIVE",
	}
}

func TestExecuteNoopTouchesNothing(t *testing.T) {
	client := new(MockClient)
	states := new(MockStateStore)
	svc := NewExecutionService(client, states)

	executed, err := svc.Execute(context.Background(), campaignState(), policy.Noop("nothing to do"), "t1")
	assert.NoError(t, err)
	assert.False(t, executed)
	client.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
	states.AssertNotCalled(t, "RecordAction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteAdjustBudgetMinorUnits(t *testing.T) {
	client := new(MockClient)
	states := new(MockStateStore)
	svc := NewExecutionService(client, states)

	client.On("Post", mock.Anything, "cmp-1", map[string]string{"daily_budget": "1234"}).
		Return([]byte(`{"success":true}`), nil)
	states.On("RecordAction", mock.Anything, mock.Anything,
		mock.MatchedBy(func(e store.HistoryEntry) bool {
			return e.Action == string(policy.ActionAdjustBudget) && e.TraceID == "t1" && e.Details.NewBudget == 12.34
		}),
		mock.MatchedBy(func(u store.StateUpdate) bool {
			return u.CurrentBudget != nil && *u.CurrentBudget == 12.34 && u.Status == nil
		})).Return(nil)

	executed, err := svc.Execute(context.Background(), campaignState(),
		policy.AdjustBudget(12.34, "scale up"), "t1")
	assert.NoError(t, err)
	assert.True(t, executed)
	client.AssertExpectations(t)
	states.AssertExpectations(t)
}

func TestExecuteAdjustBudgetRejectedForAds(t *testing.T) {
	client := new(MockClient)
	states := new(MockStateStore)
	svc := NewExecutionService(client, states)

	st := campaignState()
	st.EntityType = types.EntityAd

	executed, err := svc.Execute(context.Background(), st, policy.AdjustBudget(20, "scale up"), "t1")
	assert.Error(t, err)
	assert.False(t, executed)
	client.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecutePauseSetsStatus(t *testing.T) {
	client := new(MockClient)
	states := new(MockStateStore)
	svc := NewExecutionService(client, states)

	client.On("Post", mock.Anything, "cmp-1", map[string]string{"status": "PAUSED"}).
		Return([]byte(`{"success":true}`), nil)
	states.On("RecordAction", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(u store.StateUpdate) bool {
			return u.Status != nil && *u.Status == "PAUSED" && u.CurrentBudget == nil
		})).Return(nil)

	executed, err := svc.Execute(context.Background(), campaignState(), policy.Pause("bleeding"), "t1")
	assert.NoError(t, err)
	assert.True(t, executed)
	states.AssertExpectations(t)
}

func TestExecutePlatformFailureRecordsNothing(t *testing.T) {
	client := new(MockClient)
	states := new(MockStateStore)
	svc := NewExecutionService(client, states)

	client.On("Post", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	executed, err := svc.Execute(context.Background(), campaignState(), policy.Pause("bleeding"), "t1")
	assert.Error(t, err)
	assert.False(t, executed)
	states.AssertNotCalled(t, "RecordAction", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteStateFailureAfterPlatformSuccess(t *testing.T) {
	client := new(MockClient)
	states := new(MockStateStore)
	svc := NewExecutionService(client, states)

	client.On("Post", mock.Anything, mock.Anything, mock.Anything).
		Return([]byte(`{"success":true}`), nil)
	states.On("RecordAction", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError)

	executed, err := svc.Execute(context.Background(), campaignState(), policy.Pause("bleeding"), "t1")
	assert.True(t, executed, "the platform mutation did land")
	assert.ErrorContains(t, err, "state update failed")
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1234), toMinorUnits(12.34))
	assert.Equal(t, int64(1000), toMinorUnits(10))
	assert.Equal(t, int64(4000), toMinorUnits(39.996))
}
