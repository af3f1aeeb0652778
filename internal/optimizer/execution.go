// Package optimizer orchestrates evaluation cycles: summary in, one decided
// action out, executed against the platform and recorded durably.
package optimizer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"adpilot/internal/platform"
	"adpilot/internal/policy"
	"adpilot/internal/store"

	"github.com/shopspring/decimal"
)

// ExecutionService applies a decided action against the ad platform and, only
// after the platform confirms, records it into the entity's state. A failed
// platform call leaves the state untouched so history reflects confirmed
// executions only.
type ExecutionService struct {
	client platform.Client
	states store.StateStore
}

func NewExecutionService(client platform.Client, states store.StateStore) *ExecutionService {
	return &ExecutionService{client: client, states: states}
}

// Execute returns true when a platform mutation was applied. Noops apply
// nothing and return false. The action switch is exhaustive: an unknown
// action type is an error, never a silent skip.
func (s *ExecutionService) Execute(ctx context.Context, st *store.OptimizationState, action policy.Action, traceID string) (bool, error) {
	var update store.StateUpdate
	switch action.Type {
	case policy.ActionNoop:
		return false, nil

	case policy.ActionAdjustBudget:
		if !st.EntityType.HasBudget() {
			return false, fmt.Errorf("budget adjustment is not valid for entity type %q", st.EntityType)
		}
		minor := toMinorUnits(action.NewBudget)
		if _, err := s.client.Post(ctx, st.EntityID, map[string]string{
			"daily_budget": strconv.FormatInt(minor, 10),
		}); err != nil {
			return false, err
		}
		budget := action.NewBudget
		update.CurrentBudget = &budget

	case policy.ActionPauseEntity:
		if _, err := s.client.Post(ctx, st.EntityID, map[string]string{"status": "PAUSED"}); err != nil {
			return false, err
		}
		status := "PAUSED"
		update.Status = &status

	case policy.ActionStartEntity:
		if _, err := s.client.Post(ctx, st.EntityID, map[string]string{"status": "ACTIVE"}); err != nil {
			return false, err
		}
		status := "ACTIVE"
		update.Status = &status

	default:
		return false, fmt.Errorf("unhandled action type %q", action.Type)
	}

	entry := store.HistoryEntry{
		Action:    string(action.Type),
		Reason:    action.Reason,
		Timestamp: time.Now(),
		TraceID:   traceID,
		Details: store.ActionDetails{
			Type:      string(action.Type),
			NewBudget: action.NewBudget,
			Reason:    action.Reason,
		},
	}
	if err := s.states.RecordAction(ctx, st, entry, update); err != nil {
		// The platform mutation already landed; surface the divergence
		// instead of guessing at reconciliation.
		return true, fmt.Errorf("action %s applied but state update failed: %w", action.Type, err)
	}
	return true, nil
}

// toMinorUnits converts a major-unit budget to the platform's minor currency
// unit using decimal math, so 12.34 reliably becomes 1234.
func toMinorUnits(budget float64) int64 {
	return decimal.NewFromFloat(budget).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
