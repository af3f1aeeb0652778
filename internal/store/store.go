// Package store persists per-entity optimization state: the current budget
// and status mirror, the advisor's annotation, and the append-only action
// history that forms the audit trail. Records are never deleted.
package store

import (
	"context"
	"errors"
	"time"

	"adpilot/internal/types"
)

var (
	// ErrNotFound marks a missing state record; first runs lazily create one.
	ErrNotFound = errors.New("optimization state not found")
	// ErrVersionConflict marks an optimistic-concurrency failure: the record
	// changed between read and write, typically two overlapping triggers for
	// the same entity. The losing cycle drops its action.
	ErrVersionConflict = errors.New("optimization state version conflict")
)

// HistoryCap bounds the in-record history length; the newest entries win.
const HistoryCap = 200

// ActionDetails is the full decided action as recorded in history.
type ActionDetails struct {
	Type      string  `json:"type"`
	NewBudget float64 `json:"new_budget,omitempty"`
	Reason    string  `json:"reason"`
}

// HistoryEntry is one confirmed execution in the audit trail.
type HistoryEntry struct {
	Action    string        `json:"action"`
	Reason    string        `json:"reason"`
	Timestamp time.Time     `json:"timestamp"`
	TraceID   string        `json:"trace_id,omitempty"`
	Details   ActionDetails `json:"details"`
}

// OptimizationState is the durable per-entity record, keyed uniquely by
// (entity type, entity id).
type OptimizationState struct {
	EntityType     types.EntityType
	EntityID       string
	AccountID      string
	CurrentBudget  float64
	TargetROAS     float64
	Status         string
	BidAmount      float64
	LastAction     string
	LastActionTime time.Time
	History        []HistoryEntry
	AISuggestion   *types.AISuggestion
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StateUpdate carries the post-execution field changes; nil fields are left
// untouched.
type StateUpdate struct {
	CurrentBudget *float64
	Status        *string
}

// StateStore is the persistence contract for optimization state.
type StateStore interface {
	// Load returns the state for the key, or ErrNotFound.
	Load(ctx context.Context, entityType types.EntityType, entityID string) (*OptimizationState, error)
	// Create inserts a freshly seeded state. Losing a create race to a
	// concurrent cycle is not an error; the existing row stays.
	Create(ctx context.Context, st *OptimizationState) error
	// RecordAction appends entry to the history and applies update, guarded
	// by st.Version. On success st is mutated to match the stored record;
	// on a stale version it returns ErrVersionConflict and stores nothing.
	RecordAction(ctx context.Context, st *OptimizationState, entry HistoryEntry, update StateUpdate) error
	// SaveSuggestion overwrites the advisor annotation independently of the
	// action history.
	SaveSuggestion(ctx context.Context, entityType types.EntityType, entityID string, s types.AISuggestion) error
	// List returns every persisted state, newest update first.
	List(ctx context.Context) ([]OptimizationState, error)
	Close() error
}
