// Package platform wraps the external ad platform API behind small
// interfaces so the optimizer can be exercised against test doubles.
package platform

import (
	"context"
	"errors"

	"adpilot/internal/types"
)

// ErrEntityNotFound marks an entity that no longer exists upstream. Callers
// treat it as a skip, not a failure.
var ErrEntityNotFound = errors.New("platform entity not found")

// Entity is the platform's raw view of a campaign/adset/ad.
type Entity struct {
	ID         string
	Name       string
	EntityType types.EntityType
	AccountID  string
	Status     string
	// DailyBudgetMinor is the budget in the platform's minor currency unit
	// (cents for USD accounts).
	DailyBudgetMinor int64
}

// DailyBudget converts the platform's minor-unit budget to major units.
func (e Entity) DailyBudget() float64 {
	return float64(e.DailyBudgetMinor) / 100
}

// Client posts mutations to the platform. It is the only write path the
// optimizer has; idempotency keys, if wanted, belong to the implementation.
type Client interface {
	Post(ctx context.Context, path string, params map[string]string) ([]byte, error)
}

// EntityReader fetches a single entity's raw platform state.
type EntityReader interface {
	GetEntity(ctx context.Context, entityType types.EntityType, id string) (*Entity, error)
}

// EntityLister enumerates active entities for batch sweeps.
type EntityLister interface {
	ListActive(ctx context.Context, entityType types.EntityType) ([]Entity, error)
}

// MetricsSource serves the aggregated, already-corrected performance summary
// for one entity. Aggregation and delayed-attribution correction happen
// upstream; this interface only reads the result.
type MetricsSource interface {
	GetEntitySummary(ctx context.Context, entityType types.EntityType, entityID string, windowDays int) (*types.EntitySummary, error)
}
