package model

import "gorm.io/datatypes"

// OptimizationStateModel is the gorm mapping for persisted per-entity state.
// History and the advisor suggestion ride in JSON columns; the unique index
// on (entity_type, entity_id) backs the store's upsert key.
type OptimizationStateModel struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	EntityType     string         `gorm:"column:entity_type;uniqueIndex:idx_opt_entity,priority:1"`
	EntityID       string         `gorm:"column:entity_id;uniqueIndex:idx_opt_entity,priority:2"`
	AccountID      string         `gorm:"column:account_id"`
	CurrentBudget  float64        `gorm:"column:current_budget"`
	TargetROAS     float64        `gorm:"column:target_roas"`
	Status         string         `gorm:"column:status"`
	BidAmount      float64        `gorm:"column:bid_amount"`
	LastAction     string         `gorm:"column:last_action"`
	LastActionUnix int64          `gorm:"column:last_action_at"`
	HistoryJSON    datatypes.JSON `gorm:"column:history_json;type:TEXT"`
	SuggestionJSON datatypes.JSON `gorm:"column:suggestion_json;type:TEXT"`
	Version        int64          `gorm:"column:version"`
	CreatedAtUnix  int64          `gorm:"column:created_at"`
	UpdatedAtUnix  int64          `gorm:"column:updated_at"`
}

func (OptimizationStateModel) TableName() string { return "optimization_states" }
