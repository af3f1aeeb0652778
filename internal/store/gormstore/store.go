// Package gormstore implements the state store on Gorm + SQLite.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adpilot/internal/store"
	storemodel "adpilot/internal/store/model"
	"adpilot/internal/types"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type stateModel = storemodel.OptimizationStateModel

// Store is the SQLite-backed StateStore.
type Store struct {
	db *gorm.DB
}

var _ store.StateStore = (*Store)(nil)

// New opens (or creates) the database at path and migrates the schema.
func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: state path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&stateModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a little parallelism for HTTP reads while keeping lock
	// contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

// NewMemory opens a private in-memory store, used by tests.
func NewMemory() (*Store, error) {
	dsn := fmt.Sprintf("file:mem_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&stateModel{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Load(ctx context.Context, entityType types.EntityType, entityID string) (*store.OptimizationState, error) {
	var m stateModel
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", string(entityType), entityID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromModel(m)
}

func (s *Store) Create(ctx context.Context, st *store.OptimizationState) error {
	if st == nil {
		return fmt.Errorf("gorm store: nil state")
	}
	now := time.Now()
	if st.CreatedAt.IsZero() {
		st.CreatedAt = now
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = now
	}
	if st.Version == 0 {
		st.Version = 1
	}
	m, err := toModel(*st)
	if err != nil {
		return err
	}
	// A concurrent first run may have created the row already; keep theirs.
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}},
			DoNothing: true,
		}).
		Create(&m).Error
}

func (s *Store) RecordAction(ctx context.Context, st *store.OptimizationState, entry store.HistoryEntry, update store.StateUpdate) error {
	if st == nil {
		return fmt.Errorf("gorm store: nil state")
	}
	history := append(append([]store.HistoryEntry{}, st.History...), entry)
	if len(history) > store.HistoryCap {
		history = history[len(history)-store.HistoryCap:]
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return err
	}
	now := time.Now()
	fields := map[string]any{
		"last_action":    entry.Action,
		"last_action_at": entry.Timestamp.Unix(),
		"history_json":   datatypes.JSON(historyJSON),
		"version":        st.Version + 1,
		"updated_at":     now.Unix(),
	}
	if update.CurrentBudget != nil {
		fields["current_budget"] = *update.CurrentBudget
	}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	res := s.db.WithContext(ctx).
		Model(&stateModel{}).
		Where("entity_type = ? AND entity_id = ? AND version = ?",
			string(st.EntityType), st.EntityID, st.Version).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrVersionConflict
	}
	st.History = history
	st.LastAction = entry.Action
	st.LastActionTime = entry.Timestamp
	st.Version++
	st.UpdatedAt = now
	if update.CurrentBudget != nil {
		st.CurrentBudget = *update.CurrentBudget
	}
	if update.Status != nil {
		st.Status = *update.Status
	}
	return nil
}

func (s *Store) SaveSuggestion(ctx context.Context, entityType types.EntityType, entityID string, sugg types.AISuggestion) error {
	raw, err := json.Marshal(sugg)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Model(&stateModel{}).
		Where("entity_type = ? AND entity_id = ?", string(entityType), entityID).
		Updates(map[string]any{
			"suggestion_json": datatypes.JSON(raw),
			"updated_at":      time.Now().Unix(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]store.OptimizationState, error) {
	var models []stateModel
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]store.OptimizationState, 0, len(models))
	for _, m := range models {
		st, err := fromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

func toModel(st store.OptimizationState) (stateModel, error) {
	historyJSON, err := json.Marshal(st.History)
	if err != nil {
		return stateModel{}, err
	}
	m := stateModel{
		EntityType:    string(st.EntityType),
		EntityID:      st.EntityID,
		AccountID:     st.AccountID,
		CurrentBudget: st.CurrentBudget,
		TargetROAS:    st.TargetROAS,
		Status:        st.Status,
		BidAmount:     st.BidAmount,
		LastAction:    st.LastAction,
		HistoryJSON:   datatypes.JSON(historyJSON),
		Version:       st.Version,
		CreatedAtUnix: st.CreatedAt.Unix(),
		UpdatedAtUnix: st.UpdatedAt.Unix(),
	}
	if !st.LastActionTime.IsZero() {
		m.LastActionUnix = st.LastActionTime.Unix()
	}
	if st.AISuggestion != nil {
		raw, err := json.Marshal(st.AISuggestion)
		if err != nil {
			return stateModel{}, err
		}
		m.SuggestionJSON = datatypes.JSON(raw)
	}
	return m, nil
}

func fromModel(m stateModel) (*store.OptimizationState, error) {
	st := &store.OptimizationState{
		EntityType:    types.EntityType(m.EntityType),
		EntityID:      m.EntityID,
		AccountID:     m.AccountID,
		CurrentBudget: m.CurrentBudget,
		TargetROAS:    m.TargetROAS,
		Status:        m.Status,
		BidAmount:     m.BidAmount,
		LastAction:    m.LastAction,
		Version:       m.Version,
		CreatedAt:     time.Unix(m.CreatedAtUnix, 0),
		UpdatedAt:     time.Unix(m.UpdatedAtUnix, 0),
	}
	if m.LastActionUnix > 0 {
		st.LastActionTime = time.Unix(m.LastActionUnix, 0)
	}
	if len(m.HistoryJSON) > 0 {
		if err := json.Unmarshal(m.HistoryJSON, &st.History); err != nil {
			return nil, fmt.Errorf("decoding history for %s %s: %w", m.EntityType, m.EntityID, err)
		}
	}
	if len(m.SuggestionJSON) > 0 {
		var sugg types.AISuggestion
		if err := json.Unmarshal(m.SuggestionJSON, &sugg); err != nil {
			return nil, fmt.Errorf("decoding suggestion for %s %s: %w", m.EntityType, m.EntityID, err)
		}
		st.AISuggestion = &sugg
	}
	return st, nil
}
