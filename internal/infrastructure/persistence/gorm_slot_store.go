package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartSnapshotModel is the row holding one slot
type CartSnapshotModel struct {
	SlotKey   string    `gorm:"column:slot_key;primaryKey;size:255"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (CartSnapshotModel) TableName() string {
	return "cart_snapshots"
}

// GormSlotStore keeps slots in a SQL table
type GormSlotStore struct {
	db    *gorm.DB
	owned *Database
}

// NewGormSlotStore creates a store over an open connection.
// Call Migrate before first use on a fresh database.
func NewGormSlotStore(db *gorm.DB) *GormSlotStore {
	return &GormSlotStore{db: db}
}

// Migrate creates the cart_snapshots table if it does not exist
func (s *GormSlotStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&CartSnapshotModel{}); err != nil {
		return fmt.Errorf("failed to migrate cart_snapshots: %w", err)
	}
	return nil
}

// Get reads the payload stored under key
func (s *GormSlotStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var model CartSnapshotModel
	err := s.db.WithContext(ctx).Where("slot_key = ?", key).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	return []byte(model.Payload), true, nil
}

// Put inserts or overwrites the payload stored under key
func (s *GormSlotStore) Put(ctx context.Context, key string, payload []byte) error {
	model := CartSnapshotModel{
		SlotKey:   key,
		Payload:   string(payload),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	return nil
}

// Close closes the connection when the store opened it itself
func (s *GormSlotStore) Close() error {
	if s.owned == nil {
		return nil
	}
	return s.owned.Close()
}

var _ SlotStore = (*GormSlotStore)(nil)
