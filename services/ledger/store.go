package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists attempt rows. Save calls must be durable when they return.
type Store interface {
	LoadAttempts(ctx context.Context) ([]Attempt, error)
	SaveAttempt(ctx context.Context, a Attempt) error
	SaveAttempts(ctx context.Context, rows []Attempt) error
	DeleteGroupAttempts(ctx context.Context, groupID int64) (int64, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) LoadAttempts(ctx context.Context) ([]Attempt, error) {
	var rows []Attempt
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}
	return rows, nil
}

func (s *GormStore) SaveAttempt(ctx context.Context, a Attempt) error {
	return s.SaveAttempts(ctx, []Attempt{a})
}

func (s *GormStore) SaveAttempts(ctx context.Context, rows []Attempt) error {
	if len(rows) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"remaining", "blocked", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to save attempts: %w", err)
	}
	return nil
}

func (s *GormStore) DeleteGroupAttempts(ctx context.Context, groupID int64) (int64, error) {
	result := s.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&Attempt{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete attempts of group %d: %w", groupID, result.Error)
	}
	return result.RowsAffected, nil
}
