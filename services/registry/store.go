package registry

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists group configurations. Save calls must be durable when they
// return.
type Store interface {
	LoadGroups(ctx context.Context) ([]Group, error)
	SaveGroup(ctx context.Context, g Group) error
	DeleteGroup(ctx context.Context, groupID int64) (bool, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) LoadGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	if err := s.db.WithContext(ctx).Order("id").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}
	return groups, nil
}

func (s *GormStore) SaveGroup(ctx context.Context, g Group) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"secret", "cadence", "style", "timezone", "active", "default_attempts", "handle", "updated_at"}),
	}).Create(&g).Error
	if err != nil {
		return fmt.Errorf("failed to save group %d: %w", g.ID, err)
	}
	return nil
}

func (s *GormStore) DeleteGroup(ctx context.Context, groupID int64) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&Group{}, "id = ?", groupID)
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete group %d: %w", groupID, result.Error)
	}
	return result.RowsAffected > 0, nil
}
