package admin

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store interface {
	LoadAdmins(ctx context.Context) ([]Admin, error)
	SaveAdmin(ctx context.Context, a Admin) error
	DeleteAdmin(ctx context.Context, userID int64) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) LoadAdmins(ctx context.Context) ([]Admin, error) {
	var admins []Admin
	if err := s.db.WithContext(ctx).Order("user_id").Find(&admins).Error; err != nil {
		return nil, fmt.Errorf("failed to load admins: %w", err)
	}
	return admins, nil
}

func (s *GormStore) SaveAdmin(ctx context.Context, a Admin) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&a).Error
	if err != nil {
		return fmt.Errorf("failed to save admin %d: %w", a.UserID, err)
	}
	return nil
}

func (s *GormStore) DeleteAdmin(ctx context.Context, userID int64) error {
	if err := s.db.WithContext(ctx).Delete(&Admin{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("failed to delete admin %d: %w", userID, err)
	}
	return nil
}
