package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/dreamforge/internal/artist/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Artist, error) {
	var item domain.Artist
	err := db.WithContext(ctx).Where("id = ?", id).Take(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.Artist, error) {
	stmt := db.WithContext(ctx).Order("sort_order ASC, name ASC")
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	var items []domain.Artist
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, artist *domain.Artist) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "style_description", "is_active", "sort_order", "updated_at"}),
	}).Create(artist).Error
}
