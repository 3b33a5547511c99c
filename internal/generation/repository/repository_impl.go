package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/dreamforge/internal/generation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, artifact *domain.Artifact) error {
	return db.WithContext(ctx).Create(artifact).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Artifact, error) {
	var item domain.Artifact
	err := db.WithContext(ctx).Where("id = ?", id).Take(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListByAccount(ctx context.Context, db *gorm.DB, accountID string, limit int) ([]domain.Artifact, error) {
	var items []domain.Artifact
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
