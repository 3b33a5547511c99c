package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/dreamforge/internal/creditpack/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByVariant(ctx context.Context, db *gorm.DB, provider, variantID string) (*domain.CreditPack, error) {
	var pack domain.CreditPack
	err := db.WithContext(ctx).
		Joins("JOIN credit_pack_variants v ON v.pack_id = credit_packs.id").
		Where("v.provider = ? AND v.variant_id = ?", provider, variantID).
		Take(&pack).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pack, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]domain.CreditPack, error) {
	stmt := db.WithContext(ctx).Preload("Variants").Order("credit_amount ASC, id ASC")
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	var packs []domain.CreditPack
	if err := stmt.Find(&packs).Error; err != nil {
		return nil, err
	}
	return packs, nil
}

// Upsert replaces the pack row and its variant bindings.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, pack *domain.CreditPack) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		variants := pack.Variants
		row := *pack
		row.Variants = nil

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "credit_amount", "is_active", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}

		if err := tx.Where("pack_id = ?", pack.ID).Delete(&domain.Variant{}).Error; err != nil {
			return err
		}
		for i := range variants {
			variants[i].PackID = pack.ID
		}
		if len(variants) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "variant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"pack_id"}),
		}).Create(&variants).Error
	})
}
