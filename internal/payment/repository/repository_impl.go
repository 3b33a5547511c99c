package repository

import (
	"context"

	"github.com/smallbiznis/dreamforge/internal/payment/domain"
	"github.com/smallbiznis/dreamforge/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// InsertPurchase writes the audit row once per (provider, external_event_id)
// and reports whether this call created it.
func (r *repo) InsertPurchase(ctx context.Context, conn *gorm.DB, record *domain.PurchaseRecord) (bool, error) {
	res := conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "external_event_id"}},
			DoNothing: true,
		}).
		Create(record)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListPurchases(ctx context.Context, conn *gorm.DB, filter domain.SalesFilter) ([]domain.PurchaseRecord, error) {
	stmt := conn.WithContext(ctx).Order("created_at DESC, id DESC").Limit(filter.Limit)
	if filter.Provider != "" {
		stmt = stmt.Where("provider = ?", filter.Provider)
	}
	var items []domain.PurchaseRecord
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
