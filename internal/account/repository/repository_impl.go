package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/dreamforge/internal/account/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var item domain.Account
	err := db.WithContext(ctx).Where("id = ?", id).Take(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Insert never overwrites an existing row; it reports whether a row was created.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(account)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
