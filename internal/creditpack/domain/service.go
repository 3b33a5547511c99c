package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrInvalidPack    = errors.New("invalid_credit_pack")
	ErrInvalidVariant = errors.New("invalid_variant")
)

type Repository interface {
	FindByVariant(ctx context.Context, db *gorm.DB, provider, variantID string) (*CreditPack, error)
	List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]CreditPack, error)
	Upsert(ctx context.Context, db *gorm.DB, pack *CreditPack) error
}

type Service interface {
	// Resolve returns nil when no pack is bound to the variant.
	Resolve(ctx context.Context, provider, variantID string) (*CreditPack, error)
	List(ctx context.Context, activeOnly bool) ([]CreditPack, error)
	Upsert(ctx context.Context, pack CreditPack) error
}
