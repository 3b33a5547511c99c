package domain

import (
	"context"

	"gorm.io/gorm"
)

// EnsureRequest carries the identity attributes known at first sign-in.
type EnsureRequest struct {
	ID    string
	Email string
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Account, error)
	Insert(ctx context.Context, db *gorm.DB, account *Account) (bool, error)
}

type Service interface {
	Get(ctx context.Context, id string) (*Account, error)
	EnsureAccount(ctx context.Context, req EnsureRequest) (*Account, error)
}
