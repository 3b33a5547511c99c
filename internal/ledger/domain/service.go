package domain

import (
	"context"

	"github.com/smallbiznis/dreamforge/pkg/db/pagination"
	"gorm.io/gorm"
)

// Service owns every write to accounts.credit_balance. Each mutation and its
// ledger row commit together or not at all.
type Service interface {
	// WithTx binds the service to an outer transaction.
	WithTx(tx *gorm.DB) Service

	ApplyPurchase(ctx context.Context, req PurchaseCredit) (*Transaction, error)
	ApplyGenerationDebit(ctx context.Context, accountID, referenceID string) (*Transaction, error)
	AdjustCredits(ctx context.Context, req AdjustRequest) (*Transaction, error)

	ListTransactions(ctx context.Context, accountID string, page pagination.Pagination) ([]Transaction, pagination.PageInfo, error)
	FindDrift(ctx context.Context) ([]BalanceDrift, error)
}
