package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Reason classifies a balance movement.
type Reason string

const (
	ReasonPurchase        Reason = "purchase"
	ReasonDreamUsed       Reason = "dream_used"
	ReasonRefund          Reason = "refund"
	ReasonAdminAdjustment Reason = "admin_adjustment"
)

// Transaction is an immutable ledger row. (reason, reference_id) is unique so
// the same purchase or generation can never be applied twice.
type Transaction struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	AccountID    string       `json:"accountId" gorm:"type:varchar(64);not null;index"`
	AmountDelta  int64        `json:"amountDelta" gorm:"not null"`
	BalanceAfter int64        `json:"balanceAfter" gorm:"not null"`
	Reason       Reason       `json:"reason" gorm:"type:varchar(32);not null;uniqueIndex:ux_ledger_transactions_reason_reference,priority:1"`
	ReferenceID  string       `json:"referenceId" gorm:"type:varchar(191);not null;uniqueIndex:ux_ledger_transactions_reason_reference,priority:2"`
	CreatedAt    time.Time    `json:"createdAt" gorm:"not null"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "ledger_transactions" }

type PurchaseCredit struct {
	AccountID   string
	Credits     int64
	ReferenceID string
	PackID      *string
}

// AdjustRequest sets either an absolute Target or a positive Add, never both.
type AdjustRequest struct {
	AccountID string
	Target    *int64
	Add       *int64
}

// BalanceDrift is an account whose stored balance disagrees with its ledger.
type BalanceDrift struct {
	AccountID     string `json:"accountId"`
	CreditBalance int64  `json:"creditBalance"`
	LedgerSum     int64  `json:"ledgerSum"`
}
