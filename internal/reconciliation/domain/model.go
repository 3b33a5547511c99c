package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/dreamforge/internal/ledger/domain"
	"gorm.io/gorm"
)

// Kind names a ledger inconsistency that needs an operator.
type Kind string

const (
	KindDebitFailedAfterPersist Kind = "debit_failed_after_persist"
	KindPurchaseAccountMissing  Kind = "purchase_account_missing"
	KindBalanceDrift            Kind = "balance_drift"
)

type Anomaly struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Kind        Kind         `json:"kind" gorm:"type:varchar(48);not null;index"`
	AccountID   string       `json:"accountId" gorm:"type:varchar(64);index"`
	ReferenceID string       `json:"referenceId" gorm:"type:varchar(191)"`
	Detail      string       `json:"detail" gorm:"type:text"`
	Resolved    bool         `json:"resolved" gorm:"not null;default:false"`
	CreatedAt   time.Time    `json:"createdAt" gorm:"not null"`
}

func (Anomaly) TableName() string { return "reconciliation_anomalies" }

type Report struct {
	CheckedAt time.Time                   `json:"checkedAt"`
	Drift     []ledgerdomain.BalanceDrift `json:"drift"`
	Recorded  []Anomaly                   `json:"recorded"`
}

type Service interface {
	// Record persists the anomaly using conn, or the service's own handle when
	// conn is nil, so callers can keep it inside their transaction.
	Record(ctx context.Context, conn *gorm.DB, anomaly Anomaly) (*Anomaly, error)
	// Alert notifies operators. Call it after the surrounding transaction commits.
	Alert(ctx context.Context, anomaly Anomaly)
	Scan(ctx context.Context) (*Report, error)
	ListOpen(ctx context.Context, limit int) ([]Anomaly, error)
}
