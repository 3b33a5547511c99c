package domain

import "time"

type Tier string

const (
	TierFree Tier = "FREE"
	TierPro  Tier = "PRO"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Account is keyed by the identity provider's user id. credit_balance is only
// ever written by the ledger service.
type Account struct {
	ID                  string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Email               string    `json:"email" gorm:"type:varchar(320)"`
	CreditBalance       int64     `json:"credits" gorm:"not null;default:0;check:chk_accounts_credit_balance,credit_balance >= 0"`
	IsBanned            bool      `json:"isBanned" gorm:"not null;default:false"`
	Tier                Tier      `json:"tier" gorm:"type:varchar(16);not null;default:FREE"`
	Role                Role      `json:"role" gorm:"type:varchar(16);not null;default:user"`
	LastPurchasedPackID *string   `json:"lastPurchasedPackId,omitempty" gorm:"type:varchar(64)"`
	CreatedAt           time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt           time.Time `json:"updatedAt" gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
