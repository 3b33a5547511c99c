package domain

import "time"

// CreditPack maps provider variants to a fixed credit grant.
type CreditPack struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name         string    `json:"name" gorm:"type:varchar(128);not null"`
	CreditAmount int64     `json:"creditAmount" gorm:"not null;check:chk_credit_packs_credit_amount,credit_amount > 0"`
	IsActive     bool      `json:"isActive" gorm:"not null"`
	Variants     []Variant `json:"providerVariantBindings" gorm:"foreignKey:PackID;references:ID"`
	CreatedAt    time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"not null"`
}

func (CreditPack) TableName() string { return "credit_packs" }

// Variant binds one provider's product or variant id to a pack. A provider
// variant can belong to at most one pack.
type Variant struct {
	Provider  string `json:"provider" gorm:"primaryKey;type:varchar(32)"`
	VariantID string `json:"variantId" gorm:"primaryKey;type:varchar(128)"`
	PackID    string `json:"packId" gorm:"type:varchar(64);not null;index"`
}

func (Variant) TableName() string { return "credit_pack_variants" }

// Bindings returns the provider → variant id view of the pack.
func (p CreditPack) Bindings() map[string]string {
	out := make(map[string]string, len(p.Variants))
	for _, v := range p.Variants {
		out[v.Provider] = v.VariantID
	}
	return out
}
