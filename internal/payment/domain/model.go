package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	ProviderLemonSqueezy = "lemonsqueezy"
	ProviderPaddle       = "paddle"
)

// PurchaseStatus records what the ledger did with a purchase event.
type PurchaseStatus string

const (
	PurchaseStatusApplied           PurchaseStatus = "applied"
	PurchaseStatusUnmatchedPack     PurchaseStatus = "unmatched_pack"
	PurchaseStatusUnresolvedAccount PurchaseStatus = "unresolved_account"
	PurchaseStatusAccountMissing    PurchaseStatus = "account_missing"
)

// EventRef identifies a provider notification before it is parsed.
type EventRef struct {
	ID   string
	Type string
}

// PurchaseEvent is the canonical purchase parsed by adapters. Provider field
// names never travel past this struct.
type PurchaseEvent struct {
	Provider              string
	ExternalEventID       string
	EventType             string
	ExternalTransactionID string
	AccountID             string
	VariantID             string
	AmountMinor           int64
	CurrencyCode          string
	CountryCode           string
	CustomerEmail         string
	RawPayload            []byte
}

// PurchaseRecord is the audit row written for every verified, allow-listed
// purchase notification, whether or not credits were granted.
type PurchaseRecord struct {
	ID                    snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider              string         `json:"provider" gorm:"type:varchar(32);not null;uniqueIndex:ux_purchase_events_provider_event,priority:1"`
	ExternalEventID       string         `json:"externalEventId" gorm:"type:varchar(191);not null;uniqueIndex:ux_purchase_events_provider_event,priority:2"`
	EventType             string         `json:"eventType" gorm:"type:varchar(64);not null"`
	ExternalTransactionID string         `json:"externalTransactionId" gorm:"type:varchar(191)"`
	AccountID             *string        `json:"accountId" gorm:"type:varchar(64);index"`
	PackID                *string        `json:"packId" gorm:"type:varchar(64)"`
	VariantID             string         `json:"variantId" gorm:"type:varchar(128)"`
	CreditAmount          int64          `json:"creditAmount" gorm:"not null"`
	AmountMinor           int64          `json:"amountMinor" gorm:"not null"`
	MonetaryAmount        string         `json:"monetaryAmount" gorm:"type:varchar(32);not null"`
	CurrencyCode          string         `json:"currencyCode" gorm:"type:varchar(8);not null"`
	CountryCode           string         `json:"countryCode" gorm:"type:varchar(8)"`
	CustomerEmail         string         `json:"customerEmail" gorm:"type:varchar(255)"`
	Status                PurchaseStatus `json:"status" gorm:"type:varchar(32);not null"`
	Payload               datatypes.JSON `json:"-"`
	CreatedAt             time.Time      `json:"createdAt" gorm:"not null;index"`
}

func (PurchaseRecord) TableName() string { return "purchase_events" }

// Outcome is what the webhook endpoint reports back to the caller and metrics.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeRecorded  Outcome = "recorded"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)
