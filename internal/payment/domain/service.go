package domain

import (
	"context"
	"net/http"

	"gorm.io/gorm"
)

// PaymentAdapter turns one provider's webhook into the canonical PurchaseEvent.
type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Identify(ctx context.Context, payload []byte, headers http.Header) (EventRef, error)
	// Accepts reports whether the event type is on the provider's allow-list.
	Accepts(eventType string) bool
	Parse(ctx context.Context, payload []byte, headers http.Header) (*PurchaseEvent, error)
}

type AdapterConfig struct {
	Provider      string
	WebhookSecret string
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}

type SalesFilter struct {
	Provider string
	Limit    int
}

type Repository interface {
	InsertPurchase(ctx context.Context, db *gorm.DB, record *PurchaseRecord) (bool, error)
	ListPurchases(ctx context.Context, db *gorm.DB, filter SalesFilter) ([]PurchaseRecord, error)
}

// WebhookResult describes how a delivery was handled.
type WebhookResult struct {
	Outcome Outcome
	EventID string
	Status  PurchaseStatus
	Credits int64
}

type Service interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*WebhookResult, error)
	ListSales(ctx context.Context, filter SalesFilter) ([]PurchaseRecord, error)
	ConfiguredProviders() map[string]bool
}
