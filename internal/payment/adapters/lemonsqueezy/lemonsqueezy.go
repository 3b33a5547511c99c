package lemonsqueezy

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/smallbiznis/dreamforge/internal/payment/adapters"
	"github.com/smallbiznis/dreamforge/internal/payment/currency"
	paymentdomain "github.com/smallbiznis/dreamforge/internal/payment/domain"
	"github.com/smallbiznis/dreamforge/internal/payment/signature"
)

const (
	SignatureHeader = "X-Signature"
	EventNameHeader = "X-Event-Name"

	EventOrderCreated                 = "order_created"
	EventSubscriptionPaymentSuccess   = "subscription_payment_success"
	EventSubscriptionPaymentSucceeded = "subscription_payment_succeeded"
)

var allowedEvents = map[string]struct{}{
	EventOrderCreated:                 {},
	EventSubscriptionPaymentSuccess:   {},
	EventSubscriptionPaymentSucceeded: {},
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return paymentdomain.ProviderLemonSqueezy
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, paymentdomain.ErrWebhookNotConfigured
	}
	return &Adapter{webhookSecret: secret}, nil
}

type Adapter struct {
	webhookSecret string
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	return signature.Verify(payload, headers.Get(SignatureHeader), a.webhookSecret)
}

func (a *Adapter) Identify(ctx context.Context, payload []byte, headers http.Header) (paymentdomain.EventRef, error) {
	var event lemonEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return paymentdomain.EventRef{}, paymentdomain.ErrInvalidPayload
	}
	ref := paymentdomain.EventRef{
		ID:   event.Data.key(),
		Type: eventName(event, headers),
	}
	if ref.ID == "" || ref.Type == "" {
		return paymentdomain.EventRef{}, paymentdomain.ErrInvalidEvent
	}
	return ref, nil
}

func (a *Adapter) Accepts(eventType string) bool {
	_, ok := allowedEvents[strings.TrimSpace(eventType)]
	return ok
}

func (a *Adapter) Parse(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.PurchaseEvent, error) {
	var event lemonEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	name := eventName(event, headers)
	if !a.Accepts(name) {
		return nil, paymentdomain.ErrEventIgnored
	}

	eventID := event.Data.key()
	if eventID == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	attrs := event.Data.Attributes
	custom := event.Meta.CustomData
	if custom == nil {
		custom = attrs.CustomData
	}

	out := &paymentdomain.PurchaseEvent{
		Provider:        paymentdomain.ProviderLemonSqueezy,
		ExternalEventID: eventID,
		EventType:       name,
		AccountID:       custom.AccountID(),
		AmountMinor:     attrs.Total.Int(),
		CurrencyCode:    currency.Normalize(attrs.Currency.String()),
		CustomerEmail:   attrs.UserEmail.String(),
		RawPayload:      payload,
	}

	if name == EventOrderCreated {
		out.ExternalTransactionID = adapters.First(event.Data.ID, attrs.Identifier)
		if attrs.FirstOrderItem != nil {
			out.VariantID = attrs.FirstOrderItem.VariantID.String()
		}
		out.CountryCode = strings.ToUpper(attrs.CountryCode.String())
	} else {
		out.ExternalTransactionID = adapters.First(attrs.OrderID, event.Data.ID)
		out.VariantID = attrs.VariantID.String()
	}
	return out, nil
}

func eventName(event lemonEvent, headers http.Header) string {
	if name := strings.TrimSpace(headers.Get(EventNameHeader)); name != "" {
		return name
	}
	return strings.TrimSpace(event.Meta.EventName)
}

type lemonEvent struct {
	Meta lemonMeta `json:"meta"`
	Data lemonData `json:"data"`
}

type lemonMeta struct {
	EventName  string               `json:"event_name"`
	CustomData *adapters.CustomData `json:"custom_data"`
}

// key identifies the delivery. Orders, subscriptions and subscription
// invoices are numbered independently, so the resource type is part of it.
func (d lemonData) key() string {
	id := d.ID.String()
	if id == "" {
		return ""
	}
	if typ := strings.TrimSpace(d.Type); typ != "" {
		return typ + ":" + id
	}
	return id
}

type lemonData struct {
	ID         adapters.Text   `json:"id"`
	Type       string          `json:"type"`
	Attributes lemonAttributes `json:"attributes"`
}

type lemonAttributes struct {
	Identifier     adapters.Text        `json:"identifier"`
	OrderID        adapters.Text        `json:"order_id"`
	VariantID      adapters.Text        `json:"variant_id"`
	Total          adapters.Text        `json:"total"`
	Currency       adapters.Text        `json:"currency"`
	UserEmail      adapters.Text        `json:"user_email"`
	CountryCode    adapters.Text        `json:"country_code"`
	FirstOrderItem *lemonOrderItem      `json:"first_order_item"`
	CustomData     *adapters.CustomData `json:"custom_data"`
}

type lemonOrderItem struct {
	VariantID adapters.Text `json:"variant_id"`
}
