package paddle

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
	SignatureHeader = "Paddle-Signature"

	EventTransactionCompleted         = "transaction.completed"
	EventSubscriptionPaymentSucceeded = "subscription.payment_succeeded"
)

var allowedEvents = map[string]struct{}{
	EventTransactionCompleted:         {},
	EventSubscriptionPaymentSucceeded: {},
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return paymentdomain.ProviderPaddle
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

// Verify accepts the hex digest with or without a "sha256=" prefix.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	return signature.Verify(payload, headers.Get(SignatureHeader), a.webhookSecret)
}

func (a *Adapter) Identify(ctx context.Context, payload []byte, headers http.Header) (paymentdomain.EventRef, error) {
	var event paddleEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return paymentdomain.EventRef{}, paymentdomain.ErrInvalidPayload
	}
	ref := paymentdomain.EventRef{ID: event.eventID(), Type: event.eventType()}
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
	var event paddleEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	eventType := event.eventType()
	if !a.Accepts(eventType) {
		return nil, paymentdomain.ErrEventIgnored
	}
	eventID := event.eventID()
	if eventID == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	data := event.Data
	custom := data.CustomData
	if custom == nil {
		custom = event.CustomData
	}

	var amount adapters.Text
	if data.Details != nil {
		amount = adapters.Text(adapters.First(data.Details.Totals.GrandTotal, data.Details.Totals.Total))
	}

	out := &paymentdomain.PurchaseEvent{
		Provider:              paymentdomain.ProviderPaddle,
		ExternalEventID:       eventID,
		EventType:             eventType,
		ExternalTransactionID: adapters.First(data.ID, event.ID, event.EventID),
		AccountID:             custom.AccountID(),
		VariantID:             event.productID(),
		AmountMinor:           amount.Int(),
		CurrencyCode:          currency.Normalize(data.CurrencyCode.String()),
		RawPayload:            payload,
	}
	if data.Customer != nil {
		out.CustomerEmail = data.Customer.Email.String()
	}
	if data.Address != nil {
		out.CountryCode = strings.ToUpper(data.Address.CountryCode.String())
	}
	return out, nil
}

type paddleEvent struct {
	EventID    adapters.Text        `json:"event_id"`
	ID         adapters.Text        `json:"id"`
	EventType  adapters.Text        `json:"event_type"`
	ProductID  adapters.Text        `json:"product_id"`
	CustomData *adapters.CustomData `json:"custom_data"`
	Data       paddleData           `json:"data"`
}

type paddleData struct {
	ID           adapters.Text        `json:"id"`
	EventType    adapters.Text        `json:"event_type"`
	ProductID    adapters.Text        `json:"product_id"`
	CurrencyCode adapters.Text        `json:"currency_code"`
	CustomData   *adapters.CustomData `json:"custom_data"`
	Items        []paddleItem         `json:"items"`
	Details      *paddleDetails       `json:"details"`
	Customer     *paddleCustomer      `json:"customer"`
	Address      *paddleAddress       `json:"address"`
}

type paddleItem struct {
	ProductID adapters.Text `json:"product_id"`
	Price     *struct {
		ProductID adapters.Text `json:"product_id"`
	} `json:"price"`
}

type paddleDetails struct {
	Totals struct {
		Total      adapters.Text `json:"total"`
		GrandTotal adapters.Text `json:"grand_total"`
	} `json:"totals"`
}

type paddleCustomer struct {
	Email adapters.Text `json:"email"`
}

type paddleAddress struct {
	CountryCode adapters.Text `json:"country_code"`
}

// eventID prefers the notification id so each delivery of a recurring
// payment is its own idempotency key.
func (e paddleEvent) eventID() string {
	return adapters.First(e.EventID, e.ID, e.Data.ID)
}

func (e paddleEvent) eventType() string {
	return adapters.First(e.EventType, e.Data.EventType)
}

func (e paddleEvent) productID() string {
	candidates := []adapters.Text{e.Data.ProductID, e.ProductID}
	if e.Data.CustomData != nil {
		candidates = append(candidates, e.Data.CustomData.ProductID)
	}
	if e.CustomData != nil {
		candidates = append(candidates, e.CustomData.ProductID)
	}
	for _, item := range e.Data.Items {
		candidates = append(candidates, item.ProductID)
		if item.Price != nil {
			candidates = append(candidates, item.Price.ProductID)
		}
	}
	return adapters.First(candidates...)
}
