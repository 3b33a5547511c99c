package lemonsqueezy

import (
	"context"
	"net/http"
	"testing"

	paymentdomain "github.com/smallbiznis/dreamforge/internal/payment/domain"
	"github.com/smallbiznis/dreamforge/internal/payment/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderPayload = `{
  "meta": {"event_name": "order_created", "custom_data": {"user_id": "user_123"}},
  "data": {
    "id": "1001",
    "type": "orders",
    "attributes": {
      "identifier": "ord-abc",
      "total": 999,
      "currency": "usd",
      "user_email": "buyer@example.com",
      "country_code": "tr",
      "first_order_item": {"variant_id": 456}
    }
  }
}`

const subscriptionPayload = `{
  "meta": {"event_name": "subscription_payment_success"},
  "data": {
    "id": "inv_77",
    "type": "subscription-invoices",
    "attributes": {
      "order_id": 9001,
      "variant_id": "789",
      "total": "50000",
      "currency": "JPY",
      "user_email": "sub@example.com",
      "custom_data": {"userId": "user_456"}
    }
  }
}`

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{WebhookSecret: "whsec"})
	require.NoError(t, err)
	return adapter.(*Adapter)
}

func TestNewAdapterRequiresSecret(t *testing.T) {
	_, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{})
	assert.ErrorIs(t, err, paymentdomain.ErrWebhookNotConfigured)
}

func TestVerify(t *testing.T) {
	adapter := newAdapter(t)
	payload := []byte(orderPayload)

	headers := http.Header{}
	headers.Set(SignatureHeader, signature.Sign(payload, "whsec"))
	require.NoError(t, adapter.Verify(context.Background(), payload, headers))

	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '
	assert.ErrorIs(t, adapter.Verify(context.Background(), tampered, headers), paymentdomain.ErrInvalidSignature)

	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, http.Header{}), paymentdomain.ErrInvalidSignature)
}

func TestParseOrderCreated(t *testing.T) {
	adapter := newAdapter(t)

	event, err := adapter.Parse(context.Background(), []byte(orderPayload), http.Header{})
	require.NoError(t, err)

	assert.Equal(t, paymentdomain.ProviderLemonSqueezy, event.Provider)
	assert.Equal(t, "orders:1001", event.ExternalEventID)
	assert.Equal(t, "1001", event.ExternalTransactionID)
	assert.Equal(t, EventOrderCreated, event.EventType)
	assert.Equal(t, "user_123", event.AccountID)
	assert.Equal(t, "456", event.VariantID)
	assert.Equal(t, int64(999), event.AmountMinor)
	assert.Equal(t, "USD", event.CurrencyCode)
	assert.Equal(t, "TR", event.CountryCode)
	assert.Equal(t, "buyer@example.com", event.CustomerEmail)
}

func TestParseSubscriptionPayment(t *testing.T) {
	adapter := newAdapter(t)

	event, err := adapter.Parse(context.Background(), []byte(subscriptionPayload), http.Header{})
	require.NoError(t, err)

	assert.Equal(t, "subscription-invoices:inv_77", event.ExternalEventID)
	assert.Equal(t, "9001", event.ExternalTransactionID)
	assert.Equal(t, "user_456", event.AccountID)
	assert.Equal(t, "789", event.VariantID)
	assert.Equal(t, int64(50000), event.AmountMinor)
	assert.Equal(t, "JPY", event.CurrencyCode)
}

func TestEventNameHeaderWins(t *testing.T) {
	adapter := newAdapter(t)
	headers := http.Header{}
	headers.Set(EventNameHeader, "subscription_cancelled")

	ref, err := adapter.Identify(context.Background(), []byte(orderPayload), headers)
	require.NoError(t, err)
	assert.Equal(t, "subscription_cancelled", ref.Type)
	assert.False(t, adapter.Accepts(ref.Type))

	_, err = adapter.Parse(context.Background(), []byte(orderPayload), headers)
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)
}

func TestIdentifyScopesIDByResourceType(t *testing.T) {
	adapter := newAdapter(t)
	subscription := `{"meta":{"event_name":"subscription_created"},"data":{"id":"7","type":"subscriptions"}}`
	order := `{"meta":{"event_name":"order_created"},"data":{"id":"7","type":"orders"}}`

	subRef, err := adapter.Identify(context.Background(), []byte(subscription), http.Header{})
	require.NoError(t, err)
	orderRef, err := adapter.Identify(context.Background(), []byte(order), http.Header{})
	require.NoError(t, err)

	assert.Equal(t, "subscriptions:7", subRef.ID)
	assert.Equal(t, "orders:7", orderRef.ID)

	untyped, err := adapter.Identify(context.Background(), []byte(`{"meta":{"event_name":"order_created"},"data":{"id":"7"}}`), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, "7", untyped.ID)
}

func TestIdentifyRejectsMalformed(t *testing.T) {
	adapter := newAdapter(t)

	_, err := adapter.Identify(context.Background(), []byte(`not json`), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	_, err = adapter.Identify(context.Background(), []byte(`{"meta":{"event_name":"order_created"},"data":{}}`), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent)
}

func TestParseWithoutCorrelation(t *testing.T) {
	adapter := newAdapter(t)
	payload := `{"meta":{"event_name":"order_created"},"data":{"id":"5","attributes":{"total":100}}}`

	event, err := adapter.Parse(context.Background(), []byte(payload), http.Header{})
	require.NoError(t, err)
	assert.Empty(t, event.AccountID)
	assert.Empty(t, event.VariantID)
	assert.Equal(t, "USD", event.CurrencyCode)
}
