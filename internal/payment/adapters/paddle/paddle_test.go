package paddle

import (
	"context"
	"net/http"
	"testing"

	paymentdomain "github.com/smallbiznis/dreamforge/internal/payment/domain"
	"github.com/smallbiznis/dreamforge/internal/payment/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const transactionPayload = `{
  "event_id": "evt_01",
  "event_type": "transaction.completed",
  "data": {
    "id": "txn_01",
    "currency_code": "EUR",
    "custom_data": {"user_id": "user_1"},
    "items": [{"price": {"product_id": "pro_credits_50"}}],
    "details": {"totals": {"total": "1500", "grand_total": "1785"}},
    "customer": {"email": "buyer@example.com"},
    "address": {"country_code": "de"}
  }
}`

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{WebhookSecret: "pdl_secret"})
	require.NoError(t, err)
	return adapter.(*Adapter)
}

func TestVerifyAcceptsPrefixedSignature(t *testing.T) {
	adapter := newAdapter(t)
	payload := []byte(transactionPayload)

	headers := http.Header{}
	headers.Set(SignatureHeader, "sha256="+signature.Sign(payload, "pdl_secret"))
	require.NoError(t, adapter.Verify(context.Background(), payload, headers))

	headers.Set(SignatureHeader, signature.Sign(payload, "pdl_secret"))
	require.NoError(t, adapter.Verify(context.Background(), payload, headers))

	headers.Set(SignatureHeader, "sha256="+signature.Sign([]byte("{}"), "pdl_secret"))
	assert.ErrorIs(t, adapter.Verify(context.Background(), payload, headers), paymentdomain.ErrInvalidSignature)
}

func TestParseTransactionCompleted(t *testing.T) {
	adapter := newAdapter(t)

	event, err := adapter.Parse(context.Background(), []byte(transactionPayload), http.Header{})
	require.NoError(t, err)

	assert.Equal(t, paymentdomain.ProviderPaddle, event.Provider)
	assert.Equal(t, "evt_01", event.ExternalEventID)
	assert.Equal(t, "txn_01", event.ExternalTransactionID)
	assert.Equal(t, "user_1", event.AccountID)
	assert.Equal(t, "pro_credits_50", event.VariantID)
	assert.Equal(t, int64(1785), event.AmountMinor)
	assert.Equal(t, "EUR", event.CurrencyCode)
	assert.Equal(t, "DE", event.CountryCode)
	assert.Equal(t, "buyer@example.com", event.CustomerEmail)
}

func TestParseFallbackFields(t *testing.T) {
	adapter := newAdapter(t)
	payload := `{
	  "data": {"id": "sub_9", "event_type": "subscription.payment_succeeded"},
	  "custom_data": {"userId": "user_2", "product_id": "credits_10"}
	}`

	ref, err := adapter.Identify(context.Background(), []byte(payload), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, "sub_9", ref.ID)
	assert.Equal(t, EventSubscriptionPaymentSucceeded, ref.Type)

	event, err := adapter.Parse(context.Background(), []byte(payload), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, "user_2", event.AccountID)
	assert.Equal(t, "credits_10", event.VariantID)
	assert.Equal(t, "USD", event.CurrencyCode)
	assert.Equal(t, int64(0), event.AmountMinor)
}

func TestParseIgnoresOtherEvents(t *testing.T) {
	adapter := newAdapter(t)
	payload := `{"event_id":"evt_2","event_type":"transaction.created","data":{"id":"txn_2"}}`

	ref, err := adapter.Identify(context.Background(), []byte(payload), http.Header{})
	require.NoError(t, err)
	assert.False(t, adapter.Accepts(ref.Type))

	_, err = adapter.Parse(context.Background(), []byte(payload), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)
}

func TestIdentifyRequiresEventID(t *testing.T) {
	adapter := newAdapter(t)

	_, err := adapter.Identify(context.Background(), []byte(`{"event_type":"transaction.completed"}`), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent)
}
