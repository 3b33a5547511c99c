package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	accountdomain "github.com/smallbiznis/dreamforge/internal/account/domain"
	"github.com/smallbiznis/dreamforge/internal/clock"
	"github.com/smallbiznis/dreamforge/internal/config"
	creditpackdomain "github.com/smallbiznis/dreamforge/internal/creditpack/domain"
	creditpackrepo "github.com/smallbiznis/dreamforge/internal/creditpack/repository"
	creditpackservice "github.com/smallbiznis/dreamforge/internal/creditpack/service"
	"github.com/smallbiznis/dreamforge/internal/idempotency"
	ledgerdomain "github.com/smallbiznis/dreamforge/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/dreamforge/internal/ledger/service"
	"github.com/smallbiznis/dreamforge/internal/payment/adapters"
	"github.com/smallbiznis/dreamforge/internal/payment/adapters/lemonsqueezy"
	"github.com/smallbiznis/dreamforge/internal/payment/adapters/paddle"
	paymentdomain "github.com/smallbiznis/dreamforge/internal/payment/domain"
	"github.com/smallbiznis/dreamforge/internal/payment/repository"
	"github.com/smallbiznis/dreamforge/internal/payment/signature"
	reconciliationdomain "github.com/smallbiznis/dreamforge/internal/reconciliation/domain"
	reconciliationservice "github.com/smallbiznis/dreamforge/internal/reconciliation/service"
	"github.com/smallbiznis/dreamforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lemonSecret = "ls_whsec"

type fixture struct {
	svc        paymentdomain.Service
	db         *gorm.DB
	reconciler reconciliationdomain.Service
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))

	packs := creditpackservice.NewService(creditpackservice.Params{DB: db, Log: log, Repo: creditpackrepo.Provide(), Clock: fake})
	require.NoError(t, packs.Upsert(context.Background(), creditpackdomain.CreditPack{
		ID:           "pack_50",
		Name:         "50 Dreams",
		CreditAmount: 50,
		IsActive:     true,
		Variants: []creditpackdomain.Variant{
			{Provider: paymentdomain.ProviderLemonSqueezy, VariantID: "456"},
			{Provider: paymentdomain.ProviderPaddle, VariantID: "pro_50"},
		},
	}))

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, GenID: node, Clock: fake})
	reconciler := reconciliationservice.NewService(reconciliationservice.Params{
		DB: db, Log: log, GenID: node, Clock: fake, LedgerSvc: ledgerSvc,
	})

	svc := NewService(Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Cfg:        cfg,
		Adapters:   adapters.NewRegistry(lemonsqueezy.NewFactory(), paddle.NewFactory()),
		Guard:      idempotency.NewGuard(idempotency.Params{Log: log, Clock: fake}),
		Repo:       repository.Provide(),
		Packs:      packs,
		LedgerSvc:  ledgerSvc,
		Reconciler: reconciler,
	})
	return &fixture{svc: svc, db: db, reconciler: reconciler}
}

func lemonConfig() config.Config {
	cfg := config.Config{}
	cfg.Webhooks.LemonSqueezySecret = lemonSecret
	return cfg
}

func (f *fixture) seedAccount(t *testing.T, id string, balance int64) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&accountdomain.Account{
		ID: id, CreditBalance: balance, Tier: accountdomain.TierFree, Role: accountdomain.RoleUser,
		CreatedAt: now, UpdatedAt: now,
	}).Error)
}

func (f *fixture) balance(t *testing.T, id string) int64 {
	t.Helper()
	var account accountdomain.Account
	require.NoError(t, f.db.Where("id = ?", id).Take(&account).Error)
	return account.CreditBalance
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func orderPayload(orderID, userID, variantID string, total int64, currency string) []byte {
	return []byte(fmt.Sprintf(`{
  "meta": {"event_name": "order_created", "custom_data": {"user_id": %q}},
  "data": {
    "id": %q,
    "type": "orders",
    "attributes": {
      "identifier": "ord-%s",
      "total": %d,
      "currency": %q,
      "user_email": "buyer@example.com",
      "country_code": "tr",
      "first_order_item": {"variant_id": %s}
    }
  }
}`, userID, orderID, orderID, total, currency, variantID))
}

func signed(payload []byte, secret string) http.Header {
	headers := http.Header{}
	headers.Set(lemonsqueezy.SignatureHeader, signature.Sign(payload, secret))
	return headers
}

func TestReplayedWebhookCreditsOnce(t *testing.T) {
	f := newFixture(t, lemonConfig())
	f.seedAccount(t, "user_1", 3)
	payload := orderPayload("1001", "user_1", "456", 999, "usd")
	ctx := context.Background()

	result, err := f.svc.IngestWebhook(ctx, "lemonsqueezy", payload, signed(payload, lemonSecret))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.OutcomeApplied, result.Outcome)
	assert.Equal(t, paymentdomain.PurchaseStatusApplied, result.Status)
	assert.Equal(t, int64(50), result.Credits)

	for i := 0; i < 3; i++ {
		again, err := f.svc.IngestWebhook(ctx, "LemonSqueezy", payload, signed(payload, lemonSecret))
		require.NoError(t, err)
		assert.Equal(t, paymentdomain.OutcomeDuplicate, again.Outcome)
	}

	assert.Equal(t, int64(53), f.balance(t, "user_1"))
	assert.Equal(t, int64(1), f.count(t, &ledgerdomain.Transaction{}))
	assert.Equal(t, int64(1), f.count(t, &paymentdomain.PurchaseRecord{}))

	var txn ledgerdomain.Transaction
	require.NoError(t, f.db.Take(&txn).Error)
	assert.Equal(t, "lemonsqueezy:orders:1001", txn.ReferenceID)

	var record paymentdomain.PurchaseRecord
	require.NoError(t, f.db.Take(&record).Error)
	assert.Equal(t, "9.99", record.MonetaryAmount)
	assert.Equal(t, "USD", record.CurrencyCode)
	assert.Equal(t, "TR", record.CountryCode)
	require.NotNil(t, record.PackID)
	assert.Equal(t, "pack_50", *record.PackID)
}

func TestUnmatchedPackIsRecordedWithoutCredits(t *testing.T) {
	f := newFixture(t, lemonConfig())
	f.seedAccount(t, "user_1", 0)
	payload := orderPayload("2002", "user_1", "999", 500, "JPY")

	result, err := f.svc.IngestWebhook(context.Background(), "lemonsqueezy", payload, signed(payload, lemonSecret))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.OutcomeRecorded, result.Outcome)
	assert.Equal(t, paymentdomain.PurchaseStatusUnmatchedPack, result.Status)

	assert.Equal(t, int64(0), f.balance(t, "user_1"))
	assert.Equal(t, int64(0), f.count(t, &ledgerdomain.Transaction{}))

	var record paymentdomain.PurchaseRecord
	require.NoError(t, f.db.Take(&record).Error)
	assert.Equal(t, int64(0), record.CreditAmount)
	assert.Nil(t, record.PackID)
	assert.Equal(t, "500", record.MonetaryAmount)
}

func TestUnresolvedAndMissingAccounts(t *testing.T) {
	f := newFixture(t, lemonConfig())
	ctx := context.Background()

	noUser := orderPayload("3003", "", "456", 999, "usd")
	result, err := f.svc.IngestWebhook(ctx, "lemonsqueezy", noUser, signed(noUser, lemonSecret))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.PurchaseStatusUnresolvedAccount, result.Status)

	ghost := orderPayload("3004", "ghost", "456", 999, "usd")
	result, err = f.svc.IngestWebhook(ctx, "lemonsqueezy", ghost, signed(ghost, lemonSecret))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.OutcomeRecorded, result.Outcome)
	assert.Equal(t, paymentdomain.PurchaseStatusAccountMissing, result.Status)

	assert.Equal(t, int64(0), f.count(t, &ledgerdomain.Transaction{}))
	assert.Equal(t, int64(2), f.count(t, &paymentdomain.PurchaseRecord{}))

	open, err := f.reconciler.ListOpen(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, reconciliationdomain.KindPurchaseAccountMissing, open[0].Kind)
	assert.Equal(t, "lemonsqueezy:orders:3004", open[0].ReferenceID)
}

func TestRejectedDeliveriesChangeNothing(t *testing.T) {
	f := newFixture(t, lemonConfig())
	f.seedAccount(t, "user_1", 0)
	ctx := context.Background()
	payload := orderPayload("4004", "user_1", "456", 999, "usd")

	tampered := orderPayload("4004", "user_1", "456", 1, "usd")
	_, err := f.svc.IngestWebhook(ctx, "lemonsqueezy", tampered, signed(payload, lemonSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	_, err = f.svc.IngestWebhook(ctx, "lemonsqueezy", payload, http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)

	_, err = f.svc.IngestWebhook(ctx, "paddle", payload, signed(payload, lemonSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrWebhookNotConfigured)

	_, err = f.svc.IngestWebhook(ctx, "stripe", payload, signed(payload, lemonSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrProviderNotFound)

	notJSON := []byte("not json")
	_, err = f.svc.IngestWebhook(ctx, "lemonsqueezy", notJSON, signed(notJSON, lemonSecret))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	assert.Equal(t, int64(0), f.balance(t, "user_1"))
	assert.Equal(t, int64(0), f.count(t, &paymentdomain.PurchaseRecord{}))
	assert.Equal(t, int64(0), f.count(t, &idempotency.ProcessedEvent{}))
}

func TestIgnoredEventIsAcknowledged(t *testing.T) {
	f := newFixture(t, lemonConfig())
	payload := []byte(`{"meta":{"event_name":"order_refunded"},"data":{"id":"5005","attributes":{}}}`)

	result, err := f.svc.IngestWebhook(context.Background(), "lemonsqueezy", payload, signed(payload, lemonSecret))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.OutcomeIgnored, result.Outcome)
	assert.Equal(t, int64(0), f.count(t, &paymentdomain.PurchaseRecord{}))
	assert.Equal(t, int64(1), f.count(t, &idempotency.ProcessedEvent{}))

	result, err = f.svc.IngestWebhook(context.Background(), "lemonsqueezy", payload, signed(payload, lemonSecret))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.OutcomeDuplicate, result.Outcome)
}

func TestIgnoredEventDoesNotShadowOrderWithSameID(t *testing.T) {
	f := newFixture(t, lemonConfig())
	f.seedAccount(t, "user_1", 0)
	ctx := context.Background()

	subscription := []byte(`{"meta":{"event_name":"subscription_created"},"data":{"id":"7","type":"subscriptions","attributes":{}}}`)
	result, err := f.svc.IngestWebhook(ctx, "lemonsqueezy", subscription, signed(subscription, lemonSecret))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.OutcomeIgnored, result.Outcome)

	order := orderPayload("7", "user_1", "456", 999, "usd")
	result, err = f.svc.IngestWebhook(ctx, "lemonsqueezy", order, signed(order, lemonSecret))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.OutcomeApplied, result.Outcome)

	assert.Equal(t, int64(50), f.balance(t, "user_1"))
	assert.Equal(t, int64(1), f.count(t, &paymentdomain.PurchaseRecord{}))
	assert.Equal(t, int64(2), f.count(t, &idempotency.ProcessedEvent{}))
}

func TestConcurrentDeliveriesCreditOnce(t *testing.T) {
	f := newFixture(t, lemonConfig())
	f.seedAccount(t, "user_1", 0)
	payload := orderPayload("8008", "user_1", "456", 999, "usd")

	const deliveries = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[paymentdomain.Outcome]int{}
		errs     []error
	)
	start := make(chan struct{})
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := f.svc.IngestWebhook(context.Background(), "lemonsqueezy", payload, signed(payload, lemonSecret))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			outcomes[result.Outcome]++
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 1, outcomes[paymentdomain.OutcomeApplied])
	assert.Equal(t, deliveries-1, outcomes[paymentdomain.OutcomeDuplicate])
	assert.Equal(t, int64(50), f.balance(t, "user_1"))
	assert.Equal(t, int64(1), f.count(t, &ledgerdomain.Transaction{}))
	assert.Equal(t, int64(1), f.count(t, &paymentdomain.PurchaseRecord{}))
	assert.Equal(t, int64(1), f.count(t, &idempotency.ProcessedEvent{}))
}

func TestListSalesAndConfiguredProviders(t *testing.T) {
	f := newFixture(t, lemonConfig())
	f.seedAccount(t, "user_1", 0)
	ctx := context.Background()

	for _, id := range []string{"6001", "6002"} {
		payload := orderPayload(id, "user_1", "456", 1999, "usd")
		_, err := f.svc.IngestWebhook(ctx, "lemonsqueezy", payload, signed(payload, lemonSecret))
		require.NoError(t, err)
	}

	sales, err := f.svc.ListSales(ctx, paymentdomain.SalesFilter{Provider: "LemonSqueezy"})
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "19.99", sales[0].MonetaryAmount)

	sales, err = f.svc.ListSales(ctx, paymentdomain.SalesFilter{Provider: "paddle", Limit: 500})
	require.NoError(t, err)
	assert.Empty(t, sales)

	_, err = f.svc.ListSales(ctx, paymentdomain.SalesFilter{Provider: "stripe"})
	assert.ErrorIs(t, err, paymentdomain.ErrProviderNotFound)

	assert.Equal(t, map[string]bool{
		paymentdomain.ProviderLemonSqueezy: true,
		paymentdomain.ProviderPaddle:       false,
	}, f.svc.ConfiguredProviders())
	assert.Equal(t, int64(100), f.balance(t, "user_1"))
}
