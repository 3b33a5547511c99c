package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dreamforge/internal/clock"
	"github.com/smallbiznis/dreamforge/internal/config"
	creditpackdomain "github.com/smallbiznis/dreamforge/internal/creditpack/domain"
	"github.com/smallbiznis/dreamforge/internal/idempotency"
	ledgerdomain "github.com/smallbiznis/dreamforge/internal/ledger/domain"
	"github.com/smallbiznis/dreamforge/internal/notify"
	obsmetrics "github.com/smallbiznis/dreamforge/internal/observability/metrics"
	"github.com/smallbiznis/dreamforge/internal/payment/adapters"
	"github.com/smallbiznis/dreamforge/internal/payment/currency"
	paymentdomain "github.com/smallbiznis/dreamforge/internal/payment/domain"
	reconciliationdomain "github.com/smallbiznis/dreamforge/internal/reconciliation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultSalesLimit = 50
	maxSalesLimit     = 200
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
	Adapters   *adapters.Registry
	Guard      *idempotency.Guard
	Repo       paymentdomain.Repository
	Packs      creditpackdomain.Service
	LedgerSvc  ledgerdomain.Service
	Reconciler reconciliationdomain.Service
	Notifier   *notify.Dispatcher  `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	registry   *adapters.Registry
	adapters   map[string]paymentdomain.PaymentAdapter
	guard      *idempotency.Guard
	repo       paymentdomain.Repository
	packs      creditpackdomain.Service
	ledgerSvc  ledgerdomain.Service
	reconciler reconciliationdomain.Service
	notifier   *notify.Dispatcher
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	log := p.Log.Named("payment.webhook")
	secrets := map[string]string{
		paymentdomain.ProviderLemonSqueezy: p.Cfg.Webhooks.LemonSqueezySecret,
		paymentdomain.ProviderPaddle:       p.Cfg.Webhooks.PaddleSecret,
	}

	// Providers without a secret have no adapter and fail closed.
	built := map[string]paymentdomain.PaymentAdapter{}
	for _, provider := range p.Adapters.Providers() {
		adapter, err := p.Adapters.NewAdapter(provider, paymentdomain.AdapterConfig{
			Provider:      provider,
			WebhookSecret: secrets[provider],
		})
		if err != nil {
			log.Warn("payment webhook not configured", zap.String("provider", provider))
			continue
		}
		built[provider] = adapter
	}

	return &Service{
		db:         p.DB,
		log:        log,
		genID:      p.GenID,
		clock:      p.Clock,
		registry:   p.Adapters,
		adapters:   built,
		guard:      p.Guard,
		repo:       p.Repo,
		packs:      p.Packs,
		ledgerSvc:  p.LedgerSvc,
		reconciler: p.Reconciler,
		notifier:   p.Notifier,
		obsMetrics: p.ObsMetrics,
	}
}

// IngestWebhook verifies, deduplicates and applies one provider notification.
// The processed marker, the purchase row and the ledger mutation commit in a
// single transaction; notifications go out only after it commits.
func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (*paymentdomain.WebhookResult, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return nil, paymentdomain.ErrInvalidProvider
	}
	if !s.registry.ProviderExists(provider) {
		return nil, paymentdomain.ErrProviderNotFound
	}
	adapter, ok := s.adapters[provider]
	if !ok {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, "not_configured")
		s.log.Warn("webhook received for unconfigured provider", zap.String("provider", provider))
		return nil, paymentdomain.ErrWebhookNotConfigured
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, "invalid_signature")
		s.log.Warn("webhook signature rejected", zap.String("provider", provider), zap.Error(err))
		return nil, err
	}
	if !json.Valid(payload) {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, "invalid_payload")
		return nil, paymentdomain.ErrInvalidPayload
	}

	ref, err := adapter.Identify(ctx, payload, headers)
	if err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, "invalid_payload")
		return nil, err
	}
	log := s.log.With(
		zap.String("provider", provider),
		zap.String("external_event_id", ref.ID),
		zap.String("event_type", ref.Type),
	)

	processed, err := s.guard.HasProcessed(ctx, s.db, provider, ref.ID)
	if err != nil {
		return nil, err
	}
	if processed {
		return s.duplicate(ctx, provider, ref, log), nil
	}

	// Ignored events are marked processed; a redelivery after the allow-list
	// grows is acknowledged as a duplicate and never credited.
	if !adapter.Accepts(ref.Type) {
		if _, err := s.guard.MarkProcessed(ctx, s.db, provider, ref.ID); err != nil {
			return nil, err
		}
		s.obsMetrics.RecordWebhookEvent(ctx, provider, string(paymentdomain.OutcomeIgnored))
		log.Info("webhook event type not handled")
		return &paymentdomain.WebhookResult{Outcome: paymentdomain.OutcomeIgnored, EventID: ref.ID}, nil
	}

	event, err := adapter.Parse(ctx, payload, headers)
	if err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, provider, "invalid_payload")
		return nil, err
	}

	pack, err := s.packs.Resolve(ctx, provider, event.VariantID)
	if err != nil {
		return nil, err
	}

	result, anomaly, txn, err := s.apply(ctx, event, pack)
	if err != nil {
		log.Error("webhook processing failed", zap.Error(err))
		return nil, err
	}
	if result.Outcome == paymentdomain.OutcomeDuplicate {
		return s.duplicate(ctx, provider, ref, log), nil
	}

	if anomaly != nil {
		s.reconciler.Alert(ctx, *anomaly)
	}
	if txn != nil {
		s.notifier.SendPurchaseReceipt(ctx, event.CustomerEmail, txn.AmountDelta, event.ExternalTransactionID)
	}
	s.obsMetrics.RecordWebhookEvent(ctx, provider, string(result.Outcome))
	log.Info("webhook processed",
		zap.String("status", string(result.Status)),
		zap.Int64("credits", result.Credits),
	)
	return result, nil
}

// apply runs the guarded unit of work. It reports a duplicate when a racing
// delivery inserted the processed marker first.
func (s *Service) apply(
	ctx context.Context,
	event *paymentdomain.PurchaseEvent,
	pack *creditpackdomain.CreditPack,
) (*paymentdomain.WebhookResult, *reconciliationdomain.Anomaly, *ledgerdomain.Transaction, error) {
	var (
		result  *paymentdomain.WebhookResult
		anomaly *reconciliationdomain.Anomaly
		txn     *ledgerdomain.Transaction
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.guard.MarkProcessed(ctx, tx, event.Provider, event.ExternalEventID)
		if err != nil {
			return err
		}
		if !won {
			result = &paymentdomain.WebhookResult{Outcome: paymentdomain.OutcomeDuplicate, EventID: event.ExternalEventID}
			return nil
		}

		record := s.newRecord(event, pack)
		result = &paymentdomain.WebhookResult{
			Outcome: paymentdomain.OutcomeRecorded,
			EventID: event.ExternalEventID,
			Status:  record.Status,
		}

		if record.Status == paymentdomain.PurchaseStatusApplied {
			txn, err = s.ledgerSvc.WithTx(tx).ApplyPurchase(ctx, ledgerdomain.PurchaseCredit{
				AccountID:   event.AccountID,
				Credits:     pack.CreditAmount,
				ReferenceID: purchaseReference(event),
				PackID:      &pack.ID,
			})
			switch {
			case err == nil:
				result.Outcome = paymentdomain.OutcomeApplied
				result.Credits = txn.AmountDelta
			case errors.Is(err, ledgerdomain.ErrAccountNotFound):
				record.Status = paymentdomain.PurchaseStatusAccountMissing
				result.Status = record.Status
				anomaly = &reconciliationdomain.Anomaly{
					Kind:        reconciliationdomain.KindPurchaseAccountMissing,
					AccountID:   event.AccountID,
					ReferenceID: purchaseReference(event),
					Detail:      "pack=" + pack.ID + " txn=" + event.ExternalTransactionID,
				}
				if _, err := s.reconciler.Record(ctx, tx, *anomaly); err != nil {
					return err
				}
			case errors.Is(err, ledgerdomain.ErrAlreadyApplied):
				// The ledger row outlived its processed marker; nothing to grant.
				txn = nil
			default:
				return err
			}
		}

		_, err = s.repo.InsertPurchase(ctx, tx, record)
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return result, anomaly, txn, nil
}

func (s *Service) newRecord(event *paymentdomain.PurchaseEvent, pack *creditpackdomain.CreditPack) *paymentdomain.PurchaseRecord {
	code := currency.Normalize(event.CurrencyCode)
	record := &paymentdomain.PurchaseRecord{
		ID:                    s.genID.Generate(),
		Provider:              event.Provider,
		ExternalEventID:       event.ExternalEventID,
		EventType:             event.EventType,
		ExternalTransactionID: event.ExternalTransactionID,
		VariantID:             event.VariantID,
		AmountMinor:           event.AmountMinor,
		MonetaryAmount:        currency.FormatMajor(event.AmountMinor, code),
		CurrencyCode:          code,
		CountryCode:           event.CountryCode,
		CustomerEmail:         event.CustomerEmail,
		Payload:               datatypes.JSON(event.RawPayload),
		CreatedAt:             s.clock.Now(),
	}
	if accountID := strings.TrimSpace(event.AccountID); accountID != "" {
		record.AccountID = &accountID
	}

	switch {
	case pack == nil:
		record.Status = paymentdomain.PurchaseStatusUnmatchedPack
	case record.AccountID == nil:
		record.PackID = &pack.ID
		record.CreditAmount = pack.CreditAmount
		record.Status = paymentdomain.PurchaseStatusUnresolvedAccount
	default:
		record.PackID = &pack.ID
		record.CreditAmount = pack.CreditAmount
		record.Status = paymentdomain.PurchaseStatusApplied
	}
	return record
}

func (s *Service) duplicate(ctx context.Context, provider string, ref paymentdomain.EventRef, log *zap.Logger) *paymentdomain.WebhookResult {
	s.obsMetrics.RecordWebhookEvent(ctx, provider, string(paymentdomain.OutcomeDuplicate))
	log.Debug("duplicate webhook delivery")
	return &paymentdomain.WebhookResult{Outcome: paymentdomain.OutcomeDuplicate, EventID: ref.ID}
}

func (s *Service) ListSales(ctx context.Context, filter paymentdomain.SalesFilter) ([]paymentdomain.PurchaseRecord, error) {
	filter.Provider = strings.ToLower(strings.TrimSpace(filter.Provider))
	if filter.Provider != "" && !s.registry.ProviderExists(filter.Provider) {
		return nil, paymentdomain.ErrProviderNotFound
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultSalesLimit
	case filter.Limit > maxSalesLimit:
		filter.Limit = maxSalesLimit
	}
	return s.repo.ListPurchases(ctx, s.db, filter)
}

// ConfiguredProviders reports which registered providers have a webhook secret.
func (s *Service) ConfiguredProviders() map[string]bool {
	out := map[string]bool{}
	for _, provider := range s.registry.Providers() {
		_, ok := s.adapters[provider]
		out[provider] = ok
	}
	return out
}

// purchaseReference is the ledger reference of a purchase event.
func purchaseReference(event *paymentdomain.PurchaseEvent) string {
	return event.Provider + ":" + event.ExternalEventID
}
