package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dreamforge/internal/clock"
	ledgerdomain "github.com/smallbiznis/dreamforge/internal/ledger/domain"
	"github.com/smallbiznis/dreamforge/internal/notify"
	obsmetrics "github.com/smallbiznis/dreamforge/internal/observability/metrics"
	"github.com/smallbiznis/dreamforge/internal/reconciliation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultListLimit = 100

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	LedgerSvc  ledgerdomain.Service
	Notifier   *notify.Dispatcher  `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	ledgerSvc  ledgerdomain.Service
	notifier   *notify.Dispatcher
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("reconciliation.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		ledgerSvc:  p.LedgerSvc,
		notifier:   p.Notifier,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Record(ctx context.Context, conn *gorm.DB, anomaly domain.Anomaly) (*domain.Anomaly, error) {
	if conn == nil {
		conn = s.db
	}
	anomaly.ID = s.genID.Generate()
	anomaly.CreatedAt = s.clock.Now()
	anomaly.Resolved = false

	if err := conn.WithContext(ctx).Create(&anomaly).Error; err != nil {
		s.log.Error("failed to record reconciliation anomaly",
			zap.String("kind", string(anomaly.Kind)),
			zap.String("account_id", anomaly.AccountID),
			zap.String("reference_id", anomaly.ReferenceID),
			zap.Error(err),
		)
		return nil, err
	}

	s.obsMetrics.RecordAnomaly(ctx, string(anomaly.Kind))
	s.log.Error("reconciliation anomaly",
		zap.String("kind", string(anomaly.Kind)),
		zap.String("account_id", anomaly.AccountID),
		zap.String("reference_id", anomaly.ReferenceID),
		zap.String("detail", anomaly.Detail),
	)
	return &anomaly, nil
}

func (s *Service) Alert(ctx context.Context, anomaly domain.Anomaly) {
	s.notifier.AlertOperators(ctx, notify.Alert{
		Subject: "Reconciliation anomaly: " + string(anomaly.Kind),
		Fields: map[string]string{
			"account_id":   anomaly.AccountID,
			"reference_id": anomaly.ReferenceID,
			"detail":       anomaly.Detail,
		},
	})
}

// Scan compares every account balance with its ledger sum and records a
// balance_drift anomaly for each mismatch not already open.
func (s *Service) Scan(ctx context.Context) (*domain.Report, error) {
	drift, err := s.ledgerSvc.FindDrift(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.Report{CheckedAt: s.clock.Now(), Drift: drift}
	for _, d := range drift {
		open, err := s.hasOpen(ctx, domain.KindBalanceDrift, d.AccountID)
		if err != nil {
			return nil, err
		}
		if open {
			continue
		}
		detail := "credit_balance=" + strconv.FormatInt(d.CreditBalance, 10) +
			" ledger_sum=" + strconv.FormatInt(d.LedgerSum, 10)
		recorded, err := s.Record(ctx, nil, domain.Anomaly{
			Kind:      domain.KindBalanceDrift,
			AccountID: d.AccountID,
			Detail:    detail,
		})
		if err != nil {
			return nil, err
		}
		report.Recorded = append(report.Recorded, *recorded)
	}

	if len(report.Recorded) > 0 {
		ids := make([]string, 0, len(report.Recorded))
		for _, a := range report.Recorded {
			ids = append(ids, a.AccountID)
		}
		s.notifier.AlertOperators(ctx, notify.Alert{
			Subject: "Ledger drift detected",
			Fields: map[string]string{
				"accounts": strings.Join(ids, ","),
				"count":    strconv.Itoa(len(ids)),
			},
		})
	}

	s.log.Info("reconciliation scan finished",
		zap.Int("drifted_accounts", len(drift)),
		zap.Int("new_anomalies", len(report.Recorded)),
	)
	return report, nil
}

func (s *Service) ListOpen(ctx context.Context, limit int) ([]domain.Anomaly, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	var items []domain.Anomaly
	err := s.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) hasOpen(ctx context.Context, kind domain.Kind, accountID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.Anomaly{}).
		Where("kind = ? AND account_id = ? AND resolved = ?", kind, accountID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
