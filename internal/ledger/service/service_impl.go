package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dreamforge/internal/clock"
	ledgerdomain "github.com/smallbiznis/dreamforge/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/dreamforge/internal/observability/metrics"
	"github.com/smallbiznis/dreamforge/pkg/db"
	"github.com/smallbiznis/dreamforge/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxAdjustAttempts = 3

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) WithTx(tx *gorm.DB) ledgerdomain.Service {
	clone := *s
	clone.db = tx
	return &clone
}

func (s *Service) ApplyPurchase(ctx context.Context, req ledgerdomain.PurchaseCredit) (*ledgerdomain.Transaction, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, ledgerdomain.ErrInvalidAccount
	}
	if req.Credits <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	referenceID := strings.TrimSpace(req.ReferenceID)
	if referenceID == "" {
		return nil, ledgerdomain.ErrInvalidReference
	}

	var txn *ledgerdomain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applied, err := referenceExists(ctx, tx, ledgerdomain.ReasonPurchase, referenceID)
		if err != nil {
			return err
		}
		if applied {
			return ledgerdomain.ErrAlreadyApplied
		}

		now := s.clock.Now()
		res := tx.WithContext(ctx).Exec(
			`UPDATE accounts
			 SET credit_balance = credit_balance + ?,
				last_purchased_pack_id = COALESCE(?, last_purchased_pack_id),
				updated_at = ?
			 WHERE id = ?`,
			req.Credits,
			req.PackID,
			now,
			accountID,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ledgerdomain.ErrAccountNotFound
		}

		txn, err = s.appendTransaction(ctx, tx, accountID, req.Credits, ledgerdomain.ReasonPurchase, referenceID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordLedgerTransaction(ctx, string(ledgerdomain.ReasonPurchase))
	s.log.Info("purchase credits applied",
		zap.String("account_id", accountID),
		zap.Int64("credits", req.Credits),
		zap.String("reference_id", referenceID),
		zap.Int64("balance_after", txn.BalanceAfter),
	)
	return txn, nil
}

// ApplyGenerationDebit takes exactly one credit. The balance and ban checks are
// part of the UPDATE so a concurrent debit cannot push the balance below zero.
func (s *Service) ApplyGenerationDebit(ctx context.Context, accountID, referenceID string) (*ledgerdomain.Transaction, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ledgerdomain.ErrInvalidAccount
	}
	referenceID = strings.TrimSpace(referenceID)
	if referenceID == "" {
		return nil, ledgerdomain.ErrInvalidReference
	}

	var txn *ledgerdomain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applied, err := referenceExists(ctx, tx, ledgerdomain.ReasonDreamUsed, referenceID)
		if err != nil {
			return err
		}
		if applied {
			return ledgerdomain.ErrAlreadyApplied
		}

		res := tx.WithContext(ctx).Exec(
			`UPDATE accounts
			 SET credit_balance = credit_balance - 1, updated_at = ?
			 WHERE id = ? AND credit_balance >= 1 AND is_banned = ?`,
			s.clock.Now(),
			accountID,
			false,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return classifyDebitRejection(ctx, tx, accountID)
		}

		txn, err = s.appendTransaction(ctx, tx, accountID, -1, ledgerdomain.ReasonDreamUsed, referenceID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordLedgerTransaction(ctx, string(ledgerdomain.ReasonDreamUsed))
	return txn, nil
}

func (s *Service) AdjustCredits(ctx context.Context, req ledgerdomain.AdjustRequest) (*ledgerdomain.Transaction, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, ledgerdomain.ErrInvalidAccount
	}
	if (req.Target == nil) == (req.Add == nil) {
		return nil, ledgerdomain.ErrInvalidAdjustment
	}
	if req.Add != nil && *req.Add < 1 {
		return nil, ledgerdomain.ErrInvalidAmount
	}

	for attempt := 0; attempt < maxAdjustAttempts; attempt++ {
		txn, err := s.adjustOnce(ctx, accountID, req)
		if errors.Is(err, ledgerdomain.ErrConcurrentUpdate) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.obsMetrics.RecordLedgerTransaction(ctx, string(ledgerdomain.ReasonAdminAdjustment))
		s.log.Info("credits adjusted",
			zap.String("account_id", accountID),
			zap.Int64("delta", txn.AmountDelta),
			zap.Int64("balance_after", txn.BalanceAfter),
		)
		return txn, nil
	}
	return nil, ledgerdomain.ErrConcurrentUpdate
}

// adjustOnce applies the adjustment against the balance it read, failing with
// ErrConcurrentUpdate if that balance moved in between.
func (s *Service) adjustOnce(ctx context.Context, accountID string, req ledgerdomain.AdjustRequest) (*ledgerdomain.Transaction, error) {
	var txn *ledgerdomain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, found, err := currentBalance(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if !found {
			return ledgerdomain.ErrAccountNotFound
		}

		var next int64
		if req.Target != nil {
			next = max(*req.Target, 0)
		} else {
			next = current + *req.Add
		}

		res := tx.WithContext(ctx).Exec(
			`UPDATE accounts
			 SET credit_balance = ?, updated_at = ?
			 WHERE id = ? AND credit_balance = ?`,
			next,
			s.clock.Now(),
			accountID,
			current,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ledgerdomain.ErrConcurrentUpdate
		}

		referenceID := "adj_" + s.genID.Generate().String()
		txn, err = s.appendTransaction(ctx, tx, accountID, next-current, ledgerdomain.ReasonAdminAdjustment, referenceID)
		return err
	})
	return txn, err
}

func (s *Service) ListTransactions(ctx context.Context, accountID string, page pagination.Pagination) ([]ledgerdomain.Transaction, pagination.PageInfo, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, pagination.PageInfo{}, ledgerdomain.ErrInvalidAccount
	}

	limit := page.Limit()
	stmt := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		Limit(limit + 1)

	if token := strings.TrimSpace(page.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, pagination.PageInfo{}, ledgerdomain.ErrInvalidReference
		}
		cursorID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, pagination.PageInfo{}, ledgerdomain.ErrInvalidReference
		}
		stmt = stmt.Where("id < ?", cursorID)
	}

	var items []ledgerdomain.Transaction
	if err := stmt.Find(&items).Error; err != nil {
		return nil, pagination.PageInfo{}, err
	}

	items, info := pagination.BuildCursorPageInfo(items, limit, func(t ledgerdomain.Transaction) string {
		return t.ID.String()
	})
	return items, info, nil
}

// FindDrift lists accounts whose balance differs from the sum of their ledger.
func (s *Service) FindDrift(ctx context.Context) ([]ledgerdomain.BalanceDrift, error) {
	var rows []ledgerdomain.BalanceDrift
	err := s.db.WithContext(ctx).Raw(
		`SELECT a.id AS account_id,
			a.credit_balance AS credit_balance,
			COALESCE(SUM(t.amount_delta), 0) AS ledger_sum
		 FROM accounts a
		 LEFT JOIN ledger_transactions t ON t.account_id = a.id
		 GROUP BY a.id, a.credit_balance
		 HAVING a.credit_balance <> COALESCE(SUM(t.amount_delta), 0)
		 ORDER BY a.id`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Service) appendTransaction(
	ctx context.Context,
	tx *gorm.DB,
	accountID string,
	delta int64,
	reason ledgerdomain.Reason,
	referenceID string,
) (*ledgerdomain.Transaction, error) {
	balance, _, err := currentBalance(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	txn := &ledgerdomain.Transaction{
		ID:           s.genID.Generate(),
		AccountID:    accountID,
		AmountDelta:  delta,
		BalanceAfter: balance,
		Reason:       reason,
		ReferenceID:  referenceID,
		CreatedAt:    s.clock.Now(),
	}
	if err := tx.WithContext(ctx).Create(txn).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, ledgerdomain.ErrAlreadyApplied
		}
		return nil, err
	}
	return txn, nil
}

func referenceExists(ctx context.Context, tx *gorm.DB, reason ledgerdomain.Reason, referenceID string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&ledgerdomain.Transaction{}).
		Where("reason = ? AND reference_id = ?", reason, referenceID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func currentBalance(ctx context.Context, tx *gorm.DB, accountID string) (int64, bool, error) {
	var rows []struct {
		CreditBalance int64
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT credit_balance FROM accounts WHERE id = ?`,
		accountID,
	).Scan(&rows).Error
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].CreditBalance, true, nil
}

func classifyDebitRejection(ctx context.Context, tx *gorm.DB, accountID string) error {
	var rows []struct {
		CreditBalance int64
		IsBanned      bool
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT credit_balance, is_banned FROM accounts WHERE id = ?`,
		accountID,
	).Scan(&rows).Error
	if err != nil {
		return err
	}
	switch {
	case len(rows) == 0:
		return ledgerdomain.ErrAccountNotFound
	case rows[0].IsBanned:
		return ledgerdomain.ErrAccountSuspended
	default:
		return ledgerdomain.ErrInsufficientCredits
	}
}
