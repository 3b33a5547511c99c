package service

import (
	"context"
	"testing"
	"time"

	accountdomain "github.com/smallbiznis/dreamforge/internal/account/domain"
	"github.com/smallbiznis/dreamforge/internal/clock"
	ledgerservice "github.com/smallbiznis/dreamforge/internal/ledger/service"
	"github.com/smallbiznis/dreamforge/internal/reconciliation/domain"
	"github.com/smallbiznis/dreamforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	fake := clock.NewFakeClock(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
	})
	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		LedgerSvc: ledgerSvc,
	})
	return svc, db
}

func TestScanRecordsDriftOnce(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&accountdomain.Account{
		ID: "acc_drift", CreditBalance: 9, Tier: accountdomain.TierFree, Role: accountdomain.RoleUser,
		CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, db.Create(&accountdomain.Account{
		ID: "acc_ok", Tier: accountdomain.TierFree, Role: accountdomain.RoleUser,
		CreatedAt: now, UpdatedAt: now,
	}).Error)

	report, err := svc.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, report.Drift, 1)
	assert.Equal(t, "acc_drift", report.Drift[0].AccountID)
	require.Len(t, report.Recorded, 1)
	assert.Equal(t, domain.KindBalanceDrift, report.Recorded[0].Kind)
	assert.Equal(t, "credit_balance=9 ledger_sum=0", report.Recorded[0].Detail)

	report, err = svc.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Drift, 1)
	assert.Empty(t, report.Recorded)

	open, err := svc.ListOpen(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestRecordUsesCallerTransaction(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_ = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Record(ctx, tx, domain.Anomaly{
			Kind:        domain.KindPurchaseAccountMissing,
			AccountID:   "ghost",
			ReferenceID: "paddle:evt_1",
		})
		require.NoError(t, err)
		return assert.AnError
	})

	open, err := svc.ListOpen(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, open)

	recorded, err := svc.Record(ctx, nil, domain.Anomaly{
		Kind:        domain.KindDebitFailedAfterPersist,
		AccountID:   "acc_1",
		ReferenceID: "artifact-1",
		Detail:      "insufficient_credits",
	})
	require.NoError(t, err)
	assert.NotZero(t, recorded.ID)
	assert.False(t, recorded.Resolved)

	// Alert without a notifier is a no-op.
	svc.Alert(ctx, *recorded)
}
