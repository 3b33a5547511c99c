package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/dreamforge/internal/clock"
	ledgerdomain "github.com/smallbiznis/dreamforge/internal/ledger/domain"
	reconciliationdomain "github.com/smallbiznis/dreamforge/internal/reconciliation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeReconciler struct {
	scans  atomic.Int32
	err    error
	report *reconciliationdomain.Report
}

func (f *fakeReconciler) Record(ctx context.Context, conn *gorm.DB, anomaly reconciliationdomain.Anomaly) (*reconciliationdomain.Anomaly, error) {
	return &anomaly, nil
}

func (f *fakeReconciler) Scan(ctx context.Context) (*reconciliationdomain.Report, error) {
	f.scans.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.report != nil {
		return f.report, nil
	}
	return &reconciliationdomain.Report{}, nil
}

func (f *fakeReconciler) ListOpen(ctx context.Context, limit int) ([]reconciliationdomain.Anomaly, error) {
	return nil, nil
}

func newTestScheduler(t *testing.T, rec *fakeReconciler, cfg Config) *Scheduler {
	t.Helper()
	s, err := New(Params{
		Log:        zap.NewNop(),
		Clock:      clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		Reconciler: rec,
		Config:     cfg,
	})
	require.NoError(t, err)
	return s
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 15*time.Minute, cfg.RunInterval)
	assert.Equal(t, 2*time.Minute, cfg.JobTimeout)

	cfg = Config{RunInterval: time.Minute, JobTimeout: time.Second}.withDefaults()
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, time.Second, cfg.JobTimeout)
}

func TestRunOnceReconcilesBalances(t *testing.T) {
	rec := &fakeReconciler{report: &reconciliationdomain.Report{
		Drift: []ledgerdomain.BalanceDrift{{AccountID: "user-1", CreditBalance: 5, LedgerSum: 3}},
	}}
	s := newTestScheduler(t, rec, Config{})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(1), rec.scans.Load())
}

func TestRunOnceWrapsJobErrors(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("database is locked")}
	s := newTestScheduler(t, rec, Config{})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobReconcileBalances)
	assert.ErrorIs(t, err, rec.err)
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	s := newTestScheduler(t, &fakeReconciler{}, Config{JobTimeout: 5 * time.Millisecond})

	err := s.runJob(context.Background(), "timeout_job", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.NoError(t, err)
}

func TestDisabledJobIsSkipped(t *testing.T) {
	rec := &fakeReconciler{}
	s := newTestScheduler(t, rec, Config{EnabledJobs: []string{"something_else"}})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(0), rec.scans.Load())
	assert.True(t, newTestScheduler(t, rec, Config{EnabledJobs: []string{"RECONCILE_BALANCES"}}).isJobEnabled(JobReconcileBalances))
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	rec := &fakeReconciler{}
	s := newTestScheduler(t, rec, Config{RunInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunForever(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return rec.scans.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
