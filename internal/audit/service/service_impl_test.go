package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/dreamforge/internal/audit/domain"
	"github.com/smallbiznis/dreamforge/internal/audit/repository"
	"github.com/smallbiznis/dreamforge/internal/clock"
	obscontext "github.com/smallbiznis/dreamforge/internal/observability/context"
	"github.com/smallbiznis/dreamforge/internal/testutil"
	"github.com/smallbiznis/dreamforge/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    testutil.OpenDB(t),
		Log:   zap.NewNop(),
		GenID: testutil.Node(t),
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, clk
}

func TestRecordMasksMetadataAndKeepsRequestID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")

	require.NoError(t, svc.Record(ctx, auditdomain.Entry{
		ActorType:  auditdomain.ActorTypeAdmin,
		ActorID:    "admin-1",
		Action:     "credits.adjust",
		TargetType: "account",
		TargetID:   "user-1",
		Metadata:   map[string]any{"target_email": "dreamer@example.com", "delta": 5},
		IPAddress:  "10.0.0.1",
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, auditdomain.ActorTypeAdmin, entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "admin-1", *entry.ActorID)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "user-1", *entry.TargetID)
	assert.Nil(t, entry.UserAgent)
	assert.Equal(t, "d****@example.com", entry.Metadata["target_email"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
	assert.False(t, resp.HasMore)
}

func TestRecordRequiresAction(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Record(context.Background(), auditdomain.Entry{Action: "  "})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPagesNewestFirst(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	for _, target := range []string{"user-1", "user-2", "user-3"} {
		require.NoError(t, svc.Record(ctx, auditdomain.Entry{Action: "credits.adjust", TargetID: target}))
		clk.Advance(time.Minute)
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "user-3", *first.AuditLogs[0].TargetID)
	assert.Equal(t, auditdomain.ActorTypeSystem, first.AuditLogs[0].ActorType)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.Equal(t, "user-1", *second.AuditLogs[0].TargetID)
	assert.False(t, second.HasMore)

	filtered, err := svc.List(ctx, auditdomain.ListAuditLogRequest{TargetID: "user-2"})
	require.NoError(t, err)
	require.Len(t, filtered.AuditLogs, 1)
}

func TestListValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)

	start := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
