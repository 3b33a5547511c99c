package idempotency_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/dreamforge/internal/clock"
	"github.com/smallbiznis/dreamforge/internal/idempotency"
	"github.com/smallbiznis/dreamforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMarkProcessedFirstWriterWins(t *testing.T) {
	db := testutil.OpenDB(t)
	guard := idempotency.NewGuard(idempotency.Params{
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
	})
	ctx := context.Background()

	seen, err := guard.HasProcessed(ctx, db, "paddle", "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	won, err := guard.MarkProcessed(ctx, db, "Paddle", "evt_1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = guard.MarkProcessed(ctx, db, "paddle", " evt_1 ")
	require.NoError(t, err)
	assert.False(t, won)

	seen, err = guard.HasProcessed(ctx, db, "PADDLE", "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	// Same event id under another provider is a different event.
	won, err = guard.MarkProcessed(ctx, db, "lemonsqueezy", "evt_1")
	require.NoError(t, err)
	assert.True(t, won)
}

func TestMarkProcessedRollsBackWithTransaction(t *testing.T) {
	db := testutil.OpenDB(t)
	guard := idempotency.NewGuard(idempotency.Params{Log: zap.NewNop(), Clock: clock.SystemClock{}})
	ctx := context.Background()

	_ = db.Transaction(func(tx *gorm.DB) error {
		won, err := guard.MarkProcessed(ctx, tx, "lemonsqueezy", "evt_2")
		require.NoError(t, err)
		require.True(t, won)
		return assert.AnError
	})

	seen, err := guard.HasProcessed(ctx, db, "lemonsqueezy", "evt_2")
	require.NoError(t, err)
	assert.False(t, seen)
}
