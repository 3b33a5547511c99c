package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/dreamforge/internal/clock"
	"github.com/smallbiznis/dreamforge/internal/creditpack/domain"
	"github.com/smallbiznis/dreamforge/internal/creditpack/repository"
	"github.com/smallbiznis/dreamforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	return NewService(Params{
		DB:    testutil.OpenDB(t),
		Log:   zap.NewNop(),
		Repo:  repository.Provide(),
		Clock: clock.SystemClock{},
	})
}

func TestResolveByProviderVariant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, domain.CreditPack{
		ID:           "pack_10",
		Name:         "10 Dreams",
		CreditAmount: 10,
		IsActive:     true,
		Variants: []domain.Variant{
			{Provider: "LemonSqueezy", VariantID: "123456"},
			{Provider: "paddle", VariantID: "pro_01h"},
		},
	}))

	pack, err := svc.Resolve(ctx, "lemonsqueezy", "123456")
	require.NoError(t, err)
	require.NotNil(t, pack)
	assert.Equal(t, "pack_10", pack.ID)
	assert.Equal(t, int64(10), pack.CreditAmount)

	pack, err = svc.Resolve(ctx, "Paddle", " pro_01h ")
	require.NoError(t, err)
	require.NotNil(t, pack)
	assert.Equal(t, "pack_10", pack.ID)

	pack, err = svc.Resolve(ctx, "paddle", "123456")
	require.NoError(t, err)
	assert.Nil(t, pack)
}

func TestResolveIgnoresInactivePacks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, domain.CreditPack{
		ID:           "pack_retired",
		Name:         "Retired",
		CreditAmount: 3,
		IsActive:     false,
		Variants:     []domain.Variant{{Provider: "paddle", VariantID: "pro_old"}},
	}))

	pack, err := svc.Resolve(ctx, "paddle", "pro_old")
	require.NoError(t, err)
	require.NotNil(t, pack)
	assert.False(t, pack.IsActive)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUpsertReplacesBindings(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, domain.CreditPack{
		ID: "pack_5", Name: "5", CreditAmount: 5, IsActive: true,
		Variants: []domain.Variant{{Provider: "paddle", VariantID: "pro_a"}},
	}))
	require.NoError(t, svc.Upsert(ctx, domain.CreditPack{
		ID: "pack_5", Name: "Five", CreditAmount: 6, IsActive: true,
		Variants: []domain.Variant{{Provider: "paddle", VariantID: "pro_b"}},
	}))

	pack, err := svc.Resolve(ctx, "paddle", "pro_a")
	require.NoError(t, err)
	assert.Nil(t, pack)

	packs, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, "Five", packs[0].Name)
	assert.Equal(t, int64(6), packs[0].CreditAmount)
	assert.Equal(t, map[string]string{"paddle": "pro_b"}, packs[0].Bindings())
}

func TestUpsertValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Upsert(ctx, domain.CreditPack{ID: "p", CreditAmount: 0}), domain.ErrInvalidPack)
	assert.ErrorIs(t, svc.Upsert(ctx, domain.CreditPack{CreditAmount: 1}), domain.ErrInvalidPack)
	assert.ErrorIs(t, svc.Upsert(ctx, domain.CreditPack{
		ID: "p", CreditAmount: 1,
		Variants: []domain.Variant{{Provider: "paddle", VariantID: "a"}, {Provider: "PADDLE", VariantID: "b"}},
	}), domain.ErrInvalidVariant)
	assert.ErrorIs(t, svc.Upsert(ctx, domain.CreditPack{
		ID: "p", CreditAmount: 1,
		Variants: []domain.Variant{{Provider: "paddle"}},
	}), domain.ErrInvalidVariant)
}
