package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/dreamforge/internal/artist/domain"
	"github.com/smallbiznis/dreamforge/internal/artist/repository"
	"github.com/smallbiznis/dreamforge/internal/clock"
	"github.com/smallbiznis/dreamforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestArtistCatalog(t *testing.T) {
	svc := NewService(Params{
		DB:    testutil.OpenDB(t),
		Log:   zap.NewNop(),
		Repo:  repository.Provide(),
		Clock: clock.SystemClock{},
	})
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, domain.Artist{ID: "dali", Name: "Salvador Dalí", StyleDescription: "melting clocks", IsActive: true, SortOrder: 2}))
	require.NoError(t, svc.Upsert(ctx, domain.Artist{ID: "vangogh", Name: "Van Gogh", StyleDescription: "swirling skies", IsActive: true, SortOrder: 1}))
	require.NoError(t, svc.Upsert(ctx, domain.Artist{ID: "hidden", Name: "Hidden", StyleDescription: "x", IsActive: false}))

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "vangogh", items[0].ID)
	assert.Equal(t, "dali", items[1].ID)

	got, err := svc.Get(ctx, "dali")
	require.NoError(t, err)
	assert.Equal(t, "melting clocks", got.StyleDescription)

	_, err = svc.Get(ctx, "hidden")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Get(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidArtist)

	require.NoError(t, svc.Upsert(ctx, domain.Artist{ID: "dali", Name: "Dalí", StyleDescription: "surreal", IsActive: false}))
	_, err = svc.Get(ctx, "dali")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Upsert(ctx, domain.Artist{ID: "x"}), domain.ErrInvalidArtist)
}
