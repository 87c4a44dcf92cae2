package repository

import (
	"context"
	"testing"

	"CandlePull/internal/domain/models"
	"CandlePull/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusStoreKeepsLatestPerTable(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache(cache.WithRedisAddr(mr.Addr()))
	require.NoError(t, err)
	defer rc.Close()

	ctx := context.Background()
	st := NewCacheStatusStore(rc)

	empty, err := st.Reports(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, st.SaveReport(ctx, models.PairReport{Table: "ETHEUR_1h", Upserted: 1}))
	require.NoError(t, st.SaveReport(ctx, models.PairReport{Table: "BTCEUR_1h", Upserted: 2}))
	require.NoError(t, st.SaveReport(ctx, models.PairReport{Table: "ETHEUR_1h", Upserted: 3, Error: "boom"}))

	got, err := st.Reports(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "BTCEUR_1h", got[0].Table)
	assert.Equal(t, 3, got[1].Upserted)
	assert.Equal(t, "boom", got[1].Error)

	assert.True(t, mr.Exists("candlepull:sync:status"))
}

func TestStatusStoreOnMemoryCache(t *testing.T) {
	ctx := context.Background()
	st := NewCacheStatusStore(cache.NewMemoryCache())
	require.NoError(t, st.SaveReport(ctx, models.PairReport{Table: "BNBEUR_1w", Fetched: 10}))

	got, err := st.Reports(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].Fetched)
}
