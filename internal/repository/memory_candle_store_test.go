package repository

import (
	"context"
	"testing"
	"time"

	"CandlePull/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCandleStore()
	require.NoError(t, s.CreateTable(ctx, "BTCEUR_1h"))
	require.NoError(t, s.CreateTable(ctx, "BTCEUR_1h"))

	batch := []models.Candle{candleAt(t0, 1), candleAt(t0.Add(time.Hour), 2)}
	for i := 0; i < 3; i++ {
		res, err := s.Upsert(ctx, "BTCEUR_1h", batch)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Upserted)
	}
	assert.Len(t, s.Rows("BTCEUR_1h"), 2)

	_, err := s.Upsert(ctx, "BTCEUR_1h", []models.Candle{candleAt(t0, 99)})
	require.NoError(t, err)
	rows := s.Rows("BTCEUR_1h")
	require.Len(t, rows, 2)
	assert.True(t, sameCandle(rows[0], candleAt(t0, 99)))

	latest, ok, err := s.LatestOpenTime(ctx, "BTCEUR_1h")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, t0.Add(time.Hour), latest)
}

func TestMemoryMissingTable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCandleStore()

	ok, err := s.TableExists(ctx, "ETHEUR_1d")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.LatestOpenTime(ctx, "ETHEUR_1d")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Upsert(ctx, "ETHEUR_1d", []models.Candle{candleAt(t0, 1)})
	assert.Error(t, err)
}
