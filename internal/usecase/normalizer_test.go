package usecase

import (
	"testing"
	"time"

	"CandlePull/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(openMs int64, closePrice string) models.RawCandle {
	return models.RawCandle{
		OpenTime:                 openMs,
		Open:                     "100.00000000",
		High:                     "110.5",
		Low:                      "99.1",
		Close:                    closePrice,
		Volume:                   "12.345",
		CloseTime:                openMs + 3_599_999,
		QuoteAssetVolume:         "1234.5",
		NumberOfTrades:           42,
		TakerBuyBaseAssetVolume:  "6.1",
		TakerBuyQuoteAssetVolume: "610.2",
		Ignore:                   "0",
	}
}

func TestNormalizeSortsAndTypes(t *testing.T) {
	h := int64(time.Hour / time.Millisecond)
	base := DefaultEpoch.UnixMilli()

	got, err := Normalize([]models.RawCandle{raw(base+2*h, "3"), raw(base, "1"), raw(base+h, "2")})
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, c := range got {
		assert.Equal(t, DefaultEpoch.Add(time.Duration(i)*time.Hour), c.OpenTime)
		assert.Equal(t, time.UTC, c.OpenTime.Location())
		assert.True(t, c.Close.Equal(decimal.NewFromInt(int64(i+1))))
	}
	assert.True(t, got[0].Open.Equal(decimal.RequireFromString("100")))
	assert.EqualValues(t, 42, got[0].NumberOfTrades)
	assert.Zero(t, got[0].Ignore)
}

func TestNormalizeLastOccurrenceWins(t *testing.T) {
	h := int64(time.Hour / time.Millisecond)
	base := DefaultEpoch.UnixMilli()

	got, err := Normalize([]models.RawCandle{
		raw(base+h, "5"),
		raw(base, "1"),
		raw(base+h, "7"),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].Close.Equal(decimal.NewFromInt(7)))
}

func TestNormalizeSkipsBadRows(t *testing.T) {
	base := DefaultEpoch.UnixMilli()
	bad := raw(base+1000, "1")
	bad.High = "not-a-number"

	got, err := Normalize([]models.RawCandle{raw(base, "1"), bad})
	require.Error(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, err.Error(), "high")
}

func TestNormalizeEmpty(t *testing.T) {
	got, err := Normalize(nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}
