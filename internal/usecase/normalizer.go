package usecase

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"CandlePull/internal/domain/models"
	"CandlePull/pkg/util"

	"github.com/shopspring/decimal"
)

// Normalize turns raw klines into typed candles sorted by open time with one
// row per open time. When an open time repeats, the occurrence that comes last
// in raw wins. Rows that fail to parse are dropped and reported in the joined error.
func Normalize(raw []models.RawCandle) ([]models.Candle, error) {
	out := make([]models.Candle, 0, len(raw))
	pos := make(map[int64]int, len(raw))
	var errs []error

	for i, r := range raw {
		c, err := parseCandle(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %d open_time=%d: %w", i, r.OpenTime, err))
			continue
		}
		if at, ok := pos[r.OpenTime]; ok {
			out[at] = c
			continue
		}
		pos[r.OpenTime] = len(out)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpenTime.Before(out[j].OpenTime)
	})
	return out, errors.Join(errs...)
}

func parseCandle(r models.RawCandle) (models.Candle, error) {
	c := models.Candle{
		OpenTime:       util.FromMillis(r.OpenTime),
		CloseTime:      util.FromMillis(r.CloseTime),
		NumberOfTrades: r.NumberOfTrades,
	}

	decs := []struct {
		name string
		src  string
		dst  *decimal.Decimal
	}{
		{"open", r.Open, &c.Open},
		{"high", r.High, &c.High},
		{"low", r.Low, &c.Low},
		{"close", r.Close, &c.Close},
		{"volume", r.Volume, &c.Volume},
		{"quote_asset_volume", r.QuoteAssetVolume, &c.QuoteAssetVolume},
		{"taker_buy_base_asset_volume", r.TakerBuyBaseAssetVolume, &c.TakerBuyBaseAssetVolume},
		{"taker_buy_quote_asset_volume", r.TakerBuyQuoteAssetVolume, &c.TakerBuyQuoteAssetVolume},
	}
	for _, d := range decs {
		v, err := decimal.NewFromString(d.src)
		if err != nil {
			return models.Candle{}, fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}

	if r.Ignore != "" {
		ign, err := decimal.NewFromString(r.Ignore)
		if err != nil {
			return models.Candle{}, fmt.Errorf("ignore: %w", err)
		}
		c.Ignore = ign.IntPart()
	}

	if c.CloseTime.Before(c.OpenTime) {
		return models.Candle{}, fmt.Errorf("close_time %s before open_time", c.CloseTime.Format(time.RFC3339))
	}
	return c, nil
}
