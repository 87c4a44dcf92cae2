package repository

import (
	"strings"

	"CandlePull/internal/domain/models"
)

// candleColumns is the column order shared by every SQL backend. open_time is the key.
var candleColumns = []string{
	"open_time",
	"open",
	"high",
	"low",
	"close",
	"volume",
	"close_time",
	"quote_asset_volume",
	"number_of_trades",
	"taker_buy_base_asset_volume",
	"taker_buy_quote_asset_volume",
	"ignore",
}

func candleArgs(c models.Candle) []any {
	return []any{
		c.OpenTime.UTC(),
		c.Open,
		c.High,
		c.Low,
		c.Close,
		c.Volume,
		c.CloseTime.UTC(),
		c.QuoteAssetVolume,
		c.NumberOfTrades,
		c.TakerBuyBaseAssetVolume,
		c.TakerBuyQuoteAssetVolume,
		c.Ignore,
	}
}

func columnList() string {
	return strings.Join(candleColumns, ", ")
}
