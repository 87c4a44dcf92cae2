package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one normalized kline row, keyed by OpenTime within its table.
type Candle struct {
	OpenTime                 time.Time       `json:"open_time"`
	Open                     decimal.Decimal `json:"open"`
	High                     decimal.Decimal `json:"high"`
	Low                      decimal.Decimal `json:"low"`
	Close                    decimal.Decimal `json:"close"`
	Volume                   decimal.Decimal `json:"volume"`
	CloseTime                time.Time       `json:"close_time"`
	QuoteAssetVolume         decimal.Decimal `json:"quote_asset_volume"`
	NumberOfTrades           int64           `json:"number_of_trades"`
	TakerBuyBaseAssetVolume  decimal.Decimal `json:"taker_buy_base_asset_volume"`
	TakerBuyQuoteAssetVolume decimal.Decimal `json:"taker_buy_quote_asset_volume"`
	Ignore                   int64           `json:"ignore"`
}

// FetchWindow is the span of history one pair pass needs to download.
type FetchWindow struct {
	StartTime          time.Time
	EndTime            time.Time
	EstimatedIntervals int64
}
