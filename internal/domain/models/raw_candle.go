package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// rawCandleFields is the fixed width of one kline array in the provider response.
const rawCandleFields = 12

// RawCandle is one kline as returned by the provider: a positional array of
// open_time, open, high, low, close, volume, close_time, quote_asset_volume,
// number_of_trades, taker_buy_base_asset_volume, taker_buy_quote_asset_volume, ignore.
// Decimal fields are kept as the provider's strings until normalization.
type RawCandle struct {
	OpenTime                 int64
	Open                     string
	High                     string
	Low                      string
	Close                    string
	Volume                   string
	CloseTime                int64
	QuoteAssetVolume         string
	NumberOfTrades           int64
	TakerBuyBaseAssetVolume  string
	TakerBuyQuoteAssetVolume string
	Ignore                   string
}

// UnmarshalJSON decodes the positional array form.
func (r *RawCandle) UnmarshalJSON(b []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("kline: %w", err)
	}
	if len(fields) < rawCandleFields {
		return fmt.Errorf("kline: expected %d fields, got %d", rawCandleFields, len(fields))
	}

	var err error
	ints := []struct {
		idx int
		dst *int64
	}{
		{0, &r.OpenTime},
		{6, &r.CloseTime},
		{8, &r.NumberOfTrades},
	}
	for _, f := range ints {
		if *f.dst, err = rawInt(fields[f.idx]); err != nil {
			return fmt.Errorf("kline field %d: %w", f.idx, err)
		}
	}

	strs := []struct {
		idx int
		dst *string
	}{
		{1, &r.Open},
		{2, &r.High},
		{3, &r.Low},
		{4, &r.Close},
		{5, &r.Volume},
		{7, &r.QuoteAssetVolume},
		{9, &r.TakerBuyBaseAssetVolume},
		{10, &r.TakerBuyQuoteAssetVolume},
		{11, &r.Ignore},
	}
	for _, f := range strs {
		if *f.dst, err = rawString(fields[f.idx]); err != nil {
			return fmt.Errorf("kline field %d: %w", f.idx, err)
		}
	}
	return nil
}

// MarshalJSON encodes the candle back into the provider's positional form.
func (r RawCandle) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		r.OpenTime,
		r.Open,
		r.High,
		r.Low,
		r.Close,
		r.Volume,
		r.CloseTime,
		r.QuoteAssetVolume,
		r.NumberOfTrades,
		r.TakerBuyBaseAssetVolume,
		r.TakerBuyQuoteAssetVolume,
		r.Ignore,
	})
}

// rawInt accepts a bare JSON number or a quoted integer.
func rawInt(m json.RawMessage) (int64, error) {
	s := strings.Trim(strings.TrimSpace(string(m)), `"`)
	return strconv.ParseInt(s, 10, 64)
}

// rawString accepts a JSON string or a bare number and returns its literal text.
func rawString(m json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(m, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
