package usecase

import (
	"context"
	"fmt"
	"time"

	"CandlePull/internal/domain/models"
	drepo "CandlePull/internal/domain/repository"
)

// CandlesUseCase answers read-only questions about persisted candles.
type CandlesUseCase struct {
	store  drepo.CandleStore
	status drepo.StatusStore
}

func NewCandlesUseCase(store drepo.CandleStore, status drepo.StatusStore) *CandlesUseCase {
	return &CandlesUseCase{store: store, status: status}
}

type LatestResult struct {
	Symbol         string     `json:"symbol"`
	Interval       string     `json:"interval"`
	Table          string     `json:"table"`
	LatestOpenTime *time.Time `json:"latest_open_time"`
}

// Latest returns the newest stored open time of a pair. A missing or empty
// table yields a nil LatestOpenTime.
func (uc *CandlesUseCase) Latest(ctx context.Context, symbol, interval string) (*LatestResult, error) {
	if _, err := models.ToDuration(interval); err != nil {
		return nil, err
	}
	table := models.TableName(symbol, interval)
	if err := models.ValidateTableName(table); err != nil {
		return nil, fmt.Errorf("table %q: %w", table, err)
	}

	res := &LatestResult{Symbol: symbol, Interval: interval, Table: table}
	t, ok, err := uc.store.LatestOpenTime(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("latest open time: %w", err)
	}
	if ok {
		res.LatestOpenTime = &t
	}
	return res, nil
}

// SyncStatus returns the last report of every pair synced so far.
func (uc *CandlesUseCase) SyncStatus(ctx context.Context) ([]models.PairReport, error) {
	if uc.status == nil {
		return []models.PairReport{}, nil
	}
	return uc.status.Reports(ctx)
}
