package repository

import (
	"context"
	"time"

	"CandlePull/internal/domain/models"
)

// UpsertResult counts the outcome of one Upsert call.
type UpsertResult struct {
	Upserted int
	Failed   int
	Errors   []error // one *models.PersistenceError per failed row
}

// CandleStore owns the per-pair candle tables.
type CandleStore interface {
	TableExists(ctx context.Context, table string) (bool, error)
	CreateTable(ctx context.Context, table string) error // idempotent
	LatestOpenTime(ctx context.Context, table string) (time.Time, bool, error)
	// Upsert writes each row in its own transaction. A failing row is rolled back
	// and reported in UpsertResult; the remaining rows are still written.
	Upsert(ctx context.Context, table string, candles []models.Candle) (UpsertResult, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// CandleFetcher downloads raw klines for one pair.
type CandleFetcher interface {
	Fetch(ctx context.Context, symbol, interval string, pageLimit int, w models.FetchWindow) (FetchResult, error)
}

// FetchResult is what a fetch pass produced. Partial is set when pagination
// stopped on an error and Candles holds what was collected before it.
type FetchResult struct {
	Candles     []models.RawCandle
	Paginated   bool
	Rounds      int
	Partial     bool
	RoundCapHit bool
	Err         error
}

type Publisher interface {
	PublishCandles(ctx context.Context, table string, candles []models.Candle) error
	Close() error
}

// RunLock guards against overlapping runs across processes.
type RunLock interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// StatusStore keeps the latest per-pair report for the ops API.
type StatusStore interface {
	SaveReport(ctx context.Context, r models.PairReport) error
	Reports(ctx context.Context) ([]models.PairReport, error)
}

type Metrics interface {
	RecordFetched(symbol, interval string, n int)
	RecordUpserted(symbol, interval string, n int)
	RecordError(kind string)
	RecordRetry(symbol, interval string)
	RecordRounds(symbol, interval string, rounds int)
	RecordLatency(op string, seconds float64)
}
