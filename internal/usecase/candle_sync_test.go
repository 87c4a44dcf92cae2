package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"CandlePull/internal/domain/models"
	drepo "CandlePull/internal/domain/repository"
	"CandlePull/internal/repository"
	"CandlePull/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves hourly candles from an in-memory history, honouring the
// window the way a single bounded request would.
type fakeFetcher struct {
	history []models.RawCandle
	calls   []models.FetchWindow
	err     error
}

func hourly(n int, closePrice string) []models.RawCandle {
	out := make([]models.RawCandle, 0, n)
	for i := 0; i < n; i++ {
		r := raw(DefaultEpoch.Add(time.Duration(i)*time.Hour).UnixMilli(), closePrice)
		out = append(out, r)
	}
	return out
}

func (f *fakeFetcher) Fetch(_ context.Context, _, _ string, pageLimit int, w models.FetchWindow) (drepo.FetchResult, error) {
	f.calls = append(f.calls, w)
	if f.err != nil {
		return drepo.FetchResult{Rounds: 1, Err: f.err}, f.err
	}
	var out []models.RawCandle
	for _, r := range f.history {
		if r.OpenTime >= w.StartTime.UnixMilli() && r.OpenTime <= w.EndTime.UnixMilli() && len(out) < pageLimit {
			out = append(out, r)
		}
	}
	return drepo.FetchResult{Candles: out, Rounds: 1}, nil
}

type recordingPublisher struct {
	tables []string
	count  int
	err    error
}

func (p *recordingPublisher) PublishCandles(_ context.Context, table string, candles []models.Candle) error {
	p.tables = append(p.tables, table)
	p.count += len(candles)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestSyncEmptyTableSingleRequest(t *testing.T) {
	store := repository.NewMemoryCandleStore()
	fetcher := &fakeFetcher{history: hourly(500, "1")}
	pub := &recordingPublisher{}
	status := repository.NewCacheStatusStore(cache.NewMemoryCache())
	now := DefaultEpoch.Add(499*time.Hour + 30*time.Minute)

	s := NewCandleSync(store, fetcher, SyncConfig{Symbols: []string{"BTCEUR"}, Intervals: []string{"1h"}, PageLimit: 1000}, nil,
		WithPublisher(pub), WithStatusStore(status), WithClock(func() time.Time { return now }))

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Pairs, 1)

	p := report.Pairs[0]
	assert.Empty(t, p.Error)
	assert.Equal(t, "BTCEUR_1h", p.Table)
	assert.Equal(t, DefaultEpoch, p.WindowStart)
	assert.Less(t, p.Estimated, int64(1000))
	assert.Equal(t, 500, p.Upserted)
	require.NotNil(t, p.LatestOpen)
	assert.Equal(t, DefaultEpoch.Add(499*time.Hour), *p.LatestOpen)

	assert.Len(t, fetcher.calls, 1)
	assert.Len(t, store.Rows("BTCEUR_1h"), 500)
	assert.Equal(t, []string{"BTCEUR_1h"}, pub.tables)
	assert.Equal(t, 500, pub.count)

	saved, err := status.Reports(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, 500, saved[0].Upserted)
}

func TestSyncIsIdempotentAndOverwrites(t *testing.T) {
	store := repository.NewMemoryCandleStore()
	fetcher := &fakeFetcher{history: hourly(24, "1")}
	now := DefaultEpoch.Add(23 * time.Hour)
	cfg := SyncConfig{Symbols: []string{"BTCEUR"}, Intervals: []string{"1h"}}
	s := NewCandleSync(store, fetcher, cfg, nil, WithClock(func() time.Time { return now }))

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	// second pass starts at the latest stored open time and rewrites it
	fetcher.history = hourly(24, "9")
	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultEpoch.Add(23*time.Hour), report.Pairs[0].WindowStart)
	rows := store.Rows("BTCEUR_1h")
	require.Len(t, rows, 24)
	assert.Equal(t, "1", rows[0].Close.String())
	assert.Equal(t, "9", rows[23].Close.String())
}

func TestSyncPairFailureDoesNotStopRun(t *testing.T) {
	store := repository.NewMemoryCandleStore()
	fetcher := &fakeFetcher{history: hourly(5, "1")}
	now := DefaultEpoch.Add(4 * time.Hour)
	cfg := SyncConfig{Symbols: []string{"BTCEUR", "ETHEUR"}, Intervals: []string{"1x", "1h"}}
	s := NewCandleSync(store, fetcher, cfg, nil, WithClock(func() time.Time { return now }))

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Pairs, 4)

	assert.Equal(t, []string{"BTCEUR_1x", "BTCEUR_1h", "ETHEUR_1x", "ETHEUR_1h"},
		[]string{report.Pairs[0].Table, report.Pairs[1].Table, report.Pairs[2].Table, report.Pairs[3].Table})
	assert.Equal(t, 2, report.Failed())
	assert.NotEmpty(t, report.Pairs[0].Error)
	assert.Equal(t, 5, report.Pairs[1].Upserted)
	assert.Equal(t, 5, report.Pairs[3].Upserted)
}

func TestSyncFetchErrorIsReported(t *testing.T) {
	store := repository.NewMemoryCandleStore()
	fetcher := &fakeFetcher{err: &models.FetchFailedError{Symbol: "BTCEUR", Interval: "1h", Attempts: 11, StatusCode: 500}}
	s := NewCandleSync(store, fetcher, SyncConfig{Symbols: []string{"BTCEUR"}, Intervals: []string{"1h"}}, nil)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Pairs[0].Error, "status 500")

	exists, err := store.TableExists(context.Background(), "BTCEUR_1h")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSyncPublishFailureIsNotFatal(t *testing.T) {
	store := repository.NewMemoryCandleStore()
	fetcher := &fakeFetcher{history: hourly(3, "1")}
	pub := &recordingPublisher{err: errors.New("broker down")}
	now := DefaultEpoch.Add(2 * time.Hour)
	s := NewCandleSync(store, fetcher, SyncConfig{Symbols: []string{"BTCEUR"}, Intervals: []string{"1h"}}, nil,
		WithPublisher(pub), WithClock(func() time.Time { return now }))

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Pairs[0].Error)
	assert.Equal(t, 3, report.Pairs[0].Upserted)
}

func TestSyncStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewCandleSync(repository.NewMemoryCandleStore(), &fakeFetcher{}, SyncConfig{Symbols: []string{"BTCEUR"}, Intervals: []string{"1h"}}, nil)
	report, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Pairs)
}

func TestCandlesUseCaseLatest(t *testing.T) {
	store := repository.NewMemoryCandleStore()
	ctx := context.Background()
	require.NoError(t, store.CreateTable(ctx, "BTCEUR_1h"))

	c, err := Normalize(hourly(3, "1"))
	require.NoError(t, err)
	_, err = store.Upsert(ctx, "BTCEUR_1h", c)
	require.NoError(t, err)

	uc := NewCandlesUseCase(store, nil)
	res, err := uc.Latest(ctx, "BTCEUR", "1h")
	require.NoError(t, err)
	require.NotNil(t, res.LatestOpenTime)
	assert.Equal(t, DefaultEpoch.Add(2*time.Hour), *res.LatestOpenTime)

	res, err = uc.Latest(ctx, "ETHEUR", "1h")
	require.NoError(t, err)
	assert.Nil(t, res.LatestOpenTime)

	_, err = uc.Latest(ctx, "BTCEUR", "1x")
	assert.ErrorIs(t, err, models.ErrInvalidInterval)
}
