package usecase

import (
	"context"
	"fmt"
	"time"

	"CandlePull/internal/domain/models"
	drepo "CandlePull/internal/domain/repository"
	"CandlePull/pkg/logger"
	"CandlePull/pkg/metrics"
)

// SyncConfig lists the pairs to keep in sync.
type SyncConfig struct {
	Symbols   []string
	Intervals []string
	PageLimit int
	Epoch     time.Time
}

// SyncOption configures CandleSync.
type SyncOption func(*CandleSync)

// CandleSync runs the fetch, normalize and upsert pass for every symbol/interval pair.
type CandleSync struct {
	store     drepo.CandleStore
	fetcher   drepo.CandleFetcher
	publisher drepo.Publisher
	status    drepo.StatusStore
	metrics   drepo.Metrics
	log       *logger.Logger
	cfg       SyncConfig
	now       func() time.Time
}

// NewCandleSync creates a CandleSync instance.
func NewCandleSync(store drepo.CandleStore, fetcher drepo.CandleFetcher, cfg SyncConfig, log *logger.Logger, opts ...SyncOption) *CandleSync {
	if cfg.Epoch.IsZero() {
		cfg.Epoch = DefaultEpoch
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 1000
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &CandleSync{
		store:   store,
		fetcher: fetcher,
		metrics: metrics.Nop{},
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithPublisher forwards upserted candles to p.
func WithPublisher(p drepo.Publisher) SyncOption {
	return func(s *CandleSync) { s.publisher = p }
}

// WithStatusStore records every PairReport in st.
func WithStatusStore(st drepo.StatusStore) SyncOption {
	return func(s *CandleSync) { s.status = st }
}

func WithSyncMetrics(m drepo.Metrics) SyncOption {
	return func(s *CandleSync) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SyncOption {
	return func(s *CandleSync) { s.now = now }
}

// Run syncs every pair in order, symbols outer and intervals inner. A failing
// pair is logged and recorded in the report; the run carries on. The only
// error returned is ctx's.
func (s *CandleSync) Run(ctx context.Context) (models.RunReport, error) {
	report := models.RunReport{StartedAt: s.now().UTC()}
	start := time.Now()
	s.log.Info("sync run started",
		logger.Strings("symbols", s.cfg.Symbols),
		logger.Strings("intervals", s.cfg.Intervals),
		logger.Int("page_limit", s.cfg.PageLimit),
	)

	for _, symbol := range s.cfg.Symbols {
		for _, interval := range s.cfg.Intervals {
			if err := ctx.Err(); err != nil {
				report.Elapsed = time.Since(start)
				return report, err
			}
			report.Pairs = append(report.Pairs, s.SyncPair(ctx, symbol, interval))
		}
	}

	report.Elapsed = time.Since(start)
	s.log.Info("sync run finished",
		logger.Int("pairs", len(report.Pairs)),
		logger.Int("failed", report.Failed()),
		logger.Duration("elapsed_ms", report.Elapsed),
	)
	return report, ctx.Err()
}

// SyncPair brings one table up to date.
func (s *CandleSync) SyncPair(ctx context.Context, symbol, interval string) models.PairReport {
	start := time.Now()
	table := models.TableName(symbol, interval)
	rep := models.PairReport{Symbol: symbol, Interval: interval, Table: table}
	log := s.log.With(logger.String("table", table))

	err := s.syncPair(ctx, log, &rep)
	if err != nil {
		rep.Error = err.Error()
		s.metrics.RecordError("pair")
		log.Error("pair sync failed", logger.Error(err))
	}

	rep.Duration = time.Since(start)
	rep.FinishedAt = s.now().UTC()
	s.metrics.RecordLatency("sync_pair", rep.Duration.Seconds())

	if s.status != nil {
		// Status is best effort; a cancelled run still records how far it got.
		if serr := s.status.SaveReport(context.WithoutCancel(ctx), rep); serr != nil {
			log.Warn("save sync status failed", logger.Error(serr))
		}
	}

	if err == nil {
		log.Info("pair synced",
			logger.Int("fetched", rep.Fetched),
			logger.Int("upserted", rep.Upserted),
			logger.Int("failed_rows", rep.FailedRows),
			logger.Bool("partial", rep.Partial),
			logger.Duration("duration_ms", rep.Duration),
		)
	}
	return rep
}

func (s *CandleSync) syncPair(ctx context.Context, log *logger.Logger, rep *models.PairReport) error {
	if err := models.ValidateTableName(rep.Table); err != nil {
		return fmt.Errorf("table %q: %w", rep.Table, err)
	}
	d, err := models.ToDuration(rep.Interval)
	if err != nil {
		return err
	}

	exists, err := s.store.TableExists(ctx, rep.Table)
	if err != nil {
		return err
	}
	if exists {
		log.Info("table exists and will be read")
	} else {
		if err := s.store.CreateTable(ctx, rep.Table); err != nil {
			return err
		}
		log.Info("table has been created")
	}

	var latestPtr *time.Time
	latest, ok, err := s.store.LatestOpenTime(ctx, rep.Table)
	if err != nil {
		return err
	}
	if ok {
		latestPtr = &latest
	}

	w := PlanSince(s.cfg.Epoch, latestPtr, s.now(), d)
	rep.WindowStart, rep.WindowEnd, rep.Estimated = w.StartTime, w.EndTime, w.EstimatedIntervals

	res, err := s.fetcher.Fetch(ctx, rep.Symbol, rep.Interval, s.cfg.PageLimit, w)
	rep.Paginated, rep.Rounds, rep.Partial = res.Paginated, res.Rounds, res.Partial
	rep.Fetched = len(res.Candles)
	if err != nil {
		return err
	}
	if res.Partial {
		log.Warn("fetch incomplete, upserting what was collected", logger.Error(res.Err))
	}
	if res.RoundCapHit {
		log.Warn("fetch stopped at round cap", logger.Int("rounds", res.Rounds))
	}

	candles, nerr := Normalize(res.Candles)
	rep.Normalized = len(candles)
	if nerr != nil {
		s.metrics.RecordError("normalize")
		log.Warn("dropped malformed candles", logger.Error(nerr))
	}

	ur, err := s.store.Upsert(ctx, rep.Table, candles)
	rep.Upserted, rep.FailedRows = ur.Upserted, ur.Failed
	s.metrics.RecordUpserted(rep.Symbol, rep.Interval, ur.Upserted)
	for range ur.Errors {
		s.metrics.RecordError("persist")
	}
	if err != nil {
		return err
	}

	if s.publisher != nil && ur.Upserted > 0 {
		if perr := s.publisher.PublishCandles(ctx, rep.Table, candles); perr != nil {
			s.metrics.RecordError("publish")
			log.Warn("publish candles failed", logger.Error(perr))
		}
	}

	if t, ok, err := s.store.LatestOpenTime(ctx, rep.Table); err == nil && ok {
		rep.LatestOpen = &t
	}
	return nil
}
