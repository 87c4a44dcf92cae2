package binance

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"time"

	"CandlePull/internal/domain/models"
	drepo "CandlePull/internal/domain/repository"
	xhttp "CandlePull/pkg/http"
	"CandlePull/pkg/logger"
	"CandlePull/pkg/metrics"
	"CandlePull/pkg/util"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.binance.com"
	klinesPath     = "/api/v3/klines"
)

// PageRequest is one klines call. Nil bounds are omitted from the query,
// which makes the provider return the most recent page.
type PageRequest struct {
	Symbol    string
	Interval  string
	Limit     int
	StartTime *time.Time
	EndTime   *time.Time
}

// Option configures Client.
type Option func(*Client)

// Client fetches klines from the Binance REST API.
type Client struct {
	http         *xhttp.Client
	baseURL      string
	retryMax     int
	retryBackoff time.Duration
	maxRounds    int
	limiter      *rate.Limiter
	metrics      drepo.Metrics
	log          *logger.Logger
}

var _ drepo.CandleFetcher = (*Client)(nil)

// New creates a klines client.
func New(httpClient *xhttp.Client, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		http:         httpClient,
		baseURL:      DefaultBaseURL,
		retryMax:     10,
		retryBackoff: time.Millisecond,
		limiter:      rate.NewLimiter(rate.Inf, 1),
		metrics:      metrics.Nop{},
		log:          log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient()
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	return c
}

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithRetry sets how many times a non-2xx page is retried and the fixed wait between tries.
func WithRetry(retries int, wait time.Duration) Option {
	return func(c *Client) {
		c.retryMax = retries
		c.retryBackoff = wait
	}
}

// WithMaxRounds caps pagination rounds. Zero means no cap.
func WithMaxRounds(n int) Option {
	return func(c *Client) {
		c.maxRounds = n
	}
}

// WithRateLimit paces requests. Zero or negative disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func WithMetrics(m drepo.Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// RequestPage performs one klines GET. Non-2xx answers are retried with a
// constant backoff; once the budget is spent a *models.FetchFailedError is returned.
// Transport and decode failures are not retried.
func (c *Client) RequestPage(ctx context.Context, req PageRequest) ([]models.RawCandle, error) {
	opts := &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + klinesPath,
		Headers:     map[string]string{"accept": "application/json"},
		QueryParams: pageQuery(req),
	}

	attempts := 0
	lastStatus := 0
	op := func() ([]models.RawCandle, error) {
		attempts++
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		var page []models.RawCandle
		err := c.http.SendAndParse(ctx, opts, &page)
		if err == nil {
			return page, nil
		}

		var se *xhttp.StatusError
		if errors.As(err, &se) {
			lastStatus = se.StatusCode
			if attempts <= c.retryMax {
				c.metrics.RecordRetry(req.Symbol, req.Interval)
				c.log.Warn("klines request rejected, retrying",
					logger.String("symbol", req.Symbol),
					logger.String("interval", req.Interval),
					logger.Int("status", se.StatusCode),
					logger.Int("attempt", attempts),
					logger.Duration("sleep_ms", c.retryBackoff),
				)
			}
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(c.retryBackoff)
	b = backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retryMax)), ctx)

	page, err := backoff.RetryWithData(op, b)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.metrics.RecordError("fetch")
		return nil, &models.FetchFailedError{
			Symbol:     req.Symbol,
			Interval:   req.Interval,
			Attempts:   attempts,
			StatusCode: lastStatus,
			Err:        err,
		}
	}

	c.log.Debug("klines page downloaded",
		logger.String("symbol", req.Symbol),
		logger.String("interval", req.Interval),
		logger.Int("rows", len(page)),
	)
	return page, nil
}

// Fetch downloads the window. When it fits in one page a single bounded
// request is made. Otherwise pages are walked backwards from the most recent
// one, each round ending at the earliest open time seen so far, until that
// bound stops moving.
func (c *Client) Fetch(ctx context.Context, symbol, interval string, pageLimit int, w models.FetchWindow) (drepo.FetchResult, error) {
	c.log.Info("downloading candles",
		logger.String("symbol", symbol),
		logger.String("interval", interval),
		logger.Time("from", w.StartTime),
		logger.Time("to", w.EndTime),
		logger.Int64("estimated", w.EstimatedIntervals),
	)

	if w.EstimatedIntervals < int64(pageLimit) {
		start, end := w.StartTime, w.EndTime
		page, err := c.RequestPage(ctx, PageRequest{
			Symbol:    symbol,
			Interval:  interval,
			Limit:     pageLimit,
			StartTime: &start,
			EndTime:   &end,
		})
		if err != nil {
			return drepo.FetchResult{Rounds: 1, Err: err}, err
		}
		c.metrics.RecordFetched(symbol, interval, len(page))
		c.metrics.RecordRounds(symbol, interval, 1)
		return drepo.FetchResult{Candles: page, Rounds: 1}, nil
	}

	return c.paginate(ctx, symbol, interval, pageLimit, w)
}

func (c *Client) paginate(ctx context.Context, symbol, interval string, pageLimit int, w models.FetchWindow) (drepo.FetchResult, error) {
	res := drepo.FetchResult{Paginated: true}
	c.log.Info("downloading in several rounds",
		logger.String("symbol", symbol),
		logger.String("interval", interval),
		logger.Int64("max_rounds", int64(math.Ceil(float64(w.EstimatedIntervals)/float64(pageLimit)))),
	)

	var (
		upper     *time.Time
		lastUpper int64
		haveLast  bool
	)
	for {
		if c.maxRounds > 0 && res.Rounds >= c.maxRounds {
			res.RoundCapHit = true
			c.log.Warn("pagination round cap reached",
				logger.String("symbol", symbol),
				logger.String("interval", interval),
				logger.Int("rounds", res.Rounds),
			)
			break
		}

		res.Rounds++
		c.log.Debug("pagination round",
			logger.String("symbol", symbol),
			logger.String("interval", interval),
			logger.Int("round", res.Rounds),
		)

		page, err := c.RequestPage(ctx, PageRequest{
			Symbol:   symbol,
			Interval: interval,
			Limit:    pageLimit,
			EndTime:  upper,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.Partial = true
			res.Err = err
			c.log.Error("pagination aborted, keeping partial result",
				logger.String("symbol", symbol),
				logger.String("interval", interval),
				logger.Int("round", res.Rounds),
				logger.Int("kept", len(res.Candles)),
				logger.Error(err),
			)
			break
		}

		res.Candles = append(res.Candles, page...)
		if len(res.Candles) == 0 {
			break
		}
		sort.SliceStable(res.Candles, func(i, j int) bool {
			return res.Candles[i].OpenTime < res.Candles[j].OpenTime
		})

		earliest := res.Candles[0].OpenTime
		if haveLast && earliest == lastUpper {
			c.log.Info("finishing fetching",
				logger.String("symbol", symbol),
				logger.String("interval", interval),
				logger.Int("rounds", res.Rounds),
			)
			break
		}
		lastUpper, haveLast = earliest, true
		t := util.FromMillis(earliest)
		upper = &t
	}

	c.metrics.RecordFetched(symbol, interval, len(res.Candles))
	c.metrics.RecordRounds(symbol, interval, res.Rounds)
	return res, nil
}

func pageQuery(req PageRequest) map[string][]string {
	q := map[string][]string{
		"symbol":   {req.Symbol},
		"interval": {req.Interval},
		"limit":    {strconv.Itoa(req.Limit)},
	}
	if req.StartTime != nil {
		q["startTime"] = []string{strconv.FormatInt(util.ToMillis(*req.StartTime), 10)}
	}
	if req.EndTime != nil {
		q["endTime"] = []string{strconv.FormatInt(util.ToMillis(*req.EndTime), 10)}
	}
	return q
}
