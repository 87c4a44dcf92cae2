package di

import (
	"fmt"

	"CandlePull/internal/domain/repository"
	"CandlePull/internal/handler/api"
	internalrepo "CandlePull/internal/repository"
	"CandlePull/internal/service/binance"
	"CandlePull/internal/usecase"
	"CandlePull/pkg/cache"
	pkgch "CandlePull/pkg/clickhouse"
	"CandlePull/pkg/config"
	xhttp "CandlePull/pkg/http"
	pkgkafka "CandlePull/pkg/kafka"
	"CandlePull/pkg/logger"
	"CandlePull/pkg/metrics"
	pkgpg "CandlePull/pkg/postgres"
	"CandlePull/pkg/server"
	"CandlePull/pkg/util"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry scraped on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.NewWithRegistry(reg)
}

// ProvideCandleStore opens the backend selected by backend.type. Dry runs
// always use the in-memory store so nothing is written.
func ProvideCandleStore(cfg *config.Config, l *logger.Logger) (repository.CandleStore, func(), error) {
	store, err := openCandleStore(cfg, l)
	if err != nil {
		return nil, nil, err
	}
	return store, closeWith(l, "candle store", store), nil
}

func openCandleStore(cfg *config.Config, l *logger.Logger) (repository.CandleStore, error) {
	if cfg.Backend.DryRun {
		l.Warn("dry run: candles are kept in memory only")
		return internalrepo.NewMemoryCandleStore(), nil
	}

	switch cfg.Backend.Type {
	case "postgres":
		client, err := pkgpg.NewClient(
			pkgpg.WithDSN(cfg.Postgres.DSN),
			pkgpg.WithMaxConnections(cfg.Postgres.MaxOpenConns, cfg.Postgres.MaxIdleConns),
			pkgpg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		)
		if err != nil {
			return nil, fmt.Errorf("postgres client: %w", err)
		}
		return internalrepo.NewPGCandleStore(client, l), nil
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		return internalrepo.NewCHCandleStore(client, cfg.ClickHouse.Database, l), nil
	case "memory":
		return internalrepo.NewMemoryCandleStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend.Type)
	}
}

// ProvideCache uses Redis when enabled and falls back to an in-process cache.
func ProvideCache(cfg *config.Config, l *logger.Logger) (cache.Service, func(), error) {
	c, err := openCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	return c, closeWith(l, "cache", c), nil
}

func openCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

func ProvideStatusStore(c cache.Service) repository.StatusStore {
	return internalrepo.NewCacheStatusStore(c)
}

func ProvideRunLock(c cache.Service) repository.RunLock {
	return c
}

// ProvidePublisher creates the Kafka candle publisher, or nil when Kafka is disabled.
func ProvidePublisher(cfg *config.Config, l *logger.Logger) (repository.Publisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	pub, err := openPublisher(cfg)
	if err != nil {
		return nil, nil, err
	}
	return pub, closeWith(l, "publisher", pub), nil
}

func openPublisher(cfg *config.Config) (repository.Publisher, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithTopic(cfg.Kafka.Topic),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.BatchSize, cfg.Kafka.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaCandlePublisher(producer), nil
}

// closeWith returns a Wire cleanup that closes c and logs a failure.
func closeWith(l *logger.Logger, name string, c interface{ Close() error }) func() {
	return func() {
		if err := c.Close(); err != nil {
			l.Warn(name+" close error", logger.Error(err))
		}
	}
}

// ProvideFetcher creates the Binance klines client.
func ProvideFetcher(cfg *config.Config, l *logger.Logger, m repository.Metrics) repository.CandleFetcher {
	return binance.New(
		xhttp.NewClient(xhttp.WithTimeout(cfg.Binance.Timeout)),
		l,
		binance.WithBaseURL(cfg.Binance.BaseURL),
		binance.WithRetry(cfg.Binance.RetryMax, cfg.Binance.RetryBackoff),
		binance.WithMaxRounds(cfg.Binance.MaxRounds),
		binance.WithRateLimit(cfg.Binance.RequestsPerSecond),
		binance.WithMetrics(m),
	)
}

// ProvideCandleSync creates the sync use case.
func ProvideCandleSync(
	cfg *config.Config,
	store repository.CandleStore,
	fetcher repository.CandleFetcher,
	pub repository.Publisher,
	status repository.StatusStore,
	m repository.Metrics,
	l *logger.Logger,
) (*usecase.CandleSync, error) {
	epoch, ok := util.ParseTime(cfg.Binance.Epoch)
	if !ok {
		return nil, fmt.Errorf("binance.epoch %q is not a date", cfg.Binance.Epoch)
	}
	opts := []usecase.SyncOption{
		usecase.WithStatusStore(status),
		usecase.WithSyncMetrics(m),
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	return usecase.NewCandleSync(store, fetcher, usecase.SyncConfig{
		Symbols:   cfg.Binance.Symbols,
		Intervals: cfg.Binance.Intervals,
		PageLimit: cfg.Binance.PageLimit,
		Epoch:     epoch.UTC(),
	}, l, opts...), nil
}

func ProvideCandlesUseCase(store repository.CandleStore, status repository.StatusStore) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(store, status)
}

// ProvideHTTPHandler registers the ops endpoints.
func ProvideHTTPHandler(l *logger.Logger, store repository.CandleStore, uc *usecase.CandlesUseCase) xhttp.Handler {
	return api.NewCandlesEchoHandler(l, store, uc)
}

// ProvideHTTPServer creates the ops server, or nil when it is disabled.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *logger.Logger, reg *prometheus.Registry) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, l,
		xhttp.WithAddr("0.0.0.0", cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(metricsPath, reg),
	)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	sync *usecase.CandleSync,
	srv *xhttp.Server,
	lock repository.RunLock,
	l *logger.Logger,
) *server.App {
	var httpRunner server.Runner
	if srv != nil {
		httpRunner = srv
	}
	return server.New(server.Options{
		Sync:    sync,
		HTTP:    httpRunner,
		Lock:    lock,
		LockTTL: cfg.Redis.LockTTL,
		Every:   cfg.Schedule.Every,
		Log:     l,
	})
}
