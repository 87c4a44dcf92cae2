package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetched  *prometheus.CounterVec
	upserted *prometheus.CounterVec
	errors   *prometheus.CounterVec
	retries  *prometheus.CounterVec
	rounds   *prometheus.HistogramVec
	latency  *prometheus.HistogramVec
}

// New creates a recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder whose collectors live on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlepull_candles_fetched_total",
				Help: "Raw candles received from the provider",
			},
			[]string{"symbol", "interval"},
		),
		upserted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlepull_candles_upserted_total",
				Help: "Candles written to the store",
			},
			[]string{"symbol", "interval"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlepull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		retries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlepull_request_retries_total",
				Help: "Page requests retried after a non-2xx response",
			},
			[]string{"symbol", "interval"},
		),
		rounds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlepull_fetch_rounds",
				Help:    "Page requests needed per pair pass",
				Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100},
			},
			[]string{"interval"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlepull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordFetched(symbol, interval string, n int) {
	r.fetched.WithLabelValues(symbol, interval).Add(float64(n))
}

func (r *Recorder) RecordUpserted(symbol, interval string, n int) {
	r.upserted.WithLabelValues(symbol, interval).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordRetry(symbol, interval string) {
	r.retries.WithLabelValues(symbol, interval).Inc()
}

// RecordRounds observes rounds under the interval label only; symbol would blow up the bucket series.
func (r *Recorder) RecordRounds(_ string, interval string, rounds int) {
	r.rounds.WithLabelValues(interval).Observe(float64(rounds))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordFetched(string, string, int) {}
func (Nop) RecordUpserted(string, string, int) {}
func (Nop) RecordError(string) {}
func (Nop) RecordRetry(string, string) {}
func (Nop) RecordRounds(string, string, int) {}
func (Nop) RecordLatency(string, float64) {}
