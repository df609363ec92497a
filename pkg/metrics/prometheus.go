package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	apiCalls     *prometheus.CounterVec
	records      *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	throttleWait *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		apiCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "histpull_api_calls_total",
				Help: "Total number of upstream API calls issued",
			},
			[]string{"source"},
		),
		records: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "histpull_records_written_total",
				Help: "Total number of observations appended to series",
			},
			[]string{"source", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "histpull_errors_total",
				Help: "Total number of errors by source and kind",
			},
			[]string{"source", "kind"},
		),
		throttleWait: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "histpull_throttle_wait_seconds_total",
				Help: "Total seconds spent sleeping on rate limits",
			},
			[]string{"source"},
		),
		fetchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "histpull_fetch_duration_seconds",
				Help:    "Duration of upstream fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
	}
}

// RecordCall records one upstream API call.
func (r *Recorder) RecordCall(source string) {
	r.apiCalls.WithLabelValues(source).Inc()
}

// RecordRecords records observations appended to a symbol's series.
func (r *Recorder) RecordRecords(source, symbol string, n int) {
	r.records.WithLabelValues(source, symbol).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(source, kind string) {
	r.errorsTotal.WithLabelValues(source, kind).Inc()
}

// RecordThrottleWait records time spent sleeping on a rate limit.
func (r *Recorder) RecordThrottleWait(source string, seconds float64) {
	r.throttleWait.WithLabelValues(source).Add(seconds)
}

// RecordFetchLatency records upstream fetch latency in seconds.
func (r *Recorder) RecordFetchLatency(source string, seconds float64) {
	r.fetchLatency.WithLabelValues(source).Observe(seconds)
}
