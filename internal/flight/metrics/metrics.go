package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the flight module.
// Tracks appends, query latency, malformed lines and store failures.
type Metrics struct {
	FlightsAppended *prometheus.CounterVec
	QueryDuration   *prometheus.HistogramVec
	SkippedLines    prometheus.Counter
	StoreErrors     *prometheus.CounterVec
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FlightsAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flight_tracker_flights_appended_total",
			Help: "Total number of flights appended, by status",
		}, []string{"status"}),
		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flight_tracker_query_duration_seconds",
			Help:    "Duration of flight queries (partition listing, download and filtering), by operation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		SkippedLines: f.NewCounter(prometheus.CounterOpts{
			Name: "flight_tracker_skipped_lines_total",
			Help: "Malformed partition lines skipped while reading",
		}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flight_tracker_store_errors_total",
			Help: "Blob store failures surfaced to callers, by operation",
		}, []string{"operation"}),
	}
}

// IncrementAppended records a successful append.
func (m *Metrics) IncrementAppended(status string) {
	if m == nil {
		return
	}
	m.FlightsAppended.WithLabelValues(status).Inc()
}

// ObserveQuery records the duration of a read operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveQuery(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// AddSkipped records malformed lines seen by a read.
func (m *Metrics) AddSkipped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SkippedLines.Add(float64(n))
}

// IncrementStoreError records a store failure for operation.
func (m *Metrics) IncrementStoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(operation).Inc()
}
