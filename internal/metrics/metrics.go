// ABOUTME: Prometheus metrics for the commonspace store.
// ABOUTME: Counts and times storage operations and data point writes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the store.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	DataPointWritesTotal *prometheus.CounterVec
	StudiesProvisioned   prometheus.Counter
	StudiesDeprovisioned prometheus.Counter

	registry *prometheus.Registry
}

// New creates the store metrics on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates and registers the store metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commonspace_store_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)

	m.OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commonspace_store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	m.DataPointWritesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commonspace_data_point_writes_total",
			Help: "Total number of data point writes by mode",
		},
		[]string{"mode"},
	)

	m.StudiesProvisioned = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "commonspace_studies_provisioned_total",
			Help: "Total number of study tables provisioned",
		},
	)

	m.StudiesDeprovisioned = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "commonspace_studies_deprovisioned_total",
			Help: "Total number of study tables dropped",
		},
	)

	return m
}

// RecordOperation records a store operation with its outcome.
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDataPointWrite counts a successful data point write. Mode is
// "insert" or "upsert".
func (m *Metrics) RecordDataPointWrite(mode string) {
	if m == nil {
		return
	}
	m.DataPointWritesTotal.WithLabelValues(mode).Inc()
}

// RecordProvision counts a provisioned study table.
func (m *Metrics) RecordProvision() {
	if m == nil {
		return
	}
	m.StudiesProvisioned.Inc()
}

// RecordDeprovision counts a dropped study table.
func (m *Metrics) RecordDeprovision() {
	if m == nil {
		return
	}
	m.StudiesDeprovisioned.Inc()
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format along with
// a /health endpoint.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"commonspace"}`))
	})
	return mux
}
