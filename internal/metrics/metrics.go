// Package metrics exposes Prometheus instrumentation for the license
// issuer and policy engine, grounded on the teacher package's
// pkg/metrics/prometheus.go: package-level CounterVec/GaugeVec/
// HistogramVec instances, a collector struct wrapping them, and an
// idempotent Register.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var registered = false

var (
	mintOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alk_mint_operations_total",
			Help: "Total number of license mint operations.",
		},
		[]string{"status"},
	)

	mintLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alk_mint_duration_seconds",
			Help:    "License mint duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10),
		},
		[]string{"status"},
	)

	consumeOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alk_consume_operations_total",
			Help: "Total number of ConsumeOnce calls, by resulting verdict kind.",
		},
		[]string{"kind"},
	)

	validateOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alk_validate_operations_total",
			Help: "Total number of read-only Validate calls, by resulting verdict kind.",
		},
		[]string{"kind"},
	)

	activeLicenses = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alk_active_licenses",
			Help: "Number of active license records known to the last analytics pass.",
		},
		[]string{"client"},
	)
)

// Register registers all collectors with the default Prometheus registry.
// Idempotent and safe to call multiple times, matching RegisterMetrics in
// the teacher package.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(mintOperations, mintLatency, consumeOperations, validateOperations, activeLicenses)
	registered = true
}

// Collector records license-domain events. The zero value is usable.
type Collector struct{}

// RecordMint records a mint attempt's outcome ("ok" or "error").
func (Collector) RecordMint(status string) {
	mintOperations.WithLabelValues(status).Inc()
}

// RecordValidate records the verdict kind a read-only Validate call
// produced.
func (Collector) RecordValidate(kind string) {
	validateOperations.WithLabelValues(kind).Inc()
}

// RecordConsume records the verdict kind a ConsumeOnce call produced.
func (Collector) RecordConsume(kind string) {
	consumeOperations.WithLabelValues(kind).Inc()
}

// SetActiveLicenses reports the current active-license count for a
// client, typically fed from an Analytics snapshot.
func (Collector) SetActiveLicenses(client string, count float64) {
	activeLicenses.WithLabelValues(client).Set(count)
}

// Timer measures and records mint latency on Stop.
type Timer struct {
	start  time.Time
	status string
}

// NewMintTimer starts a timer for a mint operation.
func NewMintTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop records the elapsed duration under the given status label.
func (t *Timer) Stop(status string) {
	mintLatency.WithLabelValues(status).Observe(time.Since(t.start).Seconds())
}
