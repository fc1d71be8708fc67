// Package metrics exposes Prometheus collectors for façade operations and
// live blob handles.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mofs"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Collector groups the façade metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	openBlobs  prometheus.Gauge
}

// New builds an unregistered collector.
func New() *Collector {
	return &Collector{
		// operations counts façade calls by backend and outcome.
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of façade operations",
			},
			[]string{"op", "backend", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of façade operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"op"},
		),
		openBlobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "open_blobs",
				Help:      "Number of blob backings not yet released",
			},
		),
	}
}

// Register adds every collector to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if c == nil {
		return nil
	}
	for _, col := range []prometheus.Collector{c.operations, c.duration, c.openBlobs} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// Observe records one finished operation.
func (c *Collector) Observe(op, backend string, start time.Time, err error) {
	if c == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	c.operations.WithLabelValues(op, backend, result).Inc()
	c.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// BlobOpened increments the live blob gauge.
func (c *Collector) BlobOpened() {
	if c != nil {
		c.openBlobs.Inc()
	}
}

// BlobReleased decrements the live blob gauge.
func (c *Collector) BlobReleased() {
	if c != nil {
		c.openBlobs.Dec()
	}
}
