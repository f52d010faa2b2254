package export

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gaurav-prasanna/markify/core"
)

// Metrics records export outcomes.
type Metrics struct {
	exports  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
}

// NewMetrics creates the export collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markify_exports_total",
			Help: "Exports by format and outcome.",
		}, []string{"format", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "markify_export_duration_seconds",
			Help:    "Time spent producing and delivering an export.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"format"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markify_export_bytes_total",
			Help: "Bytes of exported artifacts.",
		}, []string{"format"}),
	}
	reg.MustRegister(m.exports, m.duration, m.bytes)
	return m
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrBusy):
		return "busy"
	case isUnavailable(err):
		return "unavailable"
	default:
		return "failure"
	}
}

func (m *Metrics) observe(format core.Format, size int, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	f := string(format)
	m.exports.WithLabelValues(f, outcome(err)).Inc()
	m.duration.WithLabelValues(f).Observe(elapsed.Seconds())
	if err == nil {
		m.bytes.WithLabelValues(f).Add(float64(size))
	}
}
