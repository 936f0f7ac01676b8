package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics records outcomes of order fulfillment attempts.
type FulfillmentMetrics struct {
	duration      *prometheus.HistogramVec
	success       prometheus.Counter
	failure       *prometheus.CounterVec
	lowStockWarns prometheus.Counter
}

// NewFulfillmentMetrics registers the fulfillment metrics on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fulfillment_duration_seconds",
		Help:    "Duration of order fulfillment attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	success := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_success_total",
		Help: "Successfully committed fulfillment transactions.",
	})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_failure_total",
		Help: "Aborted fulfillment transactions by failure kind.",
	}, []string{"reason"})
	lowStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_low_stock_warnings_total",
		Help: "Low-stock warnings emitted by committed fulfillments.",
	})
	reg.MustRegister(duration, success, failure, lowStock)
	return &FulfillmentMetrics{
		duration:      duration,
		success:       success,
		failure:       failure,
		lowStockWarns: lowStock,
	}
}

// ObserveDuration records the attempt duration for the given outcome.
func (f *FulfillmentMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if f == nil || f.duration == nil {
		return
	}
	f.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncSuccess increments the committed-transaction counter.
func (f *FulfillmentMetrics) IncSuccess() {
	if f == nil || f.success == nil {
		return
	}
	f.success.Inc()
}

// IncFailure increments the failure counter for the given reason.
func (f *FulfillmentMetrics) IncFailure(reason string) {
	if f == nil || f.failure == nil {
		return
	}
	f.failure.WithLabelValues(normalizeLabel(reason)).Inc()
}

// AddLowStockWarnings counts warnings returned to callers.
func (f *FulfillmentMetrics) AddLowStockWarnings(n int) {
	if f == nil || f.lowStockWarns == nil || n <= 0 {
		return
	}
	f.lowStockWarns.Add(float64(n))
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
