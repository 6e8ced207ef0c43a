package observability

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName scopes the otel instruments recorded by the ledger.
const MeterName = "secureflow/ledger"

type ledgerMetrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	height     prometheus.Gauge
	reserve    *prometheus.GaugeVec
	fees       *prometheus.GaugeVec

	meter           metric.Meter
	opCounter       metric.Int64Counter
	errCounter      metric.Int64Counter
	latencyRecorder metric.Float64Histogram
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *ledgerMetrics
)

// Ledger returns the lazily-initialised metrics registry used by the
// operation executor. Instruments are recorded in prometheus and in the
// global otel meter provider.
func Ledger() *ledgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = newLedgerMetrics(prometheus.DefaultRegisterer, otel.GetMeterProvider().Meter(MeterName))
	})
	return ledgerRegistry
}

func newLedgerMetrics(reg prometheus.Registerer, meter metric.Meter) *ledgerMetrics {
	m := &ledgerMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "secureflow",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total executed ledger operations segmented by name and outcome.",
		}, []string{"operation", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "secureflow",
			Subsystem: "ledger",
			Name:      "errors_total",
			Help:      "Rejected ledger operations segmented by name and failure kind.",
		}, []string{"operation", "reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "secureflow",
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Latency distribution for ledger operations including commit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "secureflow",
			Subsystem: "ledger",
			Name:      "journal_height",
			Help:      "Sequence number of the latest committed journal entry.",
		}),
		reserve: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "secureflow",
			Subsystem: "escrow",
			Name:      "reserve",
			Help:      "Outstanding escrow reserve per asset as of the last operation touching it.",
		}, []string{"asset"}),
		fees: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "secureflow",
			Subsystem: "escrow",
			Name:      "accrued_fees",
			Help:      "Accrued platform fees per asset awaiting withdrawal.",
		}, []string{"asset"}),
	}
	reg.MustRegister(m.operations, m.errors, m.latency, m.height, m.reserve, m.fees)
	m.initMeter(meter)
	return m
}

func (m *ledgerMetrics) initMeter(meter metric.Meter) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(MeterName)
	}
	ops, err := meter.Int64Counter("secureflow.ledger.operations",
		metric.WithDescription("Executed ledger operations."))
	if err != nil {
		meter = noop.NewMeterProvider().Meter(MeterName)
		ops, _ = meter.Int64Counter("secureflow.ledger.operations")
	}
	errs, err := meter.Int64Counter("secureflow.ledger.errors",
		metric.WithDescription("Rejected ledger operations."))
	if err != nil {
		meter = noop.NewMeterProvider().Meter(MeterName)
		errs, _ = meter.Int64Counter("secureflow.ledger.errors")
	}
	latency, err := meter.Float64Histogram("secureflow.ledger.duration",
		metric.WithDescription("Ledger operation latency including commit."),
		metric.WithUnit("s"))
	if err != nil {
		meter = noop.NewMeterProvider().Meter(MeterName)
		latency, _ = meter.Float64Histogram("secureflow.ledger.duration")
	}
	m.meter = meter
	m.opCounter = ops
	m.errCounter = errs
	m.latencyRecorder = latency
}

// Observe records the outcome of one executed operation. reason is the
// failure kind reported on error and ignored on success.
func (m *ledgerMetrics) Observe(ctx context.Context, operation string, err error, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if operation == "" {
		operation = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		if reason == "" {
			reason = "unspecified"
		}
		m.errors.WithLabelValues(operation, reason).Inc()
		if m.errCounter != nil {
			m.errCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("operation", operation),
				attribute.String("reason", reason),
			))
		}
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
	if m.opCounter != nil {
		m.opCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
	}
	if m.latencyRecorder != nil {
		m.latencyRecorder.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("operation", operation)))
	}
}

// SetJournalHeight publishes the latest journal sequence number.
func (m *ledgerMetrics) SetJournalHeight(seq uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(seq))
}

// SetReserve publishes the outstanding reserve for an asset.
func (m *ledgerMetrics) SetReserve(asset string, value float64) {
	if m == nil {
		return
	}
	m.reserve.WithLabelValues(assetLabel(asset)).Set(value)
}

// SetAccruedFees publishes the accrued fee pool for an asset.
func (m *ledgerMetrics) SetAccruedFees(asset string, value float64) {
	if m == nil {
		return
	}
	m.fees.WithLabelValues(assetLabel(asset)).Set(value)
}

// Reason reduces err to a stable label by walking its wrap chain down to the
// innermost error.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
