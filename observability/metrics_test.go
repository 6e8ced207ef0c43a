package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*ledgerMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return newLedgerMetrics(prometheus.NewRegistry(), provider.Meter(MeterName)), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, key, value string) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected aggregation %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value(attribute.Key(key)); found && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestObserveRecordsPrometheusAndOtel(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.Observe(ctx, "escrow.approve", nil, "", 20*time.Millisecond)
	m.Observe(ctx, "escrow.approve", nil, "", 10*time.Millisecond)
	failure := fmt.Errorf("approve: %w", errors.New("milestone not submitted"))
	m.Observe(ctx, "escrow.approve", failure, Reason(failure), 5*time.Millisecond)

	if got := testutil.ToFloat64(m.operations.WithLabelValues("escrow.approve", "success")); got != 2 {
		t.Fatalf("prometheus success count = %v", got)
	}
	if got := testutil.ToFloat64(m.errors.WithLabelValues("escrow.approve", "milestone not submitted")); got != 1 {
		t.Fatalf("prometheus error count = %v", got)
	}

	data := collect(t, reader)
	ops, ok := data["secureflow.ledger.operations"]
	if !ok {
		t.Fatalf("operations counter not exported: %v", data)
	}
	if got := sumFor(t, ops, "outcome", "success"); got != 2 {
		t.Fatalf("otel success count = %d", got)
	}
	if got := sumFor(t, ops, "outcome", "error"); got != 1 {
		t.Fatalf("otel error outcome count = %d", got)
	}
	errs, ok := data["secureflow.ledger.errors"]
	if !ok {
		t.Fatalf("errors counter not exported")
	}
	if got := sumFor(t, errs, "reason", "milestone not submitted"); got != 1 {
		t.Fatalf("otel error reason count = %d", got)
	}
	hist, ok := data["secureflow.ledger.duration"].(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 3 {
		t.Fatalf("unexpected latency histogram %+v", data["secureflow.ledger.duration"])
	}
}

func TestObserveDefaultsLabels(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.Observe(context.Background(), "", errors.New("boom"), "", time.Millisecond)

	if got := testutil.ToFloat64(m.errors.WithLabelValues("unknown", "unspecified")); got != 1 {
		t.Fatalf("default labels not applied, count %v", got)
	}
	if got := sumFor(t, collect(t, reader)["secureflow.ledger.errors"], "operation", "unknown"); got != 1 {
		t.Fatalf("otel default operation count = %d", got)
	}
}

func TestNilMetricsIgnored(t *testing.T) {
	var m *ledgerMetrics
	m.Observe(context.Background(), "escrow.create", nil, "", time.Second)
	m.SetJournalHeight(3)
	m.SetReserve("", 1)
	m.SetAccruedFees("", 1)
}

func TestReasonUnwrapsToInnermost(t *testing.T) {
	base := errors.New("escrow not found")
	if got := Reason(fmt.Errorf("load: %w", fmt.Errorf("get: %w", base))); got != "escrow not found" {
		t.Fatalf("reason = %q", got)
	}
	if Reason(nil) != "" {
		t.Fatalf("nil error should have no reason")
	}
}
