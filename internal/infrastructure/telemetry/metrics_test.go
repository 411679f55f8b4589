package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pharmaerp/receivables/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewMeterProviderDisabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.ForceFlush(context.Background()))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestAllocationMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewAllocationMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()

	m.RecordAllocation(ctx, tenantID, "auto", 2, time.Millisecond)
	m.RecordAllocation(ctx, tenantID, "auto", 1, time.Millisecond)
	m.RecordValidation(ctx, tenantID, "OVER_ALLOCATED")
	m.RecordEditRejected(ctx, tenantID)
	m.RecordSubmission(ctx, tenantID, "UPI", telemetry.OutcomeAccepted, 20*time.Millisecond)
	m.RecordPaymentAmounts(ctx, tenantID, "INR", decimal.NewFromInt(4000), decimal.Zero)

	got := collect(t, reader)

	runs, ok := got["receivables_allocation_runs_total"]
	require.True(t, ok)
	sum, ok := runs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	payments, ok := got["receivables_payments_total"]
	require.True(t, ok)
	psum := payments.Data.(metricdata.Sum[int64])
	require.Len(t, psum.DataPoints, 1)
	outcome, ok := psum.DataPoints[0].Attributes.Value(telemetry.AttrOutcome)
	require.True(t, ok)
	assert.Equal(t, telemetry.OutcomeAccepted, outcome.AsString())

	for _, name := range []string{
		"receivables_allocation_duration_seconds",
		"receivables_allocation_invoices",
		"receivables_allocation_validations_total",
		"receivables_allocation_edits_rejected_total",
		"receivables_payment_amount",
		"receivables_payment_unallocated_amount",
		"receivables_payment_submit_duration_seconds",
	} {
		assert.Contains(t, got, name)
	}
}

func TestAllocationMetricsNilSafe(t *testing.T) {
	var m *telemetry.AllocationMetrics
	assert.NotPanics(t, func() {
		m.RecordAllocation(context.Background(), uuid.New(), "auto", 1, time.Millisecond)
		m.RecordSubmission(context.Background(), uuid.New(), "CASH", telemetry.OutcomeFailed, time.Millisecond)
	})
}

func TestAllocationMetricsOnNoopMeter(t *testing.T) {
	m, err := telemetry.NewAllocationMetrics(noop.NewMeterProvider().Meter("noop"))
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordValidation(context.Background(), uuid.New(), "FULLY_ALLOCATED")
	})
}
