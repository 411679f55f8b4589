package telemetry_test

import (
	"context"
	"testing"

	"github.com/pharmaerp/receivables/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDisabledProviders(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("tracer", func(t *testing.T) {
		tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{}, logger)
		require.NoError(t, err)
		assert.False(t, tp.IsEnabled())
		tp.EnableSpanProfiles()
		assert.False(t, tp.SpanProfilesEnabled())
		assert.NotNil(t, tp.Tracer("x"))
		assert.NoError(t, tp.Shutdown(ctx))
	})

	t.Run("logs attach returns base logger", func(t *testing.T) {
		lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{}, logger)
		require.NoError(t, err)
		assert.False(t, lp.IsEnabled())

		core, recorded := observer.New(zap.InfoLevel)
		base := zap.New(core)
		attached := lp.Attach(base)
		attached.Info("hello")

		assert.Same(t, base, attached)
		assert.Equal(t, 1, recorded.Len())
		assert.NoError(t, lp.Shutdown(ctx))
	})

	t.Run("profiler", func(t *testing.T) {
		p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, logger)
		require.NoError(t, err)
		assert.False(t, p.IsEnabled())
		assert.NoError(t, p.Stop())
		assert.NoError(t, p.Stop())
	})

	t.Run("profiler requires address", func(t *testing.T) {
		_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: true}, logger)
		assert.Error(t, err)
	})

	t.Run("profiler rejects unknown profile type", func(t *testing.T) {
		_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:         true,
			ServerAddress:   "http://localhost:4040",
			ApplicationName: "receivables",
			ProfileTypes:    []string{"cpu", "gpu"},
		}, logger)
		assert.ErrorContains(t, err, "gpu")
	})
}

func TestWithProfilingLabels(t *testing.T) {
	called := false
	telemetry.WithProfilingLabels(context.Background(),
		telemetry.AllocationLabels(telemetry.OperationAutoAllocate, "auto"),
		func(ctx context.Context) {
			called = true
			assert.NotNil(t, ctx)
		})
	assert.True(t, called)

	called = false
	telemetry.WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}
