package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestEnabledDefaultsFalse(t *testing.T) {
	require.False(t, Enabled())
}

func TestEnabledReflectsEnvVar(t *testing.T) {
	t.Setenv("CONVERGE_OTEL_ENABLED", "true")
	require.True(t, Enabled())
}

func TestInitDisabledInstallsNoopProvidersAndTextLogger(t *testing.T) {
	logger, err := Init(context.Background(), "converge", "test")
	require.NoError(t, err)
	require.NotNil(t, logger)
	_, isText := logger.Handler().(*slog.TextHandler)
	require.True(t, isText)
	_, isNoop := otel.GetTracerProvider().(tracenoop.TracerProvider)
	require.True(t, isNoop)
	require.NotNil(t, Tracer())
	require.NotNil(t, Meter())
}

func TestShutdownIsNoOpWithoutRegisteredProviders(t *testing.T) {
	shutdownFns = nil
	require.NoError(t, Shutdown(context.Background()))
}

func TestWithTraceEnrichesLoggerWithTraceAndIntentID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	ctx, enriched, span := WithTrace(context.Background(), base, "validate", "trace-1", "intent-1")
	require.NotNil(t, ctx)
	require.NotNil(t, enriched)
	defer span.End()
	enriched.Info("probe")
	require.Contains(t, buf.String(), "trace_id=trace-1")
	require.Contains(t, buf.String(), "intent_id=intent-1")
}
