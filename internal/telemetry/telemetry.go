// Package telemetry wires structured logging and OpenTelemetry tracing
// for the validation orchestrator and queue processor. Telemetry is
// disabled by default — zero runtime overhead when off — grounded on
// steveyegge-beads/internal/telemetry.Init's enabled-gate/no-op-provider
// pattern, retargeted from BD_OTEL_ENABLED to CONVERGE_OTEL_ENABLED and
// from the teacher's OTLP/gRPC exporter option (not in this module's
// dependency set) down to the stdouttrace + prometheus exporters already
// in go.mod.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/ghmbegerez/converge"

var shutdownFns []func(context.Context) error

// Enabled reports whether telemetry is active (CONVERGE_OTEL_ENABLED=true).
func Enabled() bool {
	return os.Getenv("CONVERGE_OTEL_ENABLED") == "true"
}

// Init configures the tracer/meter providers and returns a logger. When
// telemetry is disabled this installs no-op providers and a plain slog
// text logger — the zero-overhead path.
func Init(ctx context.Context, serviceName, version string) (*slog.Logger, error) {
	if !Enabled() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return slog.New(slog.NewTextHandler(os.Stderr, nil)), nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	tp, err := buildTraceProvider(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace provider: %w", err)
	}
	otel.SetTracerProvider(tp)
	shutdownFns = append(shutdownFns, tp.Shutdown)

	mp, err := buildMetricProvider(res)
	if err != nil {
		return nil, fmt.Errorf("telemetry: metric provider: %w", err)
	}
	otel.SetMeterProvider(mp)
	shutdownFns = append(shutdownFns, mp.Shutdown)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return logger, nil
}

// Shutdown flushes and closes every provider Init installed, in
// registration order.
func Shutdown(ctx context.Context) error {
	for _, fn := range shutdownFns {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	shutdownFns = nil
	return nil
}

// Tracer returns the package-scoped tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationScope)
}

// Meter returns the package-scoped meter, used by internal/obsv to
// register OTel metric instruments alongside the prometheus ones.
func Meter() metric.Meter {
	return otel.Meter(instrumentationScope)
}

func buildTraceProvider(ctx context.Context, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
	), nil
}

func buildMetricProvider(res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exp, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exp),
	), nil
}

// WithTrace starts a span named op and returns a logger enriched with the
// resulting trace_id/intent_id attributes, for Info-on-entry/Warn-on-
// short-circuit logging at orchestrator/queue-processor call sites.
func WithTrace(ctx context.Context, logger *slog.Logger, op, traceID, intentID string) (context.Context, *slog.Logger, trace.Span) {
	ctx, span := Tracer().Start(ctx, op)
	l := logger.With("trace_id", traceID)
	if intentID != "" {
		l = l.With("intent_id", intentID)
	}
	return ctx, l, span
}
