// Package otel wires the observability hooks to OpenTelemetry tracing.
//
// [Setup] installs a global tracer provider exporting over OTLP/HTTP, and
// [SpanHooks] turns transform and scene hook events into spans:
//
//	shutdown, err := otel.Setup(ctx, "vizframe")
//	if err != nil {
//	    return err
//	}
//	defer shutdown(context.Background())
//	hooks := otel.NewSpanHooks()
//	observability.SetTransformHooks(hooks)
//	observability.SetSceneHooks(hooks)
package otel

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Environment variables read by Setup.
const (
	EnvEndpoint = "VIZFRAME_OTEL_ENDPOINT"
	EnvEnabled  = "VIZFRAME_OTEL_ENABLED"
)

// Setup initialises OpenTelemetry tracing for the given service.
//
// Tracing is opt-in: when VIZFRAME_OTEL_ENDPOINT is empty or
// VIZFRAME_OTEL_ENABLED is "false", Setup returns a no-op shutdown function
// and no global provider is registered. Enabled reports which case applied.
//
// The returned shutdown function flushes pending spans and should be deferred
// by the caller.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	endpoint, ok := Enabled()
	if !ok {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Enabled returns the configured endpoint and whether tracing is on.
func Enabled() (string, bool) {
	if strings.EqualFold(os.Getenv(EnvEnabled), "false") {
		return "", false
	}
	endpoint := os.Getenv(EnvEndpoint)
	return endpoint, endpoint != ""
}
