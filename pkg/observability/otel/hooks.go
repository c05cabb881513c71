package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matzehuels/vizframe/pkg/observability"
)

// TracerName is the instrumentation scope of the spans SpanHooks emits.
const TracerName = "github.com/matzehuels/vizframe"

// SpanHooks records hook events as spans. Step and refresh passes become
// spans covering their duration; pushes, rejections and plugin events become
// events on the span found in the context, or on a short span of their own
// when the context carries none.
type SpanHooks struct {
	tracer trace.Tracer
}

// HookOption configures SpanHooks.
type HookOption func(*SpanHooks)

// WithTracerProvider uses tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) HookOption {
	return func(h *SpanHooks) { h.tracer = tp.Tracer(TracerName) }
}

// NewSpanHooks creates hooks backed by the global tracer provider.
func NewSpanHooks(opts ...HookOption) *SpanHooks {
	h := &SpanHooks{tracer: otel.Tracer(TracerName)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var (
	_ observability.TransformHooks = (*SpanHooks)(nil)
	_ observability.SceneHooks     = (*SpanHooks)(nil)
)

func (h *SpanHooks) OnPush(ctx context.Context, source, target, kind string) {
	h.event(ctx, "transform.push",
		attribute.String("vizframe.source", source),
		attribute.String("vizframe.target", target),
		attribute.String("vizframe.kind", kind),
	)
}

func (h *SpanHooks) OnReject(ctx context.Context, source, target string, err error) {
	span, end := h.spanFor(ctx, "transform.reject")
	defer end()
	span.AddEvent("transform.reject", trace.WithAttributes(
		attribute.String("vizframe.source", source),
		attribute.String("vizframe.target", target),
	))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (h *SpanHooks) OnStep(ctx context.Context, applied, recomputed int, d time.Duration) {
	h.timed(ctx, "transform.step", d,
		attribute.Int("vizframe.applied", applied),
		attribute.Int("vizframe.recomputed", recomputed),
	)
}

func (h *SpanHooks) OnAttach(ctx context.Context, plugin string) {
	h.event(ctx, "scene.attach", attribute.String("vizframe.plugin", plugin))
}

func (h *SpanHooks) OnDetach(ctx context.Context, plugin string) {
	h.event(ctx, "scene.detach", attribute.String("vizframe.plugin", plugin))
}

func (h *SpanHooks) OnActivity(ctx context.Context, plugin string, enabled bool) {
	h.event(ctx, "scene.activity",
		attribute.String("vizframe.plugin", plugin),
		attribute.Bool("vizframe.enabled", enabled),
	)
}

func (h *SpanHooks) OnRefresh(ctx context.Context, updated, skipped int) {
	h.timed(ctx, "scene.refresh", 0,
		attribute.Int("vizframe.updated", updated),
		attribute.Int("vizframe.skipped", skipped),
	)
}

func (h *SpanHooks) event(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span, end := h.spanFor(ctx, name)
	defer end()
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// spanFor returns the recording span in ctx, or starts one named name.
func (h *SpanHooks) spanFor(ctx context.Context, name string) (trace.Span, func()) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		return span, func() {}
	}
	_, span := h.tracer.Start(ctx, name)
	return span, func() { span.End() }
}

func (h *SpanHooks) timed(ctx context.Context, name string, d time.Duration, attrs ...attribute.KeyValue) {
	end := time.Now()
	_, span := h.tracer.Start(ctx, name,
		trace.WithTimestamp(end.Add(-d)),
		trace.WithAttributes(attrs...),
	)
	span.End(trace.WithTimestamp(end))
}
