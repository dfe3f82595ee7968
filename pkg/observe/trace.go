package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for fbind spans.
const TracerName = "fbind"

// MountSpanName is the name of the span covering one mount.
const MountSpanName = "fbind.mount"

// Tracer returns the fbind tracer from tp, or from the global provider when
// tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(TracerName)
}

// StartMount starts the span for mounting into target.
func StartMount(ctx context.Context, tracer trace.Tracer, target string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer.Start(ctx, MountSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("fbind.target", target)),
	)
}

// MountStats summarises a finished mount.
type MountStats struct {
	Nodes    int
	Bindings int
	Errors   int
}

// EndMount records stats and err on span and ends it.
func EndMount(span trace.Span, stats MountStats, err error) {
	span.SetAttributes(
		attribute.Int("fbind.nodes", stats.Nodes),
		attribute.Int("fbind.bindings", stats.Bindings),
		attribute.Int("fbind.errors", stats.Errors),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if stats.Errors > 0 {
		span.SetStatus(codes.Error, "directive errors")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
