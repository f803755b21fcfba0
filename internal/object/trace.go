package object

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("nodebrain/object")

// WithSpan wraps a per-kind method call in a span named "object.<kind>.<method>",
// the installable shim layer spec.md §4.2 describes sitting in front of the
// method vector to measure time spent in each method. Grounded on the
// teacher's tracing.StartSpan/RecordError pair; unlike the teacher this
// never configures a TracerProvider itself, so absent one the global
// no-op tracer makes WithSpan a near-zero-cost passthrough.
func WithSpan(ctx context.Context, k Kind, method string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "object."+k.String()+"."+method,
		trace.WithAttributes(
			attribute.String("nodebrain.kind", k.String()),
			attribute.String("nodebrain.method", method),
		))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
