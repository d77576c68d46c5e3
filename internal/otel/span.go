// Package otel provides OpenTelemetry instrumentation utilities shared by the sources and the coordinator.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys used across spans.
const (
	AttrPlate         = attribute.Key("vehicle.plate")
	AttrSource        = attribute.Key("source.name")
	AttrSourceOutcome = attribute.Key("source.outcome")
	AttrStolenStatus  = attribute.Key("vehicle.stolen")
	AttrFactCount     = attribute.Key("record.fact_count")
	AttrCycleSuccess  = attribute.Key("cycle.success")
	AttrCycleChanged  = attribute.Key("cycle.changed")
)

// Source names used in span and metric attributes.
const (
	SourceRegistry = "registry"
	SourceStolen   = "stolen_register"
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// It safely handles nil spans and nil errors.
// The status description stays generic so URLs and plates only appear in span events.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
