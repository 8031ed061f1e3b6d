// Package storage holds helpers shared by the database adapters.
package storage

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ExecuteAndTrace runs operation inside a client span tagged as a PostgreSQL
// call. A failure is recorded on the span and returned unchanged.
func ExecuteAndTrace(
	ctx context.Context,
	tracer trace.Tracer,
	spanName string,
	attributes []attribute.KeyValue,
	operation func(ctx context.Context) error,
) error {
	attrs := make([]attribute.KeyValue, 0, len(attributes)+1)
	attrs = append(attrs, semconv.DBSystemPostgreSQL)
	attrs = append(attrs, attributes...)

	ctx, span := tracer.Start(
		ctx,
		spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	if err := operation(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
