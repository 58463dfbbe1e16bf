package nakama

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "lastarena/nakama"

// scope wraps the span of one RPC call.
type scope struct {
	Ctx  context.Context
	span oteltrace.Span
}

func startScope(ctx context.Context, name string, attrs ...attribute.KeyValue) *scope {
	tracerCtx, span := otel.Tracer(tracerName).Start(ctx, name, oteltrace.WithAttributes(attrs...))
	return &scope{Ctx: tracerCtx, span: span}
}

func (s *scope) Tag(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

// Fail records err on the span and returns it unchanged.
func (s *scope) Fail(err error) error {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *scope) Finish() {
	s.span.End()
}
