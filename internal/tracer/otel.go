package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "roster/lifecycle"

// OTelTracer adapts the package's Tracer interface onto OpenTelemetry.
type OTelTracer struct {
	tracer trace.Tracer
}

// OTelOption configures the adapter.
type OTelOption func(*OTelTracer)

// WithOTelTracer injects a pre-built OpenTelemetry tracer instead of the
// global provider's.
func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) {
		o.tracer = t
	}
}

// NewOTel returns an adapter backed by the global tracer provider unless an
// option supplies another.
func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(instrumentationName)
	}
	return t
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(otelAttrs(attrs)...))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(otelAttrs(attrs)...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(otelAttrs(attrs)...))
}

// otelAttrs converts attributes to OpenTelemetry key-values. Unrecognized
// value types are stringified rather than dropped.
func otelAttrs(attrs []Attribute) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case bool:
			out = append(out, attribute.Bool(a.Key, v))
		case int:
			out = append(out, attribute.Int64(a.Key, int64(v)))
		case int64:
			out = append(out, attribute.Int64(a.Key, v))
		case float64:
			out = append(out, attribute.Float64(a.Key, v))
		default:
			out = append(out, attribute.String(a.Key, fmt.Sprint(v)))
		}
	}
	return out
}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Span   = otelSpan{}
)
