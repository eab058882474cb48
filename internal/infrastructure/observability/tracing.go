package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "janhq/health-agent"

// GetTracer returns the service tracer.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartTurnSpan starts a span for one orchestrated turn. The user ID and
// message pass through the current sanitizer.
func StartTurnSpan(ctx context.Context, sessionID, userID, messageType, message string) (context.Context, trace.Span) {
	s := CurrentSanitizer()
	return GetTracer().Start(ctx, "turn.process",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("turn.session_id", sessionID),
			attribute.String("turn.user_id", s.UserID(userID)),
			attribute.String("turn.message_type", messageType),
			attribute.String("turn.message", s.Message(message)),
		),
	)
}

// StartCapabilitySpan starts a span around an LLM or vision invocation.
func StartCapabilitySpan(ctx context.Context, capabilityName string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "capability."+capabilityName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("capability.name", capabilityName)),
	)
}

// StartRouteSpan starts a span for a router dispatch.
func StartRouteSpan(ctx context.Context, handler string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "router.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("router.handler", handler)),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetTraceID returns the trace ID from the current context.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
