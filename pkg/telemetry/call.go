package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Outcome classes follow how a result is presented to the user: domain
// failures carry a backend code, network failures do not.
const (
	OutcomeSuccess = "success"
	OutcomeDomain  = "domain"
	OutcomeNetwork = "network"
)

var (
	attrOutcome   = attribute.Key("client.outcome")
	attrRequestID = attribute.Key("client.request_id")
	attrUpload    = attribute.Key("client.upload")
	attrFields    = attribute.Key("client.validation_fields")
	attrURLPath   = attribute.Key("url.path")
)

// Call describes one backend call at the moment it is issued.
type Call struct {
	Method string
	Route  string
	Target string
	Upload bool
}

// SpanName is "METHOD route", falling back to the target when the call has
// no route template.
func (c Call) SpanName() string {
	if c.Route != "" {
		return c.Method + " " + c.Route
	}
	return c.Method + " " + c.Target
}

// Outcome classifies the recorded call.
func (d RequestData) Outcome() string {
	switch {
	case d.Error == nil:
		return OutcomeSuccess
	case d.Status == 0 || d.Code == "":
		return OutcomeNetwork
	default:
		return OutcomeDomain
	}
}

// StartCall opens a client span for c. The target is masked before it is
// attached.
func (m *Manager) StartCall(ctx context.Context, c Call) (context.Context, trace.Span) {
	ctx, span := m.StartSpan(ctx, c.SpanName(), trace.WithSpanKind(trace.SpanKindClient))
	attrs := []attribute.KeyValue{
		attrMethod.String(c.Method),
		attrURLPath.String(c.Target),
		attrUpload.Bool(c.Upload),
	}
	if c.Route != "" {
		attrs = append(attrs, attrRoute.String(c.Route))
	}
	span.SetAttributes(m.SanitizeAttributes(attrs...)...)
	return ctx, span
}

// FinishCall annotates span with the result, records the request metrics and
// ends the span. Callers set data.Error for failures of either class.
func (m *Manager) FinishCall(ctx context.Context, span trace.Span, data RequestData) {
	outcome := data.Outcome()
	attrs := []attribute.KeyValue{attrOutcome.String(outcome)}
	if data.Status > 0 {
		attrs = append(attrs, attrStatus.Int(data.Status))
	}
	if data.Code != "" {
		attrs = append(attrs, attrResultCode.String(data.Code))
	}
	if data.RequestID != "" {
		attrs = append(attrs, attrRequestID.String(data.RequestID))
	}
	if len(data.Fields) > 0 {
		attrs = append(attrs, attrFields.StringSlice(data.Fields))
	}
	if span != nil {
		span.SetAttributes(m.SanitizeAttributes(attrs...)...)
	}
	m.RecordRequest(ctx, data)
	EndSpan(span, data.Error)
}
