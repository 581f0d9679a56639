package telemetry

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	maxTargetSample = 256
)

var (
	attrMethod     = attribute.Key("http.request.method")
	attrStatus     = attribute.Key("http.response.status_code")
	attrRoute      = attribute.Key("client.route")
	attrTarget     = attribute.Key("client.target")
	attrResultCode = attribute.Key("client.result_code")
	attrTransport  = attribute.Key("client.transport_error")
	attrRequestErr = attribute.Key("client.request.error")
)

type metrics struct {
	requests      metric.Int64Counter
	latency       metric.Float64Histogram
	errors        metric.Float64Histogram
	invalidations metric.Int64Counter
}

// RequestData captures what is recorded for one backend call.
type RequestData struct {
	Method string
	// Route is the path template, e.g. /v1/posts/{id}. Low cardinality.
	Route string
	// Target is the concrete path and query. It is masked and truncated.
	Target   string
	Status   int
	Code     string
	Duration time.Duration
	// Error is set for failures of either class.
	Error error
	// RequestID and Fields go on the span only; they would blow up metric
	// cardinality.
	RequestID string
	Fields    []string
}

func newMetrics(m meterProvider) (*metrics, error) {
	if m == nil {
		return &metrics{}, nil
	}
	requests, err := m.Int64Counter("client.requests.total", metric.WithDescription("Total number of backend requests issued."))
	if err != nil {
		return nil, err
	}
	latency, err := m.Float64Histogram("client.latency.ms", metric.WithDescription("Backend round-trip latency in milliseconds."), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	errorRate, err := m.Float64Histogram("client.errors.rate", metric.WithDescription("Per-request error indicator (0 or 1)."), metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}
	invalidations, err := m.Int64Counter("client.session.invalidations.total", metric.WithDescription("Sessions torn down after an authorization failure."))
	if err != nil {
		return nil, err
	}
	return &metrics{
		requests:      requests,
		latency:       latency,
		errors:        errorRate,
		invalidations: invalidations,
	}, nil
}

func (m *metrics) RecordRequest(ctx context.Context, data RequestData) {
	if m == nil || m.requests == nil {
		return
	}
	attrs := make([]attribute.KeyValue, 0, 8)
	if data.Method != "" {
		attrs = append(attrs, attrMethod.String(data.Method))
	}
	if data.Route != "" {
		attrs = append(attrs, attrRoute.String(data.Route))
	}
	if target := sanitizeSample(data.Target); target != "" {
		attrs = append(attrs, attrTarget.String(target))
	}
	if data.Code != "" {
		attrs = append(attrs, attrResultCode.String(data.Code))
	}
	attrs = append(attrs, attrStatus.Int(data.Status))
	errFlag := data.Error != nil
	attrs = append(attrs,
		attrRequestErr.Bool(errFlag),
		attrTransport.Bool(errFlag && data.Status == 0),
		attrOutcome.String(data.Outcome()),
	)

	m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	if data.Duration > 0 && m.latency != nil {
		m.latency.Record(ctx, float64(data.Duration.Milliseconds()), metric.WithAttributes(attrs...))
	}
	if m.errors != nil {
		if errFlag {
			m.errors.Record(ctx, 1, metric.WithAttributes(attrs...))
		} else {
			m.errors.Record(ctx, 0, metric.WithAttributes(attrs...))
		}
	}
}

func (m *metrics) RecordInvalidation(ctx context.Context, code string) {
	if m == nil || m.invalidations == nil {
		return
	}
	m.invalidations.Add(ctx, 1, metric.WithAttributes(attrResultCode.String(strings.TrimSpace(code))))
}

func sanitizeSample(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if utf8.RuneCountInString(value) <= maxTargetSample {
		return value
	}
	runes := []rune(value)
	return string(runes[:maxTargetSample])
}

// meterProvider is the subset of metric.Meter we rely on, which makes
// dependency injection straightforward in tests.
type meterProvider interface {
	Int64Counter(name string, opts ...metric.Int64CounterOption) (metric.Int64Counter, error)
	Float64Histogram(name string, opts ...metric.Float64HistogramOption) (metric.Float64Histogram, error)
}
