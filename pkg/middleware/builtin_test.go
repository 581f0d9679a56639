package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/godeps/community-sdk-go/pkg/envelope"
	"github.com/godeps/community-sdk-go/pkg/telemetry"
)

func okFinal(status int, code string) CallFunc {
	return func(ctx context.Context, req *CallRequest) (*CallResponse, error) {
		var out envelope.Outcome = envelope.Success{Code: code}
		if status >= 400 {
			out = &envelope.Failure{Status: status, Code: code}
		}
		return &CallResponse{Status: status, Outcome: out, Duration: 12 * time.Millisecond}, nil
	}
}

func TestRequestIDAssignsAndReuses(t *testing.T) {
	mw := NewRequestID()
	mw.newID = func() string { return "fixed-id" }

	var seen string
	final := func(ctx context.Context, req *CallRequest) (*CallResponse, error) {
		seen = RequestIDFromContext(ctx)
		return &CallResponse{}, nil
	}

	req := &CallRequest{Method: http.MethodGet}
	_, err := mw.ExecuteCall(context.Background(), req, final)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", req.Header.Get(envelope.RequestIDHeader))
	assert.Equal(t, "fixed-id", seen)
	assert.Equal(t, "fixed-id", req.Metadata["request_id"])

	req = &CallRequest{Header: http.Header{envelope.RequestIDHeader: {"caller-id"}}}
	_, err = mw.ExecuteCall(context.Background(), req, final)
	require.NoError(t, err)
	assert.Equal(t, "caller-id", seen)
}

func TestRequestIDDefaultsToUUID(t *testing.T) {
	req := &CallRequest{}
	_, err := NewRequestID().ExecuteCall(context.Background(), req, okFinal(200, ""))
	require.NoError(t, err)
	assert.Len(t, req.Header.Get(envelope.RequestIDHeader), 36)
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestLoggingLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	stack := NewStack()
	stack.Use(NewRequestID())
	stack.Use(NewLogging(logger))

	_, err := stack.ExecuteCall(context.Background(), &CallRequest{Method: "GET", Route: "/v1/posts/{id}", Target: "/v1/posts/3"}, okFinal(404, envelope.CodePostNotFound))
	require.NoError(t, err)
	_, err = stack.ExecuteCall(context.Background(), &CallRequest{Method: "POST", Target: "/v1/auth/login"}, func(context.Context, *CallRequest) (*CallResponse, error) {
		return nil, errors.New("dial tcp: refused")
	})
	require.Error(t, err)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "/v1/posts/{id}", lines[0]["route"])
	assert.Equal(t, envelope.CodePostNotFound, lines[0]["code"])
	assert.EqualValues(t, 404, lines[0]["status"])
	assert.NotEmpty(t, lines[0]["request_id"])
	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, "/v1/auth/login", lines[1]["route"])
}

func TestTelemetryRecordsSpanAndMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	exporter := tracetest.NewInMemoryExporter()
	mgr, err := telemetry.NewManager(telemetry.Config{
		MeterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter))),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	mw := NewTelemetry(mgr)
	_, err = mw.ExecuteCall(context.Background(), &CallRequest{Method: "GET", Route: "/v1/posts", Target: "/v1/posts?page=1"}, okFinal(200, envelope.CodeSuccess))
	require.NoError(t, err)
	_, err = mw.ExecuteCall(context.Background(), &CallRequest{Method: "DELETE", Route: "/v1/posts/{id}", Target: "/v1/posts/9"}, okFinal(403, envelope.CodeForbidden))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /v1/posts", spans[0].Name)
	assert.Equal(t, "DELETE /v1/posts/{id}", spans[1].Name)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == "client.requests.total" {
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					total += dp.Value
				}
			}
		}
	}
	assert.EqualValues(t, 2, total)
}

func TestTelemetryClassifiesOutcomesOnSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	mgr, err := telemetry.NewManager(telemetry.Config{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter))),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	stack := NewStack()
	stack.Use(NewRequestID())
	stack.Use(NewTelemetry(mgr))

	validation := func(ctx context.Context, req *CallRequest) (*CallResponse, error) {
		return &CallResponse{Status: 400, Outcome: &envelope.Failure{
			Status:  400,
			Code:    envelope.CodeValidationError,
			Details: envelope.Details{"email": {"taken"}},
		}}, nil
	}
	_, err = stack.ExecuteCall(context.Background(), &CallRequest{Method: "POST", Route: "/v1/auth/signup", Target: "/v1/auth/signup"}, validation)
	require.NoError(t, err)
	_, err = stack.ExecuteCall(context.Background(), &CallRequest{Method: "GET", Route: "/v1/posts", Target: "/v1/posts"}, okFinal(502, ""))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	attrs := func(i int) map[string]string {
		out := map[string]string{}
		for _, kv := range spans[i].Attributes {
			out[string(kv.Key)] = kv.Value.Emit()
		}
		return out
	}
	first := attrs(0)
	assert.Equal(t, telemetry.OutcomeDomain, first["client.outcome"])
	assert.Equal(t, envelope.CodeValidationError, first["client.result_code"])
	assert.Contains(t, first["client.validation_fields"], "email")
	assert.Len(t, first["client.request_id"], 36)

	assert.Equal(t, telemetry.OutcomeNetwork, attrs(1)["client.outcome"], "a code-less 502 is network-class")
}

func TestTelemetryWithoutManagerPassesThrough(t *testing.T) {
	telemetry.SetDefault(nil)
	resp, err := NewTelemetry(nil).ExecuteCall(context.Background(), &CallRequest{}, okFinal(200, ""))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
}

func TestRateLimitHonoursContext(t *testing.T) {
	assert.Nil(t, NewRateLimit(0, 1))

	mw := NewRateLimit(0.001, 1)
	_, err := mw.ExecuteCall(context.Background(), &CallRequest{}, okFinal(200, ""))
	require.NoError(t, err, "the first call uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = mw.ExecuteCall(ctx, &CallRequest{}, okFinal(200, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestTraceWritesMaskedJSONL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "trace")
	mw := NewTraceMiddleware(dir, nil)
	mw.clock = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }

	stack := NewStack()
	stack.Use(NewRequestID())
	stack.Use(mw)

	_, err := stack.ExecuteCall(context.Background(), &CallRequest{Method: "GET", Route: "/v1/auth/emails/availability", Target: "/v1/auth/emails/availability?email=neo%40example.com"}, okFinal(409, envelope.CodeAlreadyExists))
	require.NoError(t, err)
	_, err = stack.ExecuteCall(context.Background(), &CallRequest{Method: "POST", Target: "/v1/posts/image", Upload: true}, func(context.Context, *CallRequest) (*CallResponse, error) {
		return nil, errors.New("connection reset")
	})
	require.Error(t, err)
	require.NoError(t, stack.Stop(context.Background()))
	assert.Equal(t, 2, mw.Written())

	f, err := os.Open(filepath.Join(dir, "calls-20250304.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var events []TraceEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var evt TraceEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &evt))
		events = append(events, evt)
	}
	require.Len(t, events, 2)
	assert.Equal(t, envelope.CodeAlreadyExists, events[0].Code)
	assert.Equal(t, 409, events[0].Status)
	assert.NotContains(t, events[0].Target, "example.com")
	assert.NotEmpty(t, events[0].RequestID)
	assert.True(t, events[1].Upload)
	assert.Equal(t, "connection reset", events[1].Error)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}
