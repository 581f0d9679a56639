package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/godeps/community-sdk-go/pkg/envelope"
)

// Priorities of the built-in middlewares. Request ids are assigned before
// anything logs, and rate limiting sits next to the wire.
const (
	PriorityRequestID = 100
	PriorityLogging   = 90
	PriorityTelemetry = 80
	PriorityTrace     = 70
	PriorityRateLimit = 10
)

type requestIDKey struct{}

// RequestIDFromContext returns the id assigned to the call running in ctx.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestID stamps every outgoing call with an X-Request-ID. An id already
// present on the request is reused.
type RequestID struct {
	*BaseMiddleware
	newID func() string
}

func NewRequestID() *RequestID {
	return &RequestID{
		BaseMiddleware: NewBaseMiddleware("request_id", PriorityRequestID),
		newID:          uuid.NewString,
	}
}

func (m *RequestID) ExecuteCall(ctx context.Context, req *CallRequest, next CallFunc) (*CallResponse, error) {
	if next == nil {
		return nil, ErrMissingNext
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}
	id := strings.TrimSpace(req.Header.Get(envelope.RequestIDHeader))
	if id == "" {
		id = m.newID()
		req.Header.Set(envelope.RequestIDHeader, id)
	}
	req.setMeta("request_id", id)
	return next(context.WithValue(ctx, requestIDKey{}, id), req)
}
