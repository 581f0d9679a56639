package middleware

import (
	"context"

	"github.com/godeps/community-sdk-go/pkg/envelope"
	"github.com/godeps/community-sdk-go/pkg/telemetry"
)

// Telemetry opens a client span per call and records request metrics. A nil
// manager falls back to the process-wide default at call time.
type Telemetry struct {
	*BaseMiddleware
	manager *telemetry.Manager
}

func NewTelemetry(mgr *telemetry.Manager) *Telemetry {
	return &Telemetry{
		BaseMiddleware: NewBaseMiddleware("telemetry", PriorityTelemetry),
		manager:        mgr,
	}
}

func (m *Telemetry) ExecuteCall(ctx context.Context, req *CallRequest, next CallFunc) (*CallResponse, error) {
	if next == nil {
		return nil, ErrMissingNext
	}
	mgr := m.manager
	if mgr == nil {
		mgr = telemetry.Default()
	}
	if mgr == nil {
		return next(ctx, req)
	}

	ctx, span := mgr.StartCall(ctx, telemetry.Call{
		Method: req.Method,
		Route:  req.Route,
		Target: req.Target,
		Upload: req.Upload,
	})

	resp, err := next(ctx, req)

	data := telemetry.RequestData{
		Method:    req.Method,
		Route:     req.Route,
		Target:    req.Target,
		Error:     err,
		RequestID: RequestIDFromContext(ctx),
	}
	if resp != nil {
		data.Status = resp.Status
		data.Code = resp.Code()
		data.Duration = resp.Duration
		if f, ok := resp.Outcome.(*envelope.Failure); ok && f != nil {
			if data.Error == nil {
				data.Error = f
			}
			data.Fields = f.Details.Fields()
			if f.RequestID != "" && f.RequestID != envelope.LocalRequestID {
				data.RequestID = f.RequestID
			}
		}
	}
	mgr.FinishCall(ctx, span, data)
	return resp, err
}
