package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging writes one structured record per backend call.
type Logging struct {
	*BaseMiddleware
	logger *slog.Logger
	now    func() time.Time
}

// NewLogging logs through l, or slog.Default when l is nil.
func NewLogging(l *slog.Logger) *Logging {
	if l == nil {
		l = slog.Default()
	}
	return &Logging{
		BaseMiddleware: NewBaseMiddleware("logging", PriorityLogging),
		logger:         l,
		now:            time.Now,
	}
}

func (m *Logging) ExecuteCall(ctx context.Context, req *CallRequest, next CallFunc) (*CallResponse, error) {
	if next == nil {
		return nil, ErrMissingNext
	}
	start := m.now()
	resp, err := next(ctx, req)
	elapsed := m.now().Sub(start)

	attrs := []slog.Attr{
		slog.String("method", req.Method),
		slog.String("route", req.RouteOrTarget()),
		slog.Duration("elapsed", elapsed),
	}
	if id := RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	switch {
	case err != nil:
		attrs = append(attrs, slog.Any("error", err))
		m.logger.LogAttrs(ctx, slog.LevelWarn, "backend call failed", attrs...)
	case resp != nil:
		attrs = append(attrs, slog.Int("status", resp.Status))
		if code := resp.Code(); code != "" {
			attrs = append(attrs, slog.String("code", code))
		}
		level := slog.LevelDebug
		if resp.Status >= 500 {
			level = slog.LevelError
		} else if resp.Failed() {
			level = slog.LevelInfo
		}
		m.logger.LogAttrs(ctx, level, "backend call", attrs...)
	}
	return resp, err
}
