package middleware

import (
	"context"
	"errors"
)

// ErrMissingNext reports a chain without a downstream handler.
var ErrMissingNext = errors.New("middleware: next handler is nil")

// BaseMiddleware carries name and priority and passes calls through.
// Concrete middlewares embed it and override ExecuteCall.
type BaseMiddleware struct {
	name     string
	priority int
}

func NewBaseMiddleware(name string, priority int) *BaseMiddleware {
	return &BaseMiddleware{name: name, priority: priority}
}

func (m *BaseMiddleware) Name() string { return m.name }

func (m *BaseMiddleware) Priority() int { return m.priority }

func (m *BaseMiddleware) ExecuteCall(ctx context.Context, req *CallRequest, next CallFunc) (*CallResponse, error) {
	if next == nil {
		return nil, ErrMissingNext
	}
	return next(ctx, req)
}

func (m *BaseMiddleware) OnStart(ctx context.Context) error { return nil }

func (m *BaseMiddleware) OnStop(ctx context.Context) error { return nil }

// Func adapts a plain function into a Middleware.
func Func(name string, priority int, fn func(ctx context.Context, req *CallRequest, next CallFunc) (*CallResponse, error)) Middleware {
	return &funcMiddleware{BaseMiddleware: NewBaseMiddleware(name, priority), fn: fn}
}

type funcMiddleware struct {
	*BaseMiddleware
	fn func(ctx context.Context, req *CallRequest, next CallFunc) (*CallResponse, error)
}

func (m *funcMiddleware) ExecuteCall(ctx context.Context, req *CallRequest, next CallFunc) (*CallResponse, error) {
	if next == nil {
		return nil, ErrMissingNext
	}
	if m.fn == nil {
		return next(ctx, req)
	}
	return m.fn(ctx, req, next)
}
