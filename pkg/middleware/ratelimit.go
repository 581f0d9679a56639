package middleware

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimit paces outgoing calls with a token bucket. Waiting honours ctx;
// a cancelled wait surfaces as a transport failure.
type RateLimit struct {
	*BaseMiddleware
	limiter *rate.Limiter
}

// NewRateLimit allows rps calls per second with the given burst. A
// non-positive rps returns nil so callers can skip registration.
func NewRateLimit(rps float64, burst int) *RateLimit {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimit{
		BaseMiddleware: NewBaseMiddleware("rate_limit", PriorityRateLimit),
		limiter:        rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (m *RateLimit) ExecuteCall(ctx context.Context, req *CallRequest, next CallFunc) (*CallResponse, error) {
	if next == nil {
		return nil, ErrMissingNext
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("middleware: rate limit: %w", err)
	}
	return next(ctx, req)
}
