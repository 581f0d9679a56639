package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/godeps/community-sdk-go/pkg/envelope"
)

// Middleware intercepts backend calls made by the client.
type Middleware interface {
	// Priority orders the stack; higher values wrap lower ones.
	Priority() int

	Name() string

	// ExecuteCall runs around one backend call. Returning an error marks the
	// call as a transport failure.
	ExecuteCall(ctx context.Context, req *CallRequest, next CallFunc) (*CallResponse, error)

	// OnStart is called once when the owning client starts.
	OnStart(ctx context.Context) error

	// OnStop is called once when the owning client shuts down.
	OnStop(ctx context.Context) error
}

// CallRequest describes an outgoing backend call before it is sent.
type CallRequest struct {
	Method string
	// Route is the path template used for grouping, e.g. /v1/posts/{id}.
	Route string
	// Target is the concrete path and query relative to the base URL.
	Target string
	Header http.Header
	Body   []byte
	// Upload marks multipart file uploads.
	Upload   bool
	Metadata map[string]any
}

// CallResponse is the decoded result of a call that reached the backend.
type CallResponse struct {
	Status   int
	Header   http.Header
	Outcome  envelope.Outcome
	Duration time.Duration
	Metadata map[string]any
}

// Code returns the envelope code of the outcome, if any.
func (r *CallResponse) Code() string {
	if r == nil {
		return ""
	}
	switch o := r.Outcome.(type) {
	case envelope.Success:
		return o.Code
	case *envelope.Failure:
		if o != nil {
			return o.Code
		}
	}
	return ""
}

// Failed reports whether the outcome is a failure.
func (r *CallResponse) Failed() bool {
	if r == nil {
		return false
	}
	_, ok := r.Outcome.(*envelope.Failure)
	return ok
}

// CallFunc performs a call.
type CallFunc func(ctx context.Context, req *CallRequest) (*CallResponse, error)

func (r *CallRequest) setMeta(key string, v any) {
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	r.Metadata[key] = v
}

// RouteOrTarget is the label used when no route template was given.
func (r *CallRequest) RouteOrTarget() string {
	if r.Route != "" {
		return r.Route
	}
	return r.Target
}
