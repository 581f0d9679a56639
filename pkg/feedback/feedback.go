// Package feedback turns request outcomes into user-visible notifications.
//
// Failures become error toasts with a localized message, validation details
// are fanned out to form helpers, and authorization failures tear down the
// cached session before sending the user back to the login screen.
package feedback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/godeps/community-sdk-go/pkg/envelope"
	"github.com/godeps/community-sdk-go/pkg/messages"
	"github.com/godeps/community-sdk-go/pkg/notify"
	"github.com/godeps/community-sdk-go/pkg/session"
	"github.com/godeps/community-sdk-go/pkg/telemetry"
)

// DefaultInvalidationDelay leaves time for the error toast to render before
// the user is moved to the login screen.
const DefaultInvalidationDelay = 1500 * time.Millisecond

// FieldSink receives per-field helper text.
type FieldSink interface {
	SetHelper(field, text string)
}

// Navigator moves the user to the login entry point.
type Navigator interface {
	ToLogin(ctx context.Context)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context)

func (f NavigatorFunc) ToLogin(ctx context.Context) { f(ctx) }

// SuccessOptions shapes how a success is announced.
type SuccessOptions struct {
	// Modal shows a blocking notification instead of a toast.
	Modal bool
	Title string
	// Code overrides the code carried by the response.
	Code string
	// OnConfirm runs once after the modal is acknowledged.
	OnConfirm func()
}

// Credentials is the ambient login state kept beside the session record,
// such as a persisted cookie jar.
type Credentials interface {
	Clear() error
}

// Option configures a Handler.
type Option func(*Handler)

func WithCatalog(c messages.Catalog) Option {
	return func(h *Handler) { h.catalog = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithInvalidationDelay sets the pause between the toast and the session
// teardown. Zero runs the teardown synchronously.
func WithInvalidationDelay(d time.Duration) Option {
	return func(h *Handler) {
		if d >= 0 {
			h.delay = d
		}
	}
}

// WithCredentials makes session teardown also drop c.
func WithCredentials(c Credentials) Option {
	return func(h *Handler) { h.creds = c }
}

// WithAfterFunc swaps the scheduler used for delayed invalidation.
func WithAfterFunc(fn notify.AfterFunc) Option {
	return func(h *Handler) {
		if fn != nil {
			h.afterFunc = fn
		}
	}
}

// Handler applies the outcome policies. It is safe for concurrent use.
type Handler struct {
	notifier  notify.Notifier
	store     session.Store
	creds     Credentials
	nav       Navigator
	catalog   messages.Catalog
	logger    *slog.Logger
	delay     time.Duration
	afterFunc notify.AfterFunc

	mu      sync.Mutex
	pending *invalidation
}

type invalidation struct {
	once  sync.Once
	ctx   context.Context
	code  string
	timer notify.Timer
}

// New wires a Handler. store and nav may be nil when the host has no session
// or navigation concept.
func New(n notify.Notifier, store session.Store, nav Navigator, opts ...Option) *Handler {
	if n == nil {
		n = notify.NewBoard(nil)
	}
	h := &Handler{
		notifier:  n,
		store:     store,
		nav:       nav,
		catalog:   messages.Korean(),
		logger:    slog.Default(),
		delay:     DefaultInvalidationDelay,
		afterFunc: func(d time.Duration, f func()) notify.Timer { return time.AfterFunc(d, f) },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Error reports err to the user. A nil err is ignored. Errors that are not an
// *envelope.Failure, and failures without a code, are shown as the network
// message; a code-less HTTP error usually comes from a proxy, not the
// backend. form may be nil.
func (h *Handler) Error(ctx context.Context, err error, form FieldSink) {
	if err == nil {
		return
	}
	var f *envelope.Failure
	if !errors.As(err, &f) || f.Transport() || f.Code == "" {
		h.logger.WarnContext(ctx, "request failed before reaching the server", "error", err)
		h.notifier.Transient(h.catalog.NetworkMessage(), notify.KindError)
		return
	}

	h.logger.WarnContext(ctx, "request failed",
		"status", f.Status,
		"code", f.Code,
		"request_id", f.RequestID,
		"message", f.Message,
	)
	h.notifier.Transient(h.catalog.ErrorMessage(f.Code, f.Message), notify.KindError)

	if form != nil {
		for _, field := range f.Details.Fields() {
			if msg, ok := f.Details.First(field); ok {
				form.SetHelper(field, "*"+msg)
			}
		}
	}

	if messages.InvalidatesSession(f.Code) {
		h.scheduleInvalidation(ctx, f.Code)
	}
}

// Success announces a completed request.
func (h *Handler) Success(ctx context.Context, s envelope.Success, opts SuccessOptions) {
	code := opts.Code
	if code == "" {
		code = s.Code
	}
	msg := h.catalog.SuccessMessage(code)
	h.logger.DebugContext(ctx, "request succeeded", "code", code, "modal", opts.Modal)
	if opts.Modal {
		h.notifier.Blocking(opts.Title, msg, opts.OnConfirm)
		return
	}
	h.notifier.Transient(msg, notify.KindSuccess)
}

// Pending reports whether a session teardown is scheduled.
func (h *Handler) Pending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending != nil
}

// FlushInvalidation runs a scheduled teardown now instead of waiting for the
// delay. Hosts call it before exiting.
func (h *Handler) FlushInvalidation() {
	h.mu.Lock()
	inv := h.pending
	var timer notify.Timer
	if inv != nil {
		timer = inv.timer
	}
	h.mu.Unlock()
	if inv == nil {
		return
	}
	if timer != nil {
		timer.Stop()
	}
	h.invalidate(inv)
}

func (h *Handler) scheduleInvalidation(ctx context.Context, code string) {
	h.mu.Lock()
	if h.pending != nil {
		h.mu.Unlock()
		return
	}
	inv := &invalidation{ctx: context.WithoutCancel(ctx), code: code}
	h.pending = inv
	h.mu.Unlock()

	if h.delay == 0 {
		h.invalidate(inv)
		return
	}
	timer := h.afterFunc(h.delay, func() { h.invalidate(inv) })
	h.mu.Lock()
	inv.timer = timer
	h.mu.Unlock()
}

func (h *Handler) invalidate(inv *invalidation) {
	inv.once.Do(func() {
		h.logger.InfoContext(inv.ctx, "session invalidated", "code", inv.code)
		telemetry.RecordInvalidation(inv.ctx, inv.code)
		if h.store != nil {
			if err := h.store.Clear(inv.ctx); err != nil {
				h.logger.ErrorContext(inv.ctx, "clear session", "error", err)
			}
		}
		if h.creds != nil {
			if err := h.creds.Clear(); err != nil {
				h.logger.ErrorContext(inv.ctx, "clear credentials", "error", err)
			}
		}
		h.mu.Lock()
		if h.pending == inv {
			h.pending = nil
		}
		h.mu.Unlock()
		if h.nav != nil {
			h.nav.ToLogin(inv.ctx)
		}
	})
}
