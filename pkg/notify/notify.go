// Package notify presents mapped outcome messages as transient toasts or as a
// blocking modal that waits for acknowledgment.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Kind classifies a toast for presentation.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// DefaultToastDuration is how long a toast stays visible.
const DefaultToastDuration = 3 * time.Second

// Notifier is the surface outcome handlers talk to.
type Notifier interface {
	// Transient shows a message that dismisses itself.
	Transient(message string, kind Kind)
	// Blocking shows a message until acknowledged, then runs onAck once.
	Blocking(title, message string, onAck func())
}

// Toast is one transient notification.
type Toast struct {
	ID      uint64
	Message string
	Kind    Kind
}

// Modal is one blocking notification.
type Modal struct {
	ID      uint64
	Title   string
	Message string
}

// State of the blocking surface.
type State int

const (
	Hidden State = iota
	Shown
)

func (s State) String() string {
	if s == Shown {
		return "shown"
	}
	return "hidden"
}

// Renderer draws notifications. ShowModal while another modal is visible
// replaces it. Renderers must not call back into the Board synchronously from
// HideModal.
type Renderer interface {
	ShowToast(Toast)
	HideToast(Toast)
	ShowModal(Modal)
	HideModal(Modal)
}

// Timer is the handle returned by an AfterFunc implementation.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Board.
type Option func(*Board)

// WithToastDuration overrides DefaultToastDuration. Non-positive values are ignored.
func WithToastDuration(d time.Duration) Option {
	return func(b *Board) {
		if d > 0 {
			b.duration = d
		}
	}
}

// WithAfterFunc swaps the scheduler used for toast dismissal.
func WithAfterFunc(fn AfterFunc) Option {
	return func(b *Board) {
		if fn != nil {
			b.afterFunc = fn
		}
	}
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) {
		if l != nil {
			b.logger = l
		}
	}
}

type activeModal struct {
	Modal
	once  sync.Once
	onAck func()
}

// Board implements Notifier on top of a Renderer. Toasts overlap freely and
// are never queued; the last Blocking call wins.
type Board struct {
	mu        sync.Mutex
	renderer  Renderer
	duration  time.Duration
	afterFunc AfterFunc
	logger    *slog.Logger

	seq    uint64
	modal  *activeModal
	toasts map[uint64]toastTimer
}

type toastTimer struct {
	toast Toast
	timer Timer
}

// NewBoard builds a Board drawing through r. A nil renderer discards output.
func NewBoard(r Renderer, opts ...Option) *Board {
	if r == nil {
		r = discard{}
	}
	b := &Board{
		renderer:  r,
		duration:  DefaultToastDuration,
		afterFunc: stdAfterFunc,
		logger:    slog.Default(),
		toasts:    map[uint64]toastTimer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Transient shows a toast and schedules its dismissal.
func (b *Board) Transient(message string, kind Kind) {
	b.mu.Lock()
	b.seq++
	t := Toast{ID: b.seq, Message: message, Kind: kind}
	b.toasts[t.ID] = toastTimer{toast: t}
	b.mu.Unlock()

	b.renderer.ShowToast(t)
	timer := b.afterFunc(b.duration, func() { b.dismiss(t.ID) })

	b.mu.Lock()
	if tt, ok := b.toasts[t.ID]; ok {
		tt.timer = timer
		b.toasts[t.ID] = tt
	}
	b.mu.Unlock()
	b.logger.Debug("notify: toast", "id", t.ID, "kind", kind)
}

func (b *Board) dismiss(id uint64) {
	b.mu.Lock()
	tt, ok := b.toasts[id]
	delete(b.toasts, id)
	b.mu.Unlock()
	if ok {
		b.renderer.HideToast(tt.toast)
	}
}

// Blocking shows a modal. A modal already on screen is replaced and its
// continuation is dropped without running.
func (b *Board) Blocking(title, message string, onAck func()) {
	b.mu.Lock()
	b.seq++
	m := &activeModal{Modal: Modal{ID: b.seq, Title: title, Message: message}, onAck: onAck}
	replaced := b.modal != nil
	b.modal = m
	b.mu.Unlock()

	b.renderer.ShowModal(m.Modal)
	b.logger.Debug("notify: modal", "id", m.ID, "replaced", replaced)
}

// Acknowledge hides the current modal and runs its continuation. It reports
// false when no modal is shown.
func (b *Board) Acknowledge() bool {
	b.mu.Lock()
	m := b.modal
	b.modal = nil
	b.mu.Unlock()
	if m == nil {
		return false
	}
	b.renderer.HideModal(m.Modal)
	m.once.Do(func() {
		if m.onAck != nil {
			m.onAck()
		}
	})
	return true
}

// State reports whether a modal is on screen.
func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.modal != nil {
		return Shown
	}
	return Hidden
}

// Current returns the modal on screen, if any.
func (b *Board) Current() (Modal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.modal == nil {
		return Modal{}, false
	}
	return b.modal.Modal, true
}

// Flush hides every visible toast immediately and cancels their timers.
func (b *Board) Flush() {
	b.mu.Lock()
	pending := make([]toastTimer, 0, len(b.toasts))
	for id, tt := range b.toasts {
		pending = append(pending, tt)
		delete(b.toasts, id)
	}
	b.mu.Unlock()
	for _, tt := range pending {
		if tt.timer != nil {
			tt.timer.Stop()
		}
		b.renderer.HideToast(tt.toast)
	}
}

type discard struct{}

func (discard) ShowToast(Toast) {}
func (discard) HideToast(Toast) {}
func (discard) ShowModal(Modal) {}
func (discard) HideModal(Modal) {}
