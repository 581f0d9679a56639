package notify

import (
	"slices"
	"sync"
)

// Recorder is a Renderer that remembers what was drawn. It is safe for
// concurrent use and intended for tests and headless hosts.
type Recorder struct {
	mu      sync.Mutex
	toasts  []Toast
	visible map[uint64]Toast
	modals  []Modal
	current *Modal
	hidden  []Modal
}

func NewRecorder() *Recorder {
	return &Recorder{visible: map[uint64]Toast{}}
}

func (r *Recorder) ShowToast(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
	r.visible[t.ID] = t
}

func (r *Recorder) HideToast(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.visible, t.ID)
}

func (r *Recorder) ShowModal(m Modal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modals = append(r.modals, m)
	r.current = &m
}

func (r *Recorder) HideModal(m Modal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden = append(r.hidden, m)
	if r.current != nil && r.current.ID == m.ID {
		r.current = nil
	}
}

// Toasts returns every toast ever shown, in order.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.toasts)
}

// Visible returns toasts still on screen ordered by id.
func (r *Recorder) Visible() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, 0, len(r.visible))
	for _, t := range r.visible {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Toast) int { return int(a.ID) - int(b.ID) })
	return out
}

// Modals returns every modal ever shown, in order.
func (r *Recorder) Modals() []Modal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.modals)
}

// Hidden returns acknowledged modals, in order.
func (r *Recorder) Hidden() []Modal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.hidden)
}

// CurrentModal returns the modal on screen.
func (r *Recorder) CurrentModal() (Modal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Modal{}, false
	}
	return *r.current, true
}

// Last returns the most recent toast.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}
