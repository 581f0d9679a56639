// Package form holds the input rules of the community pages and the helper
// text shown under each field.
package form

import (
	"maps"
	"slices"
	"sync"
)

// Field names, matching the keys the backend uses in failure details.
const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldConfirm      = "passwordConfirm"
	FieldNickname     = "nickname"
	FieldProfileImage = "profileImage"
	FieldTitle        = "title"
	FieldContent      = "content"
)

// Form keeps the helper text of a fixed set of fields. It satisfies
// feedback.FieldSink; helpers for fields outside the set are dropped.
type Form struct {
	mu      sync.Mutex
	fields  []string
	helpers map[string]string
}

func New(fields ...string) *Form {
	f := &Form{helpers: make(map[string]string, len(fields))}
	for _, name := range fields {
		if _, dup := f.helpers[name]; dup {
			continue
		}
		f.fields = append(f.fields, name)
		f.helpers[name] = ""
	}
	return f
}

// SetHelper sets the helper text of field. Unknown fields are ignored.
func (f *Form) SetHelper(field, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.helpers[field]; ok {
		f.helpers[field] = text
	}
}

func (f *Form) Helper(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.helpers[field]
}

// Helpers returns a copy of every field's helper text.
func (f *Form) Helpers() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.helpers)
}

// Fields lists the form's fields in declaration order.
func (f *Form) Fields() []string {
	return slices.Clone(f.fields)
}

// Apply writes the helpers of v. Fields v does not mention keep their text.
func (f *Form) Apply(v Validation) {
	for field, text := range v.Helpers {
		f.SetHelper(field, text)
	}
}

// Reset clears every helper.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.helpers {
		f.helpers[k] = ""
	}
}

// Touched records which fields the user has left at least once. Helpers for
// invalid fields are only produced for touched ones.
type Touched map[string]bool

// All marks every field touched, as a submit does.
var All = Touched{"*": true}

func (t Touched) has(field string) bool { return t[field] || t["*"] }

// Validation is the verdict over one input. Helpers maps a field to its new
// helper text; an empty string clears it, an absent field is left alone.
type Validation struct {
	Helpers map[string]string
	Ready   bool
	// Message is a form-level notice, shown as a toast.
	Message string
}

type verdict struct {
	v       Validation
	touched Touched
}

func newVerdict(t Touched) *verdict {
	return &verdict{v: Validation{Helpers: map[string]string{}, Ready: true}, touched: t}
}

// fail marks the input not ready and shows msg if field was touched.
func (b *verdict) fail(field, msg string) {
	b.v.Ready = false
	if b.touched.has(field) {
		b.v.Helpers[field] = msg
	}
}

// show sets msg regardless of touch state.
func (b *verdict) show(field, msg string) { b.v.Helpers[field] = msg }

func (b *verdict) ok(field string) { b.v.Helpers[field] = "" }
