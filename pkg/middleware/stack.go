package middleware

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Stack holds middlewares as an onion; higher priority wraps further out.
type Stack struct {
	mu          sync.RWMutex
	middlewares []Middleware
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{middlewares: make([]Middleware, 0)}
}

// Use registers mw, keeping the list sorted by ascending priority.
// Registering a name that already exists replaces the old entry.
func (s *Stack) Use(mw Middleware) {
	if mw == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.middlewares {
		if existing.Name() == mw.Name() {
			s.middlewares = append(s.middlewares[:i], s.middlewares[i+1:]...)
			break
		}
	}
	s.middlewares = append(s.middlewares, mw)
	s.sortLocked()
}

// Remove drops the middleware called name and reports whether it existed.
func (s *Stack) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, mw := range s.middlewares {
		if mw.Name() == name {
			s.middlewares = append(s.middlewares[:i], s.middlewares[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the middlewares in execution order, outermost first.
func (s *Stack) List() []Middleware {
	result := s.snapshot()
	reverse(result)
	return result
}

// ExecuteCall wraps finalHandler with every middleware and runs the chain.
func (s *Stack) ExecuteCall(ctx context.Context, req *CallRequest, finalHandler CallFunc) (*CallResponse, error) {
	if finalHandler == nil {
		return nil, ErrMissingNext
	}

	middlewares := s.snapshot()
	handler := finalHandler
	for i := 0; i < len(middlewares); i++ {
		mw := middlewares[i]
		next := handler
		handler = func(ctx context.Context, req *CallRequest) (*CallResponse, error) {
			return mw.ExecuteCall(ctx, req, next)
		}
	}

	return handler(ctx, req)
}

// Start calls OnStart from the innermost middleware outwards.
func (s *Stack) Start(ctx context.Context) error {
	middlewares := s.snapshot()
	for _, mw := range middlewares {
		if err := mw.OnStart(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop calls OnStop from the outermost middleware inwards.
func (s *Stack) Stop(ctx context.Context) error {
	middlewares := s.snapshot()
	var errs []error
	for i := len(middlewares) - 1; i >= 0; i-- {
		if err := middlewares[i].OnStop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("middleware %s: %w", middlewares[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of registered middlewares.
func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.middlewares)
}

func (s *Stack) snapshot() []Middleware {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cloned := make([]Middleware, len(s.middlewares))
	copy(cloned, s.middlewares)
	return cloned
}

func (s *Stack) sortLocked() {
	sort.SliceStable(s.middlewares, func(i, j int) bool {
		return s.middlewares[i].Priority() < s.middlewares[j].Priority()
	})
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
