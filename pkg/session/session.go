// Package session persists the identity cached after login.
//
// Exactly one Session is held per client. It is overwritten on login and
// profile updates and cleared on logout, withdrawal, or when the backend
// reports the session is no longer valid.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	// ErrCorrupt indicates the stored record could not be decoded. Callers
	// treat it as logged out.
	ErrCorrupt = errors.New("session: corrupt record")
	// ErrInvalidSession indicates a record without a user id was offered for saving.
	ErrInvalidSession = errors.New("session: invalid session")
	// ErrStoreClosed indicates the store no longer accepts operations.
	ErrStoreClosed = errors.New("session: store closed")
)

// Session is the cached identity of the logged-in user.
type Session struct {
	UserID          int64  `json:"userId"`
	Email           string `json:"email"`
	Nickname        string `json:"nickname"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// Validate rejects records that cannot identify a user.
func (s Session) Validate() error {
	if s.UserID <= 0 {
		return ErrInvalidSession
	}
	if strings.TrimSpace(s.Nickname) == "" && strings.TrimSpace(s.Email) == "" {
		return ErrInvalidSession
	}
	return nil
}

// Store persists at most one Session. Load returns (nil, nil) when nobody is
// logged in. Implementations are safe for concurrent use; the last Save wins.
type Store interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, nil
	}
	cp := *m.current
	return &cp, nil
}

func (m *MemoryStore) Save(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	return nil
}

// LoggedIn reports whether store holds a usable session. Corrupt records
// count as logged out.
func LoggedIn(ctx context.Context, store Store) bool {
	s, err := store.Load(ctx)
	return err == nil && s != nil
}
