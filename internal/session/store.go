package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSession is returned by stores holding no tokens.
var ErrNoSession = errors.New("no session")

// Tokens is the persisted credential pair.
type Tokens struct {
	AccessToken  string `json:"access"`
	RefreshToken string `json:"refresh"`
}

// Empty reports whether no access token is held.
func (t Tokens) Empty() bool { return t.AccessToken == "" }

// Store persists the session tokens durably.
type Store interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, tokens Tokens) error
	Clear(ctx context.Context) error
}

type memoryStore struct {
	mu     sync.RWMutex
	tokens Tokens
	set    bool
}

// NewMemoryStore builds a process-local store, mostly for tests and headless use.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Load(_ context.Context) (Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return Tokens{}, ErrNoSession
	}
	return s.tokens, nil
}

func (s *memoryStore) Save(_ context.Context, tokens Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	s.set = true
	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	s.set = false
	return nil
}
