package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/congo-pay/mobcash/internal/logging"
)

// Reader is the read-only view handed to components other than the client.
type Reader interface {
	AccessToken() string
	Authenticated() bool
}

// Claims are the access token fields the client cares about.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token expiry is known and before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Manager owns the in-memory copy of the session and is its only writer.
// Writes go to the store first, so memory never runs ahead of what is persisted.
type Manager struct {
	mu     sync.RWMutex
	store  Store
	tokens Tokens
	logger *slog.Logger
}

// NewManager builds a manager over store.
func NewManager(store Store, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logging.OrDiscard(logger)}
}

// Restore hydrates the manager from the store. A missing session is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	tokens, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return nil
		}
		if errors.Is(err, ErrSealedToken) {
			m.logger.Warn("stored session unreadable, clearing", slog.Any("error", err))
			return m.End(ctx)
		}
		return fmt.Errorf("restore session: %w", err)
	}
	m.mu.Lock()
	m.tokens = tokens
	m.mu.Unlock()
	return nil
}

// AccessToken returns the current access token or "".
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens.AccessToken
}

// RefreshToken returns the current refresh token or "".
func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens.RefreshToken
}

// Authenticated reports whether an access token is held.
func (m *Manager) Authenticated() bool {
	return m.AccessToken() != ""
}

// Claims decodes the access token without verifying it; the server verifies.
func (m *Manager) Claims() (Claims, error) {
	access := m.AccessToken()
	if access == "" {
		return Claims{}, ErrNoSession
	}
	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(access, &registered); err != nil {
		return Claims{}, fmt.Errorf("decode access token: %w", err)
	}
	claims := Claims{Subject: registered.Subject}
	if registered.ExpiresAt != nil {
		claims.ExpiresAt = registered.ExpiresAt.Time
	}
	return claims, nil
}

// Begin stores a fresh token pair after login.
func (m *Manager) Begin(ctx context.Context, tokens Tokens) error {
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return fmt.Errorf("token pair is incomplete")
	}
	return m.write(ctx, tokens)
}

// Rotate replaces the access token, and the refresh token when one is given.
func (m *Manager) Rotate(ctx context.Context, access, refresh string) error {
	if access == "" {
		return fmt.Errorf("access token is empty")
	}
	m.mu.RLock()
	next := m.tokens
	m.mu.RUnlock()
	next.AccessToken = access
	if refresh != "" {
		next.RefreshToken = refresh
	}
	return m.write(ctx, next)
}

// End clears the session everywhere. Memory is cleared even if the store fails.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	m.tokens = Tokens{}
	m.mu.Unlock()
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (m *Manager) write(ctx context.Context, tokens Tokens) error {
	if err := m.store.Save(ctx, tokens); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.mu.Lock()
	m.tokens = tokens
	m.mu.Unlock()
	return nil
}
