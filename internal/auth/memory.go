package auth

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"github.com/owenmorgan/calbot/internal/domain"
)

// Memory is an in-memory Store for tests and local development.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	tokens   map[string]*oauth2.Token
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]domain.Session),
		tokens:   make(map[string]*oauth2.Token),
	}
}

// Grant registers a token for the given session.
func (m *Memory) Grant(token string, sess domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = sess
}

// SetGoogleToken registers Google credentials for a user.
func (m *Memory) SetGoogleToken(userID string, tok *oauth2.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = tok
}

// Lookup implements Store.
func (m *Memory) Lookup(ctx context.Context, token string) (domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[token]
	if !ok {
		return domain.Session{}, &domain.UnauthenticatedError{Reason: "unknown session token"}
	}
	return sess, nil
}

// GoogleTokenSource implements calendar.TokenProvider.
func (m *Memory) GoogleTokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[userID]
	if !ok {
		return nil, &domain.UnauthenticatedError{Reason: "no google credentials for user"}
	}
	return oauth2.StaticTokenSource(tok), nil
}
