// Package auth resolves bearer tokens into user sessions and holds the
// Google OAuth credentials those users granted.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/owenmorgan/calbot/internal/domain"
	"github.com/owenmorgan/calbot/internal/logging"
	"github.com/owenmorgan/calbot/internal/store"
)

// Store resolves request credentials into sessions.
type Store interface {
	// Lookup resolves a bearer token. Unknown or expired tokens return
	// *domain.UnauthenticatedError.
	Lookup(ctx context.Context, token string) (domain.Session, error)
}

// SQLiteStore is the production Store, backed by the shared database.
// When an OAuth config is present, expired Google tokens are refreshed
// and the refreshed credentials written back.
type SQLiteStore struct {
	db    *store.DB
	oauth *oauth2.Config
	log   *logging.Logger
}

// NewSQLiteStore creates a store over db. oauthCfg may be nil, in which
// case stored Google tokens are used as-is without refresh.
func NewSQLiteStore(db *store.DB, oauthCfg *oauth2.Config, log *logging.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, oauth: oauthCfg, log: log.Sub("auth")}
}

// Lookup implements Store.
func (s *SQLiteStore) Lookup(ctx context.Context, token string) (domain.Session, error) {
	var (
		sess      domain.Session
		expiresAt string
	)
	err := s.db.SQL().QueryRowContext(ctx,
		`SELECT u.id, u.email, a.expires_at
		 FROM auth_sessions a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.token = ?`,
		token,
	).Scan(&sess.UserID, &sess.Email, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, &domain.UnauthenticatedError{Reason: "unknown session token"}
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("looking up session: %w", err)
	}

	exp, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return domain.Session{}, fmt.Errorf("parsing session expiry: %w", err)
	}
	if time.Now().After(exp) {
		return domain.Session{}, &domain.UnauthenticatedError{Reason: "session expired"}
	}
	return sess, nil
}

// CreateUser inserts a user and returns its id. Re-creating an existing
// email returns the existing id.
func (s *SQLiteStore) CreateUser(ctx context.Context, email string) (string, error) {
	var id string
	err := s.db.SQL().QueryRowContext(ctx, "SELECT id FROM users WHERE email = ?", email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("checking user: %w", err)
	}

	id = uuid.New().String()
	if _, err := s.db.SQL().ExecContext(ctx,
		"INSERT INTO users (id, email) VALUES (?, ?)", id, email,
	); err != nil {
		return "", fmt.Errorf("creating user: %w", err)
	}
	s.log.Info().Str("userId", id).Str("email", email).Msg("user created")
	return id, nil
}

// CreateSession mints a bearer token for the user.
func (s *SQLiteStore) CreateSession(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	expires := time.Now().Add(ttl).UTC().Format(time.RFC3339)
	if _, err := s.db.SQL().ExecContext(ctx,
		"INSERT INTO auth_sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expires,
	); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return token, nil
}

// SaveGoogleToken stores (or replaces) the user's Google credentials.
func (s *SQLiteStore) SaveGoogleToken(ctx context.Context, userID string, tok *oauth2.Token) error {
	expiry := ""
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}
	_, err := s.db.SQL().ExecContext(ctx,
		`INSERT INTO google_tokens (user_id, access_token, refresh_token, token_type, expiry, updated_at)
		 VALUES (?, ?, ?, ?, ?, datetime('now'))
		 ON CONFLICT(user_id) DO UPDATE SET
		   access_token = excluded.access_token,
		   refresh_token = CASE WHEN excluded.refresh_token != '' THEN excluded.refresh_token ELSE google_tokens.refresh_token END,
		   token_type = excluded.token_type,
		   expiry = excluded.expiry,
		   updated_at = excluded.updated_at`,
		userID, tok.AccessToken, tok.RefreshToken, tok.TokenType, expiry,
	)
	if err != nil {
		return fmt.Errorf("saving google token: %w", err)
	}
	return nil
}

// GoogleTokenSource implements calendar.TokenProvider. Missing
// credentials return *domain.UnauthenticatedError.
func (s *SQLiteStore) GoogleTokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	var (
		tok    oauth2.Token
		expiry string
	)
	err := s.db.SQL().QueryRowContext(ctx,
		"SELECT access_token, refresh_token, token_type, expiry FROM google_tokens WHERE user_id = ?",
		userID,
	).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.UnauthenticatedError{Reason: "no google credentials for user"}
	}
	if err != nil {
		return nil, fmt.Errorf("loading google token: %w", err)
	}
	if expiry != "" {
		if tok.Expiry, err = time.Parse(time.RFC3339, expiry); err != nil {
			return nil, fmt.Errorf("parsing token expiry: %w", err)
		}
	}

	if s.oauth == nil || tok.RefreshToken == "" {
		return oauth2.StaticTokenSource(&tok), nil
	}
	return &persistingSource{
		inner:  s.oauth.TokenSource(ctx, &tok),
		store:  s,
		userID: userID,
		last:   tok.AccessToken,
	}, nil
}

// persistingSource writes refreshed tokens back so the next process
// start does not begin from a stale access token.
type persistingSource struct {
	inner  oauth2.TokenSource
	store  *SQLiteStore
	userID string

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.inner.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := p.store.SaveGoogleToken(context.Background(), p.userID, tok); err != nil {
			p.store.log.Warn().Err(err).Str("userId", p.userID).Msg("persisting refreshed token failed")
		}
	}
	return tok, nil
}
