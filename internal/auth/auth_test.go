package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/owenmorgan/calbot/internal/domain"
	"github.com/owenmorgan/calbot/internal/logging"
	"github.com/owenmorgan/calbot/internal/store"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent", "json")
}

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := store.Open(":memory:", silentLog())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteStore(db, nil, silentLog())
}

func TestSessionLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	userID, err := s.CreateUser(ctx, "me@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, userID)

	// Re-creating the same email returns the same user.
	again, err := s.CreateUser(ctx, "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, again)

	token, err := s.CreateSession(ctx, userID, time.Hour)
	require.NoError(t, err)

	sess, err := s.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, sess.UserID)
	assert.Equal(t, "me@example.com", sess.Email)
}

func TestLookupUnknownToken(t *testing.T) {
	s := testStore(t)
	_, err := s.Lookup(context.Background(), "nope")
	assert.True(t, domain.IsUnauthenticated(err))
}

func TestLookupExpiredSession(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	userID, err := s.CreateUser(ctx, "me@example.com")
	require.NoError(t, err)
	token, err := s.CreateSession(ctx, userID, -time.Minute)
	require.NoError(t, err)

	_, err = s.Lookup(ctx, token)
	assert.True(t, domain.IsUnauthenticated(err))
}

func TestGoogleTokenRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	userID, err := s.CreateUser(ctx, "me@example.com")
	require.NoError(t, err)

	_, err = s.GoogleTokenSource(ctx, userID)
	assert.True(t, domain.IsUnauthenticated(err), "no credentials yet")

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, s.SaveGoogleToken(ctx, userID, &oauth2.Token{
		AccessToken: "at-1",
		TokenType:   "Bearer",
		Expiry:      expiry,
	}))

	src, err := s.GoogleTokenSource(ctx, userID)
	require.NoError(t, err)
	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, expiry, tok.Expiry.UTC())
}

func TestSaveGoogleTokenKeepsRefreshToken(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	userID, err := s.CreateUser(ctx, "me@example.com")
	require.NoError(t, err)

	require.NoError(t, s.SaveGoogleToken(ctx, userID, &oauth2.Token{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
	}))
	// A refresh response without a refresh token must not erase it.
	require.NoError(t, s.SaveGoogleToken(ctx, userID, &oauth2.Token{
		AccessToken: "at-2",
	}))

	src, err := s.GoogleTokenSource(ctx, userID)
	require.NoError(t, err)
	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "at-2", tok.AccessToken)

	var refresh string
	err = s.db.SQL().QueryRowContext(ctx,
		"SELECT refresh_token FROM google_tokens WHERE user_id = ?", userID,
	).Scan(&refresh)
	require.NoError(t, err)
	assert.Equal(t, "rt-1", refresh)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	m.Grant("tok", domain.Session{UserID: "u1", Email: "me@example.com"})

	sess, err := m.Lookup(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)

	_, err = m.Lookup(context.Background(), "other")
	assert.True(t, domain.IsUnauthenticated(err))

	_, err = m.GoogleTokenSource(context.Background(), "u1")
	assert.True(t, domain.IsUnauthenticated(err))

	m.SetGoogleToken("u1", &oauth2.Token{AccessToken: "at"})
	src, err := m.GoogleTokenSource(context.Background(), "u1")
	require.NoError(t, err)
	tok, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
}
