package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owenmorgan/calbot/internal/logging"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent", "json")
}

func TestOpenRunsMigrations(t *testing.T) {
	db, err := Open(":memory:", silentLog())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"users", "auth_sessions", "google_tokens"} {
		var name string
		err := db.SQL().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, table)
	}

	var applied int
	require.NoError(t, db.SQL().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, len(migrations), applied)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "calbot.db")

	db, err := Open(path, silentLog())
	require.NoError(t, err)
	_, err = db.SQL().Exec("INSERT INTO users (id, email) VALUES ('u1', 'me@example.com')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Re-opening must not re-apply migrations or lose data.
	db, err = Open(path, silentLog())
	require.NoError(t, err)
	defer db.Close()

	var email string
	require.NoError(t, db.SQL().QueryRow("SELECT email FROM users WHERE id = 'u1'").Scan(&email))
	assert.Equal(t, "me@example.com", email)
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := Open(":memory:", silentLog())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.SQL().Exec(
		"INSERT INTO auth_sessions (token, user_id, expires_at) VALUES ('t', 'missing-user', '2030-01-01T00:00:00Z')",
	)
	assert.Error(t, err)
}
