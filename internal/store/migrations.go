package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create users and auth sessions",
		SQL: `
			CREATE TABLE users (
				id          TEXT PRIMARY KEY,
				email       TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_users_email ON users (email);

			CREATE TABLE auth_sessions (
				token       TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				expires_at  TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_auth_sessions_user ON auth_sessions (user_id);
		`,
	},
	{
		Version: 2,
		Name:    "create google tokens",
		SQL: `
			CREATE TABLE google_tokens (
				user_id        TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
				access_token   TEXT NOT NULL,
				refresh_token  TEXT NOT NULL DEFAULT '',
				token_type     TEXT NOT NULL DEFAULT 'Bearer',
				expiry         TEXT NOT NULL DEFAULT '',
				updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
}
