package domain

// Session identifies the authenticated user on whose behalf a turn runs.
// It is resolved once at the edge of a request and passed explicitly into
// the loop and tool executors; nothing below the HTTP layer looks up
// credentials on its own.
type Session struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Valid reports whether the session carries a usable identity.
func (s Session) Valid() bool { return s.UserID != "" }
