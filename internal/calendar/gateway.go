// Package calendar translates between calbot's normalized event shape
// and the calendar provider's schema, and exposes the four event
// operations the rest of the system is built on.
package calendar

import (
	"context"
	"sort"
	"time"

	"golang.org/x/oauth2"

	"github.com/owenmorgan/calbot/internal/domain"
)

// Gateway is the calendar capability consumed by tool executors and the
// initial-range fetch. All operations require an authenticated session;
// implementations return *domain.UnauthenticatedError when no provider
// token exists and *domain.ProviderError on remote failure.
type Gateway interface {
	// List returns events whose interval intersects [start, end),
	// sorted ascending by start time.
	List(ctx context.Context, sess domain.Session, start, end time.Time) ([]domain.Event, error)

	// Create inserts a new event. If the draft names attendees, a video
	// conference link is provisioned and the session user's own email is
	// appended to the attendee list.
	Create(ctx context.Context, sess domain.Session, draft domain.EventDraft) (domain.Event, error)

	// Update replaces an existing event's details. Conferencing and
	// attendee handling follow the same rules as Create.
	Update(ctx context.Context, sess domain.Session, id string, draft domain.EventDraft) (domain.Event, error)

	// Delete removes an event and returns its last-known state for
	// confirmation.
	Delete(ctx context.Context, sess domain.Session, id string) (domain.Event, error)
}

// TokenProvider resolves a per-user OAuth token source for the provider.
type TokenProvider interface {
	GoogleTokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error)
}

// withOwner returns the attendee list with the owner email appended
// exactly once. A nil or empty list stays empty: events without guests
// carry no attendees at all, matching the provider's convention.
func withOwner(attendees []string, owner string) []string {
	if len(attendees) == 0 {
		return nil
	}
	out := make([]string, 0, len(attendees)+1)
	seen := make(map[string]bool, len(attendees)+1)
	for _, a := range append(attendees, owner) {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// sortByStart orders events ascending by start time, stable on equal
// starts so provider order is preserved.
func sortByStart(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}
