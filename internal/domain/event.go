// Package domain holds the core types shared across calbot: calendar
// events, authenticated sessions, and the error taxonomy.
package domain

import "time"

// ResponseStatus is the signed-in user's RSVP state on an event.
type ResponseStatus string

const (
	ResponseAccepted    ResponseStatus = "accepted"
	ResponseDeclined    ResponseStatus = "declined"
	ResponseTentative   ResponseStatus = "tentative"
	ResponseNeedsAction ResponseStatus = "needsAction"
)

// Event is the normalized calendar event shape used everywhere inside
// calbot. Identity is the provider-assigned ID; an empty ID means the
// event has not been saved yet.
type Event struct {
	ID             string         `json:"id,omitempty"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Start          time.Time      `json:"start"`
	End            time.Time      `json:"end"`
	AllDay         bool           `json:"allDay"`
	Attendees      []string       `json:"attendees,omitempty"`
	ConferenceLink string         `json:"conferenceLink,omitempty"`
	ResponseStatus ResponseStatus `json:"responseStatus,omitempty"`
}

// Saved reports whether the event has a provider-assigned identity.
func (e Event) Saved() bool { return e.ID != "" }

// Intersects reports whether the event's interval overlaps [start, end).
func (e Event) Intersects(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

// EventDraft is the caller-supplied shape for creating or updating an
// event. The provider assigns identity and derived fields.
type EventDraft struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
}
