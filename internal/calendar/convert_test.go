package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/owenmorgan/calbot/internal/domain"
)

func TestFromProviderTimedEvent(t *testing.T) {
	ev := fromProvider(&gcal.Event{
		Id:      "ev1",
		Summary: "Standup",
		Start:   &gcal.EventDateTime{DateTime: "2025-08-22T09:00:00Z"},
		End:     &gcal.EventDateTime{DateTime: "2025-08-22T09:30:00Z"},
		Attendees: []*gcal.EventAttendee{
			{Email: "a@x.com"},
			{Email: "me@example.com", Self: true, ResponseStatus: "tentative"},
		},
		HangoutLink: "https://meet.google.com/abc",
	})

	assert.Equal(t, "ev1", ev.ID)
	assert.Equal(t, "Standup", ev.Title)
	assert.False(t, ev.AllDay)
	assert.Equal(t, time.Date(2025, 8, 22, 9, 0, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, []string{"a@x.com", "me@example.com"}, ev.Attendees)
	assert.Equal(t, domain.ResponseTentative, ev.ResponseStatus)
	assert.Equal(t, "https://meet.google.com/abc", ev.ConferenceLink)
}

func TestFromProviderAllDayEvent(t *testing.T) {
	ev := fromProvider(&gcal.Event{
		Id:    "ev2",
		Start: &gcal.EventDateTime{Date: "2025-08-22"},
		End:   &gcal.EventDateTime{Date: "2025-08-23"},
	})

	assert.True(t, ev.AllDay)
	assert.Equal(t, time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC), ev.Start)
	// An untitled busy block still gets a displayable title.
	assert.Equal(t, "Busy", ev.Title)
	assert.Equal(t, domain.ResponseAccepted, ev.ResponseStatus)
}

func TestFromProviderConferenceEntryPoint(t *testing.T) {
	ev := fromProvider(&gcal.Event{
		Id:    "ev3",
		Start: &gcal.EventDateTime{DateTime: "2025-08-22T09:00:00Z"},
		End:   &gcal.EventDateTime{DateTime: "2025-08-22T10:00:00Z"},
		ConferenceData: &gcal.ConferenceData{
			EntryPoints: []*gcal.EntryPoint{
				{EntryPointType: "phone", Uri: "tel:+1-555"},
				{EntryPointType: "video", Uri: "https://meet.google.com/xyz"},
			},
		},
	})
	assert.Equal(t, "https://meet.google.com/xyz", ev.ConferenceLink)
}

func TestToProviderDefaultsSummary(t *testing.T) {
	draft := domain.EventDraft{
		Start: time.Date(2025, 8, 22, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 8, 22, 11, 0, 0, 0, time.UTC),
	}
	ev := toProvider(draft, nil)
	assert.Equal(t, "Appointment", ev.Summary)
	assert.Equal(t, "2025-08-22T10:00:00Z", ev.Start.DateTime)
	assert.Equal(t, "UTC", ev.Start.TimeZone)
	assert.Empty(t, ev.Attendees)
}

func TestToProviderAttendees(t *testing.T) {
	draft := domain.EventDraft{
		Summary: "Planning",
		Start:   time.Date(2025, 8, 22, 10, 0, 0, 0, time.UTC),
		End:     time.Date(2025, 8, 22, 11, 0, 0, 0, time.UTC),
	}
	ev := toProvider(draft, []string{"a@x.com", "me@example.com"})
	assert.Len(t, ev.Attendees, 2)
	assert.Equal(t, "a@x.com", ev.Attendees[0].Email)
}

func TestWithOwner(t *testing.T) {
	assert.Nil(t, withOwner(nil, "me@example.com"))
	assert.Nil(t, withOwner([]string{}, "me@example.com"))
	assert.Equal(t, []string{"a@x.com", "me@example.com"}, withOwner([]string{"a@x.com"}, "me@example.com"))
	assert.Equal(t, []string{"me@example.com", "a@x.com"}, withOwner([]string{"me@example.com", "a@x.com"}, "me@example.com"))
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, withOwner([]string{"a@x.com", "a@x.com", "b@x.com"}, ""))
}
