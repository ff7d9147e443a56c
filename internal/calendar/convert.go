package calendar

import (
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/owenmorgan/calbot/internal/domain"
)

// allDayFormat is the provider's date-only format for all-day events.
const allDayFormat = "2006-01-02"

// fromProvider converts a provider event to the normalized shape.
func fromProvider(ev *gcal.Event) domain.Event {
	out := domain.Event{
		ID:             ev.Id,
		Title:          ev.Summary,
		Description:    ev.Description,
		ResponseStatus: domain.ResponseAccepted,
	}
	if out.Title == "" {
		out.Title = "Busy"
	}

	out.Start, out.AllDay = parseEventTime(ev.Start)
	out.End, _ = parseEventTime(ev.End)

	for _, att := range ev.Attendees {
		out.Attendees = append(out.Attendees, att.Email)
		if att.Self && att.ResponseStatus != "" {
			out.ResponseStatus = domain.ResponseStatus(att.ResponseStatus)
		}
	}

	out.ConferenceLink = conferenceLink(ev)
	return out
}

// parseEventTime reads either a dateTime or a date-only boundary. A
// date-only boundary marks the event all-day with zeroed time-of-day.
func parseEventTime(edt *gcal.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, edt.DateTime)
		return t, false
	}
	t, _ := time.Parse(allDayFormat, edt.Date)
	return t, true
}

// conferenceLink prefers the legacy hangout link, then scans conference
// entry points for a video URI.
func conferenceLink(ev *gcal.Event) string {
	if ev.HangoutLink != "" {
		return ev.HangoutLink
	}
	if ev.ConferenceData == nil {
		return ""
	}
	for _, ep := range ev.ConferenceData.EntryPoints {
		if ep.EntryPointType == "video" {
			return ep.Uri
		}
	}
	return ""
}

// toProvider builds the provider event body from a draft. The owner
// email has already been folded into the attendee list by the caller.
func toProvider(draft domain.EventDraft, attendees []string) *gcal.Event {
	summary := draft.Summary
	if summary == "" {
		summary = "Appointment"
	}
	ev := &gcal.Event{
		Summary:     summary,
		Description: draft.Description,
		Start:       &gcal.EventDateTime{DateTime: draft.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &gcal.EventDateTime{DateTime: draft.End.UTC().Format(time.RFC3339), TimeZone: "UTC"},
	}
	for _, email := range attendees {
		ev.Attendees = append(ev.Attendees, &gcal.EventAttendee{Email: email})
	}
	return ev
}
