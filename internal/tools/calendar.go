package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/owenmorgan/calbot/internal/calendar"
	"github.com/owenmorgan/calbot/internal/domain"
)

// CalendarDefinitions builds the four calendar tools over the given
// gateway.
func CalendarDefinitions(gw calendar.Gateway) []Definition {
	return []Definition{
		{
			Name:        GetCalendarEvents,
			Description: "Get calendar events for a specific date range",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"start": {"type": "string", "description": "Start date in ISO string format (e.g., \"2025-08-22T00:00:00Z\")"},
					"end": {"type": "string", "description": "End date in ISO string format (e.g., \"2025-08-22T23:59:59Z\")"}
				},
				"required": ["start", "end"]
			}`),
			Execute: getEventsExecutor(gw),
		},
		{
			Name:        CreateCalendarEvent,
			Description: "Create a new calendar event",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"summary": {"type": "string", "description": "Event title/summary"},
					"description": {"type": "string", "description": "Event description"},
					"start": {"type": "string", "description": "Start date and time in ISO string format"},
					"end": {"type": "string", "description": "End date and time in ISO string format"},
					"attendees": {"type": "array", "items": {"type": "string"}, "description": "Array of attendee email addresses"}
				},
				"required": ["summary", "start", "end"]
			}`),
			Execute: createEventExecutor(gw),
		},
		{
			Name:        UpdateCalendarEvent,
			Description: "Update an existing calendar event",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string", "description": "Event ID to update"},
					"summary": {"type": "string", "description": "New event title/summary"},
					"description": {"type": "string", "description": "New event description"},
					"start": {"type": "string", "description": "New start date and time in ISO string format"},
					"end": {"type": "string", "description": "New end date and time in ISO string format"},
					"attendees": {"type": "array", "items": {"type": "string"}, "description": "New array of attendee email addresses"}
				},
				"required": ["id", "summary", "start", "end"]
			}`),
			Execute: updateEventExecutor(gw),
		},
		{
			Name:        DeleteCalendarEvent,
			Description: "Delete a calendar event",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string", "description": "Event ID to delete"}
				},
				"required": ["id"]
			}`),
			Execute: deleteEventExecutor(gw),
		},
	}
}

type rangeArgs struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type draftArgs struct {
	ID          string   `json:"id"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Attendees   []string `json:"attendees"`
}

type idArgs struct {
	ID string `json:"id"`
}

// eventsPayload is the list tool's output shape.
type eventsPayload struct {
	Events []domain.Event `json:"events"`
}

func getEventsExecutor(gw calendar.Gateway) Executor {
	return func(ctx context.Context, sess domain.Session, raw json.RawMessage) (any, error) {
		var args rangeArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		start, err := requireTime("start", args.Start)
		if err != nil {
			return nil, err
		}
		end, err := requireTime("end", args.End)
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, &domain.ValidationError{Field: "end", Message: "end must not be before start"}
		}

		events, err := gw.List(ctx, sess, start, end)
		if err != nil {
			return nil, err
		}
		if events == nil {
			events = []domain.Event{}
		}
		return eventsPayload{Events: events}, nil
	}
}

func createEventExecutor(gw calendar.Gateway) Executor {
	return func(ctx context.Context, sess domain.Session, raw json.RawMessage) (any, error) {
		var args draftArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		draft, err := draftFromArgs(args)
		if err != nil {
			return nil, err
		}
		return gw.Create(ctx, sess, draft)
	}
}

func updateEventExecutor(gw calendar.Gateway) Executor {
	return func(ctx context.Context, sess domain.Session, raw json.RawMessage) (any, error) {
		var args draftArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if args.ID == "" {
			return nil, &domain.ValidationError{Field: "id", Message: "id is required"}
		}
		draft, err := draftFromArgs(args)
		if err != nil {
			return nil, err
		}
		return gw.Update(ctx, sess, args.ID, draft)
	}
}

func deleteEventExecutor(gw calendar.Gateway) Executor {
	return func(ctx context.Context, sess domain.Session, raw json.RawMessage) (any, error) {
		var args idArgs
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		if args.ID == "" {
			return nil, &domain.ValidationError{Field: "id", Message: "id is required"}
		}
		return gw.Delete(ctx, sess, args.ID)
	}
}

func draftFromArgs(args draftArgs) (domain.EventDraft, error) {
	if args.Summary == "" {
		return domain.EventDraft{}, &domain.ValidationError{Field: "summary", Message: "summary is required"}
	}
	start, err := requireTime("start", args.Start)
	if err != nil {
		return domain.EventDraft{}, err
	}
	end, err := requireTime("end", args.End)
	if err != nil {
		return domain.EventDraft{}, err
	}
	if end.Before(start) {
		return domain.EventDraft{}, &domain.ValidationError{Field: "end", Message: "end must not be before start"}
	}
	return domain.EventDraft{
		Summary:     args.Summary,
		Description: args.Description,
		Start:       start,
		End:         end,
		Attendees:   args.Attendees,
	}, nil
}

// decodeArgs strictly decodes model-provided arguments. Unknown fields
// are rejected so a misremembered parameter name surfaces as a
// validation failure the model can correct.
func decodeArgs(raw json.RawMessage, target any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return &domain.ValidationError{Message: "invalid arguments: " + err.Error()}
	}
	return nil
}

func requireTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &domain.ValidationError{Field: field, Message: field + " is required"}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Message: "must be an ISO-8601 timestamp"}
	}
	return t, nil
}
