package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/owenmorgan/calbot/internal/domain"
	"github.com/owenmorgan/calbot/internal/logging"
)

// calendarID selects the user's primary calendar for every operation.
const calendarID = "primary"

// GoogleGateway implements Gateway against the Google Calendar v3 API.
type GoogleGateway struct {
	tokens TokenProvider
	log    *logging.Logger
}

// NewGoogleGateway creates a gateway that resolves per-user tokens
// through the given provider.
func NewGoogleGateway(tokens TokenProvider, log *logging.Logger) *GoogleGateway {
	return &GoogleGateway{tokens: tokens, log: log.Sub("calendar")}
}

// service builds a per-request calendar service bound to the session
// user's token.
func (g *GoogleGateway) service(ctx context.Context, sess domain.Session) (*gcal.Service, error) {
	if !sess.Valid() {
		return nil, &domain.UnauthenticatedError{Reason: "no session"}
	}
	ts, err := g.tokens.GoogleTokenSource(ctx, sess.UserID)
	if err != nil {
		return nil, &domain.UnauthenticatedError{Reason: "no provider token"}
	}
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, &domain.ProviderError{Op: "init", Message: err.Error()}
	}
	return svc, nil
}

func (g *GoogleGateway) List(ctx context.Context, sess domain.Session, start, end time.Time) ([]domain.Event, error) {
	svc, err := g.service(ctx, sess)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Events.List(calendarID).
		TimeMin(start.UTC().Format(time.RFC3339)).
		TimeMax(end.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, providerError("list", err)
	}

	events := make([]domain.Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		events = append(events, fromProvider(item))
	}
	sortByStart(events)

	g.log.Debug().Int("count", len(events)).
		Time("start", start).Time("end", end).
		Str("user", sess.UserID).
		Msg("listed events")
	return events, nil
}

func (g *GoogleGateway) Create(ctx context.Context, sess domain.Session, draft domain.EventDraft) (domain.Event, error) {
	svc, err := g.service(ctx, sess)
	if err != nil {
		return domain.Event{}, err
	}

	body := toProvider(draft, withOwner(draft.Attendees, sess.Email))
	if len(body.Attendees) > 0 {
		body.ConferenceData = meetRequest()
	}

	created, err := svc.Events.Insert(calendarID, body).
		ConferenceDataVersion(1).
		Context(ctx).Do()
	if err != nil {
		return domain.Event{}, providerError("create", err)
	}

	g.log.Info().Str("eventId", created.Id).Str("user", sess.UserID).Msg("event created")
	return fromProvider(created), nil
}

func (g *GoogleGateway) Update(ctx context.Context, sess domain.Session, id string, draft domain.EventDraft) (domain.Event, error) {
	svc, err := g.service(ctx, sess)
	if err != nil {
		return domain.Event{}, err
	}

	body := toProvider(draft, withOwner(draft.Attendees, sess.Email))
	body.Id = id
	if len(body.Attendees) > 0 {
		body.ConferenceData = meetRequest()
	}

	updated, err := svc.Events.Update(calendarID, id, body).
		ConferenceDataVersion(1).
		Context(ctx).Do()
	if err != nil {
		return domain.Event{}, providerError("update", err)
	}

	g.log.Info().Str("eventId", id).Str("user", sess.UserID).Msg("event updated")
	return fromProvider(updated), nil
}

func (g *GoogleGateway) Delete(ctx context.Context, sess domain.Session, id string) (domain.Event, error) {
	svc, err := g.service(ctx, sess)
	if err != nil {
		return domain.Event{}, err
	}

	// Fetch first so the caller gets the deleted event back for
	// confirmation; the provider's delete returns an empty body.
	existing, err := svc.Events.Get(calendarID, id).Context(ctx).Do()
	if err != nil {
		return domain.Event{}, providerError("delete", err)
	}

	if err := svc.Events.Delete(calendarID, id).Context(ctx).Do(); err != nil {
		return domain.Event{}, providerError("delete", err)
	}

	g.log.Info().Str("eventId", id).Str("user", sess.UserID).Msg("event deleted")
	return fromProvider(existing), nil
}

// meetRequest asks the provider to provision a Google Meet link.
func meetRequest() *gcal.ConferenceData {
	return &gcal.ConferenceData{
		CreateRequest: &gcal.CreateConferenceRequest{
			RequestId:             uuid.New().String(),
			ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
		},
	}
}

// providerError maps a googleapi error to the domain taxonomy.
func providerError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 401 || gerr.Code == 403 {
			return &domain.UnauthenticatedError{Reason: gerr.Message}
		}
		return &domain.ProviderError{Op: op, StatusCode: gerr.Code, Message: gerr.Message}
	}
	return &domain.ProviderError{Op: op, Message: err.Error()}
}
