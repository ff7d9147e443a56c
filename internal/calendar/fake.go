package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/owenmorgan/calbot/internal/domain"
)

// Fake is an in-memory Gateway used by tests. It applies the same
// attendee and conferencing rules as the Google implementation so
// properties proven against it hold for the real gateway's input
// handling.
type Fake struct {
	mu     sync.Mutex
	events map[string]domain.Event

	// Err, when set, is returned by every operation.
	Err error

	// Latency delays each operation, for exercising concurrent dispatch.
	Latency func(op string) time.Duration

	// Calls records operations in invocation order.
	Calls []string
}

// NewFake creates an empty fake gateway.
func NewFake() *Fake {
	return &Fake{events: make(map[string]domain.Event)}
}

// Seed inserts events directly, bypassing the attendee rules.
func (f *Fake) Seed(events ...domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range events {
		f.events[ev.ID] = ev
	}
}

func (f *Fake) begin(ctx context.Context, op string) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, op)
	err := f.Err
	latency := f.Latency
	f.mu.Unlock()
	if latency != nil {
		select {
		case <-time.After(latency(op)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *Fake) List(ctx context.Context, sess domain.Session, start, end time.Time) ([]domain.Event, error) {
	if err := f.begin(ctx, "list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Event
	for _, ev := range f.events {
		if ev.Intersects(start, end) {
			out = append(out, ev)
		}
	}
	sortByStart(out)
	return out, nil
}

func (f *Fake) Create(ctx context.Context, sess domain.Session, draft domain.EventDraft) (domain.Event, error) {
	if err := f.begin(ctx, "create"); err != nil {
		return domain.Event{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ev := f.apply(domain.Event{ID: uuid.New().String()}, draft, sess)
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *Fake) Update(ctx context.Context, sess domain.Session, id string, draft domain.EventDraft) (domain.Event, error) {
	if err := f.begin(ctx, "update"); err != nil {
		return domain.Event{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.events[id]
	if !ok {
		return domain.Event{}, &domain.ProviderError{Op: "update", StatusCode: 404, Message: fmt.Sprintf("event %s not found", id)}
	}
	ev := f.apply(existing, draft, sess)
	f.events[id] = ev
	return ev, nil
}

func (f *Fake) Delete(ctx context.Context, sess domain.Session, id string) (domain.Event, error) {
	if err := f.begin(ctx, "delete"); err != nil {
		return domain.Event{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.events[id]
	if !ok {
		return domain.Event{}, &domain.ProviderError{Op: "delete", StatusCode: 404, Message: fmt.Sprintf("event %s not found", id)}
	}
	delete(f.events, id)
	return existing, nil
}

func (f *Fake) apply(base domain.Event, draft domain.EventDraft, sess domain.Session) domain.Event {
	base.Title = draft.Summary
	if base.Title == "" {
		base.Title = "Appointment"
	}
	base.Description = draft.Description
	base.Start = draft.Start
	base.End = draft.End
	base.Attendees = withOwner(draft.Attendees, sess.Email)
	if len(base.Attendees) > 0 && base.ConferenceLink == "" {
		base.ConferenceLink = "https://meet.example.com/" + base.ID
	}
	return base
}
