package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owenmorgan/calbot/internal/domain"
	"github.com/owenmorgan/calbot/internal/logging"
	"github.com/owenmorgan/calbot/internal/stream"
	"github.com/owenmorgan/calbot/internal/tools"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent", "json")
}

type countingFetcher struct {
	calls  int
	events []domain.Event
	err    error
}

func (c *countingFetcher) fetch(ctx context.Context, start, end time.Time) ([]domain.Event, error) {
	c.calls++
	return c.events, c.err
}

func observeAll(r *Reconciler, events ...stream.Event) {
	for _, ev := range events {
		r.Observe(context.Background(), ev)
	}
}

func TestReconcilerTranscript(t *testing.T) {
	f := &countingFetcher{}
	r := New(f.fetch, silentLog())

	r.UserMessage("delete my 3pm meeting")
	observeAll(r,
		stream.TextDelta("Checking "),
		stream.TextDelta("your calendar. "),
		stream.ToolCallStart("c1", "get_calendar_events", json.RawMessage(`{}`)),
		stream.ToolCallResult("c1", "get_calendar_events", true, json.RawMessage(`{"events":[]}`), ""),
		stream.TextDelta("Nothing "),
		stream.TextDelta("at 3pm."),
		stream.Done(),
	)

	entries := r.Transcript()
	require.Len(t, entries, 3)
	assert.Equal(t, RoleUser, entries[0].Role)
	assert.Equal(t, "delete my 3pm meeting", entries[0].Text)
	assert.Equal(t, "Checking your calendar. ", entries[1].Text)
	// Deltas after a tool round open a new assistant entry.
	assert.Equal(t, "Nothing at 3pm.", entries[2].Text)
	assert.True(t, r.Done())
}

func TestReconcilerOperationsPairing(t *testing.T) {
	f := &countingFetcher{}
	r := New(f.fetch, silentLog())

	observeAll(r,
		stream.ToolCallStart("c1", "get_calendar_events", json.RawMessage(`{"start":"x"}`)),
	)
	ops := r.Operations()
	require.Len(t, ops, 1)
	assert.False(t, ops[0].Done)

	observeAll(r,
		stream.ToolCallResult("c1", "get_calendar_events", false, nil, "start must be an ISO-8601 timestamp"),
	)
	ops = r.Operations()
	require.Len(t, ops, 1)
	assert.True(t, ops[0].Done)
	assert.False(t, ops[0].Success)
	assert.Equal(t, tools.GetCalendarEvents, ops[0].Tool)
	assert.NotEmpty(t, ops[0].Error)
}

func TestReconcilerRefreshesAfterSuccessfulMutation(t *testing.T) {
	f := &countingFetcher{events: []domain.Event{{ID: "ev1", Title: "New"}}}
	r := New(f.fetch, silentLog())

	observeAll(r,
		stream.ToolCallStart("c1", "create_calendar_event", nil),
		stream.ToolCallResult("c1", "create_calendar_event", true, json.RawMessage(`{"id":"ev1"}`), ""),
	)

	assert.Equal(t, 1, f.calls)
	require.Len(t, r.Events(), 1)
	assert.Equal(t, "ev1", r.Events()[0].ID)
}

func TestReconcilerNoRefreshCases(t *testing.T) {
	f := &countingFetcher{}
	r := New(f.fetch, silentLog())

	observeAll(r,
		// Read tools never trigger a refresh.
		stream.ToolCallStart("c1", "get_calendar_events", nil),
		stream.ToolCallResult("c1", "get_calendar_events", true, nil, ""),
		// Failed mutations do not either.
		stream.ToolCallStart("c2", "delete_calendar_event", nil),
		stream.ToolCallResult("c2", "delete_calendar_event", false, nil, "event not found"),
	)
	assert.Equal(t, 0, f.calls)
}

func TestReconcilerGridErrorIsIndependent(t *testing.T) {
	f := &countingFetcher{err: errors.New("provider down")}
	r := New(f.fetch, silentLog())

	observeAll(r,
		stream.ToolCallStart("c1", "update_calendar_event", nil),
		stream.ToolCallResult("c1", "update_calendar_event", true, nil, ""),
	)

	assert.Equal(t, "provider down", r.GridError())
	assert.Empty(t, r.TurnError(), "grid failures must not leak into the chat error channel")

	observeAll(r, stream.ErrorEvent("oops"))
	assert.Equal(t, "oops", r.TurnError())
	assert.Equal(t, "provider down", r.GridError())
}

func TestReconcilerSetVisibleRange(t *testing.T) {
	f := &countingFetcher{}
	r := New(f.fetch, silentLog())

	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	r.SetVisibleRange(context.Background(), start, end)
	assert.Equal(t, 1, f.calls)
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(time.Date(2025, 8, 22, 14, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), end)
}
