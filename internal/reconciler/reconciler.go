// Package reconciler consumes a turn's event stream on the client side
// and keeps two views current: the chat transcript and the calendar
// grid. The two views share no cache; a refresh after each successful
// mutation is the only consistency mechanism.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/owenmorgan/calbot/internal/domain"
	"github.com/owenmorgan/calbot/internal/logging"
	"github.com/owenmorgan/calbot/internal/stream"
	"github.com/owenmorgan/calbot/internal/tools"
)

// RangeFetcher re-fetches the visible calendar range after a mutation.
type RangeFetcher func(ctx context.Context, start, end time.Time) ([]domain.Event, error)

// EntryRole distinguishes transcript entries.
type EntryRole string

const (
	RoleUser      EntryRole = "user"
	RoleAssistant EntryRole = "assistant"
)

// Entry is one line of the displayed transcript.
type Entry struct {
	Role EntryRole
	Text string
}

// Operation is one tool call as shown in the operations side view. It
// appears when the call starts and is completed in place when its
// result arrives.
type Operation struct {
	CallID  string
	Tool    tools.Name
	Args    string
	Done    bool
	Success bool
	Payload string
	Error   string
}

// Reconciler folds stream events into display state. Safe for a single
// producer goroutine feeding Observe while readers snapshot.
type Reconciler struct {
	fetch RangeFetcher
	log   *logging.Logger

	mu         sync.Mutex
	entries    []Entry
	operations []Operation
	opIndex    map[string]int
	streaming  bool // an assistant entry is currently receiving deltas
	turnErr    string
	done       bool

	rangeStart time.Time
	rangeEnd   time.Time
	events     []domain.Event
	gridErr    string
}

// New creates a reconciler over the given fetcher. The visible range
// starts as the current calendar month.
func New(fetch RangeFetcher, log *logging.Logger) *Reconciler {
	start, end := MonthRange(time.Now())
	return &Reconciler{
		fetch:      fetch,
		log:        log.Sub("reconciler"),
		opIndex:    make(map[string]int),
		rangeStart: start,
		rangeEnd:   end,
	}
}

// MonthRange returns the calendar-month bounds containing t.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// SetVisibleRange changes the grid's date range and refreshes it.
func (r *Reconciler) SetVisibleRange(ctx context.Context, start, end time.Time) {
	r.mu.Lock()
	r.rangeStart, r.rangeEnd = start, end
	r.mu.Unlock()
	r.Refresh(ctx)
}

// Refresh re-fetches the visible range. A fetch failure lands in the
// grid's own error state and never touches the transcript.
func (r *Reconciler) Refresh(ctx context.Context) {
	r.mu.Lock()
	start, end := r.rangeStart, r.rangeEnd
	r.mu.Unlock()

	events, err := r.fetch(ctx, start, end)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.log.Warn().Err(err).Msg("calendar refresh failed")
		r.gridErr = err.Error()
		return
	}
	r.events = events
	r.gridErr = ""
}

// UserMessage records the user's outbound message and resets turn state
// for the reply that will stream in.
func (r *Reconciler) UserMessage(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Role: RoleUser, Text: text})
	r.streaming = false
	r.turnErr = ""
	r.done = false
}

// Observe folds one stream event into the display state. Events must
// arrive in emission order.
func (r *Reconciler) Observe(ctx context.Context, ev stream.Event) {
	r.mu.Lock()

	switch ev.Type {
	case stream.TypeTextDelta:
		if r.streaming && len(r.entries) > 0 {
			r.entries[len(r.entries)-1].Text += ev.Text
		} else {
			r.entries = append(r.entries, Entry{Role: RoleAssistant, Text: ev.Text})
			r.streaming = true
		}

	case stream.TypeToolCallStart:
		// A tool round ends the current text block; any further deltas
		// belong to the model's next step.
		r.streaming = false
		r.opIndex[ev.CallID] = len(r.operations)
		r.operations = append(r.operations, Operation{
			CallID: ev.CallID,
			Tool:   tools.Name(ev.Tool),
			Args:   string(ev.Args),
		})

	case stream.TypeToolCallResult:
		idx, ok := r.opIndex[ev.CallID]
		if !ok {
			r.log.Warn().Str("callId", ev.CallID).Msg("result for unknown tool call")
			r.mu.Unlock()
			return
		}
		op := &r.operations[idx]
		op.Done = true
		op.Success = ev.Success
		op.Payload = string(ev.Payload)
		op.Error = ev.Error

		if ev.Success && tools.Name(ev.Tool).Mutating() {
			r.mu.Unlock()
			r.Refresh(ctx)
			return
		}

	case stream.TypeError:
		r.streaming = false
		r.turnErr = ev.Error

	case stream.TypeDone:
		r.streaming = false
		r.done = true
	}

	r.mu.Unlock()
}

// Transcript returns a copy of the displayed conversation.
func (r *Reconciler) Transcript() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Operations returns a copy of the tool-call side view.
func (r *Reconciler) Operations() []Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Operation, len(r.operations))
	copy(out, r.operations)
	return out
}

// Events returns the grid's current events.
func (r *Reconciler) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// TurnError returns the chat channel's terminal error, if any.
func (r *Reconciler) TurnError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.turnErr
}

// GridError returns the calendar view's own error state.
func (r *Reconciler) GridError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gridErr
}

// Done reports whether the current turn has finished.
func (r *Reconciler) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}
