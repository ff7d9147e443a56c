// Package tools declares the closed set of operations the model may
// invoke and the registry that validates and dispatches them.
package tools

import (
	"context"
	"encoding/json"

	"github.com/owenmorgan/calbot/internal/domain"
	"github.com/owenmorgan/calbot/internal/llm"
)

// Name identifies a tool. The set is closed: a name outside these five
// is rejected at registration and at dispatch.
type Name string

const (
	GetCalendarEvents   Name = "get_calendar_events"
	CreateCalendarEvent Name = "create_calendar_event"
	UpdateCalendarEvent Name = "update_calendar_event"
	DeleteCalendarEvent Name = "delete_calendar_event"
	GetCurrentDate      Name = "get_current_date"
)

// knownNames is the complete tool vocabulary.
var knownNames = map[Name]bool{
	GetCalendarEvents:   true,
	CreateCalendarEvent: true,
	UpdateCalendarEvent: true,
	DeleteCalendarEvent: true,
	GetCurrentDate:      true,
}

// Known reports whether n belongs to the tool vocabulary.
func Known(n Name) bool { return knownNames[n] }

// Mutating reports whether the tool changes calendar state. Consumers
// use this to decide when a view refresh is needed.
func (n Name) Mutating() bool {
	switch n {
	case CreateCalendarEvent, UpdateCalendarEvent, DeleteCalendarEvent:
		return true
	}
	return false
}

// Executor runs a tool against already-decoded raw arguments on behalf
// of the given session. Returned errors never cross the loop boundary;
// the registry converts them into failed Results.
type Executor func(ctx context.Context, sess domain.Session, args json.RawMessage) (any, error)

// Definition binds a tool name to its model-facing contract and its
// executor. Description and InputSchema are load-bearing: they are what
// the model reads to decide when and how to call the tool.
type Definition struct {
	Name        Name
	Description string
	InputSchema json.RawMessage
	Execute     Executor
}

// Result is the outcome of one tool invocation, fed back into the
// model's context and mirrored onto the event stream.
type Result struct {
	CallID       string          `json:"callId"`
	Tool         Name            `json:"tool"`
	Success      bool            `json:"success"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// Message renders the result as a tool-role transcript message.
func (r Result) Message() llm.Message {
	content := string(r.Payload)
	if !r.Success {
		body, _ := json.Marshal(map[string]string{"error": r.ErrorMessage})
		content = string(body)
	}
	return llm.Message{
		Role:       llm.RoleTool,
		Content:    content,
		ToolCallID: r.CallID,
		ToolName:   string(r.Tool),
	}
}
