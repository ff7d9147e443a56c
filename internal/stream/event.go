// Package stream defines the ordered event frames a turn emits and the
// transports that carry them to a client.
package stream

import "encoding/json"

// Type discriminates the event union.
type Type string

const (
	TypeTextDelta      Type = "text-delta"
	TypeToolCallStart  Type = "tool-call-start"
	TypeToolCallResult Type = "tool-call-result"
	TypeError          Type = "error"
	TypeDone           Type = "done"
)

// Event is one unit of turn progress. Each event is self-describing:
// a client needs only insertion order to render, never prior frames'
// content.
type Event struct {
	Type Type `json:"type"`

	// Text delta fields
	Text string `json:"text,omitempty"`

	// Tool call fields
	CallID string          `json:"callId,omitempty"`
	Tool   string          `json:"tool,omitempty"`
	Args   json.RawMessage `json:"args,omitempty"`

	// Tool result fields
	Success bool            `json:"success,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Error fields (tool result failures and terminal errors)
	Error string `json:"error,omitempty"`
}

// TextDelta wraps a chunk of assistant text.
func TextDelta(text string) Event {
	return Event{Type: TypeTextDelta, Text: text}
}

// ToolCallStart announces a dispatched tool invocation.
func ToolCallStart(callID, tool string, args json.RawMessage) Event {
	return Event{Type: TypeToolCallStart, CallID: callID, Tool: tool, Args: args}
}

// ToolCallResult reports a finished tool invocation.
func ToolCallResult(callID, tool string, success bool, payload json.RawMessage, errMsg string) Event {
	return Event{Type: TypeToolCallResult, CallID: callID, Tool: tool, Success: success, Payload: payload, Error: errMsg}
}

// ErrorEvent reports a terminal turn failure with a user-safe message.
func ErrorEvent(msg string) Event {
	return Event{Type: TypeError, Error: msg}
}

// Done marks the end of a turn. It is always the final event, including
// on errored turns, so consumers are never left waiting.
func Done() Event {
	return Event{Type: TypeDone}
}

// Sink receives events in emission order.
type Sink func(Event)
