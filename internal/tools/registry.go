package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/owenmorgan/calbot/internal/domain"
	"github.com/owenmorgan/calbot/internal/llm"
	"github.com/owenmorgan/calbot/internal/logging"
)

// Registry holds the registered tool set. It is built once at startup
// and immutable afterwards.
type Registry struct {
	defs  map[Name]Definition
	order []Name
	log   *logging.Logger
}

// NewRegistry validates and indexes the given definitions. Unknown
// names, duplicates, and incomplete definitions are startup errors, not
// runtime surprises.
func NewRegistry(log *logging.Logger, defs ...Definition) (*Registry, error) {
	r := &Registry{
		defs: make(map[Name]Definition, len(defs)),
		log:  log.Sub("tools"),
	}
	for _, def := range defs {
		if !Known(def.Name) {
			return nil, fmt.Errorf("tool %q is not in the tool vocabulary", def.Name)
		}
		if _, dup := r.defs[def.Name]; dup {
			return nil, fmt.Errorf("tool %q registered twice", def.Name)
		}
		if def.Execute == nil {
			return nil, fmt.Errorf("tool %q has no executor", def.Name)
		}
		if len(def.InputSchema) == 0 || def.Description == "" {
			return nil, fmt.Errorf("tool %q is missing its model-facing contract", def.Name)
		}
		r.defs[def.Name] = def
		r.order = append(r.order, def.Name)
	}
	return r, nil
}

// Definitions returns the model-facing tool contracts in registration
// order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	out := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		def := r.defs[name]
		out = append(out, llm.ToolDefinition{
			Name:        string(def.Name),
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}
	return out
}

// Execute dispatches one model-requested call. Failures of any kind
// (unknown name, invalid input, provider rejection) become failed
// Results so the model can see them and recover within its remaining
// step budget.
func (r *Registry) Execute(ctx context.Context, sess domain.Session, call llm.ToolCall) Result {
	name := Name(call.Name)
	def, ok := r.defs[name]
	if !ok {
		r.log.Warn().Str("tool", call.Name).Msg("model requested unregistered tool")
		return Result{
			CallID:       call.ID,
			Tool:         name,
			ErrorMessage: fmt.Sprintf("unknown tool: %s", call.Name),
		}
	}

	payload, err := def.Execute(ctx, sess, call.Arguments)
	if err != nil {
		r.log.Debug().Str("tool", call.Name).Err(err).Msg("tool call failed")
		return Result{CallID: call.ID, Tool: name, ErrorMessage: err.Error()}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Result{CallID: call.ID, Tool: name, ErrorMessage: "encoding tool output: " + err.Error()}
	}

	r.log.Debug().Str("tool", call.Name).Int("payloadBytes", len(raw)).Msg("tool call completed")
	return Result{CallID: call.ID, Tool: name, Success: true, Payload: raw}
}
