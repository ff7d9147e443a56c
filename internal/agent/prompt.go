package agent

import (
	"fmt"
	"strings"

	"github.com/owenmorgan/calbot/internal/llm"
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	UserEmail string
	Tools     []llm.ToolDefinition
}

// BuildSystemPrompt constructs the system prompt for the model. The
// tool contracts themselves travel in the request's tools field; the
// prompt restates the parameters in prose because models pick the right
// tool more reliably when the vocabulary is also in front of them.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	b.WriteString("You are an expert Google Calendar assistant. ")
	b.WriteString("Use your tools whenever the user asks for information from their calendar or wants to change it.\n\n")

	if cfg.UserEmail != "" {
		fmt.Fprintf(&b, "You are acting on behalf of %s.\n\n", cfg.UserEmail)
	}

	b.WriteString("Tool parameters:\n")
	b.WriteString("1. get_calendar_events:\n")
	b.WriteString("   - start date in ISO format\n")
	b.WriteString("   - end date in ISO format\n")
	b.WriteString("2. create_calendar_event:\n")
	b.WriteString("   - summary of the event\n")
	b.WriteString("   - description of the event\n")
	b.WriteString("   - start date in ISO format\n")
	b.WriteString("   - end date in ISO format\n")
	b.WriteString("   - attendees (emails) of the event\n")
	b.WriteString("3. update_calendar_event:\n")
	b.WriteString("   - id of the event to update\n")
	b.WriteString("   - new summary, description, start, end, and attendees\n")
	b.WriteString("4. delete_calendar_event:\n")
	b.WriteString("   - id of the event to delete, which you can find with get_calendar_events\n")
	b.WriteString("5. get_current_date:\n")
	b.WriteString("   - no input parameters; use it to resolve relative dates like \"tomorrow\"\n")

	b.WriteString("\nExamples of good queries:\n")
	b.WriteString("- \"What are the events in this week for me.\"\n")
	b.WriteString("- \"Can you book an event on 2025-08-22?\"\n")
	b.WriteString("- \"Can you delete the event on 2025-08-22?\"\n")

	return b.String()
}
