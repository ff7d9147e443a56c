package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/owenmorgan/calbot/internal/domain"
)

// datePayload is the get_current_date output. The formatted fields let
// the model echo dates to the user without doing its own rendering.
type datePayload struct {
	CurrentDate          string `json:"currentDate"`
	CurrentDateFormatted string `json:"currentDateFormatted"`
	CurrentTimeFormatted string `json:"currentTimeFormatted"`
	DayOfWeek            string `json:"dayOfWeek"`
	Month                string `json:"month"`
	Year                 int    `json:"year"`
}

// ClockDefinition builds the get_current_date tool. The clock is
// injectable for tests; pass time.Now in production.
func ClockDefinition(now func() time.Time) Definition {
	if now == nil {
		now = time.Now
	}
	return Definition{
		Name:        GetCurrentDate,
		Description: "Get the current date and time to help with relative date calculations (e.g., today, tomorrow, next week)",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
		Execute: func(ctx context.Context, sess domain.Session, raw json.RawMessage) (any, error) {
			t := now()
			return datePayload{
				CurrentDate:          t.Format(time.RFC3339),
				CurrentDateFormatted: t.Format("Monday, January 2, 2006"),
				CurrentTimeFormatted: t.Format("3:04 PM"),
				DayOfWeek:            t.Weekday().String(),
				Month:                t.Month().String(),
				Year:                 t.Year(),
			}, nil
		},
	}
}
