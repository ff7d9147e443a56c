package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventIntersects(t *testing.T) {
	at := func(h int) time.Time {
		return time.Date(2025, 8, 22, h, 0, 0, 0, time.UTC)
	}
	ev := Event{Start: at(10), End: at(11)}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"fully inside", at(9), at(12), true},
		{"straddles start", at(9), at(10).Add(30 * time.Minute), true},
		{"straddles end", at(10).Add(30 * time.Minute), at(12), true},
		{"ends at event start", at(8), at(10), false},
		{"starts at event end", at(11), at(12), false},
		{"disjoint", at(13), at(14), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ev.Intersects(tt.start, tt.end))
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	var err error = &ValidationError{Field: "start", Message: "must be an ISO-8601 timestamp"}
	assert.True(t, IsValidation(err))
	assert.False(t, IsUnauthenticated(err))
	assert.Equal(t, "start: must be an ISO-8601 timestamp", err.Error())

	err = &UnauthenticatedError{Reason: "session expired"}
	assert.True(t, IsUnauthenticated(err))
	assert.Equal(t, "unauthenticated: session expired", err.Error())

	// Wrapping preserves classification.
	wrapped := fmt.Errorf("tool call failed: %w", &ValidationError{Message: "bad input"})
	assert.True(t, IsValidation(wrapped))

	pe := &ProviderError{Op: "delete", StatusCode: 404, Message: "event not found"}
	assert.Equal(t, "calendar delete failed (404): event not found", pe.Error())
}
