package reconciler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owenmorgan/calbot/internal/llm"
	"github.com/owenmorgan/calbot/internal/stream"
)

func frameServer(t *testing.T, gotReq *turnRequest, events ...stream.Event) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		if gotReq != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(gotReq))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			data, err := json.Marshal(ev)
			require.NoError(t, err)
			_, _ = w.Write([]byte("data: " + string(data) + "\n\n"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTurnClientSend(t *testing.T) {
	var gotReq turnRequest
	srv := frameServer(t, &gotReq,
		stream.TextDelta("Deleted "),
		stream.TextDelta("it."),
		stream.Done(),
	)

	f := &countingFetcher{}
	rec := New(f.fetch, silentLog())
	c := NewTurnClient(srv.URL, "tok-123", silentLog())

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "what's on today?"},
		{Role: llm.RoleAssistant, Content: "You have standup at 10."},
	}
	err := c.Send(context.Background(), rec, history, "delete the standup")
	require.NoError(t, err)

	// History plus the new user message go over the wire.
	require.Len(t, gotReq.Messages, 3)
	assert.Equal(t, "delete the standup", gotReq.Messages[2].Content)
	assert.Equal(t, llm.RoleUser, gotReq.Messages[2].Role)

	entries := rec.Transcript()
	require.Len(t, entries, 2)
	assert.Equal(t, "delete the standup", entries[0].Text)
	assert.Equal(t, "Deleted it.", entries[1].Text)
	assert.True(t, rec.Done())
}

func TestTurnClientRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	rec := New((&countingFetcher{}).fetch, silentLog())
	c := NewTurnClient(srv.URL, "tok-123", silentLog())

	err := c.Send(context.Background(), rec, nil, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTurnClientSkipsMalformedFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(": comment\n\n"))
		_, _ = w.Write([]byte("data: not json\n\n"))
		data, _ := json.Marshal(stream.TextDelta("ok"))
		_, _ = w.Write([]byte("data: " + string(data) + "\n\n"))
		data, _ = json.Marshal(stream.Done())
		_, _ = w.Write([]byte("data: " + string(data) + "\n\n"))
	}))
	t.Cleanup(srv.Close)

	rec := New((&countingFetcher{}).fetch, silentLog())
	c := NewTurnClient(srv.URL, "tok-123", silentLog())

	require.NoError(t, c.Send(context.Background(), rec, nil, "hi"))
	entries := rec.Transcript()
	require.Len(t, entries, 2)
	assert.Equal(t, "ok", entries[1].Text)
}
