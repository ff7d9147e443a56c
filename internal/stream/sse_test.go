package stream

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEWriterFramesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewSSEWriter(rec)
	require.NoError(t, err)

	require.NoError(t, w.Send(TextDelta("hello ")))
	require.NoError(t, w.Send(Done()))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	assert.True(t, rec.Flushed)

	var events []Event
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(data), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, TypeTextDelta, events[0].Type)
	assert.Equal(t, "hello ", events[0].Text)
	assert.Equal(t, TypeDone, events[1].Type)
}

type noFlushWriter struct {
	http.ResponseWriter
}

func TestSSEWriterRequiresFlusher(t *testing.T) {
	rec := httptest.NewRecorder()
	_, err := NewSSEWriter(noFlushWriter{rec})
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}

type failingWriter struct {
	*httptest.ResponseRecorder
	fail   bool
	writes int
}

func (w *failingWriter) Write(b []byte) (int, error) {
	w.writes++
	if w.fail {
		return 0, assert.AnError
	}
	return w.ResponseRecorder.Write(b)
}

func (w *failingWriter) Flush() {}

func TestSSEWriterDropsAfterWriteFailure(t *testing.T) {
	fw := &failingWriter{ResponseRecorder: httptest.NewRecorder()}
	w, err := NewSSEWriter(fw)
	require.NoError(t, err)

	fw.fail = true
	require.NoError(t, w.Send(TextDelta("lost")))
	writesAfterFailure := fw.writes

	// Subsequent sends are silently dropped, not retried.
	require.NoError(t, w.Send(Done()))
	assert.Equal(t, writesAfterFailure, fw.writes)
}
