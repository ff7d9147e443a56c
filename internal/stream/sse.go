package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrStreamingUnsupported means the response writer cannot flush
// incrementally, so no event stream can be established.
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// SSEWriter frames events as Server-Sent Events over a single open
// response, flushing after every event so the client renders
// progressively.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu     sync.Mutex
	failed bool
}

// NewSSEWriter prepares w for event streaming and writes the stream
// headers.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Send writes one event frame and flushes. After the first write
// failure (severed connection) all further sends are dropped silently:
// the turn keeps running server-side, its results are simply
// undeliverable.
func (s *SSEWriter) Send(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.failed = true
		return nil
	}
	s.flusher.Flush()
	return nil
}
