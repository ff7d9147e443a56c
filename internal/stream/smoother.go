package stream

import "strings"

// Smoother re-chunks raw model deltas into word-boundary text-delta
// events. Model backends emit arbitrarily sized fragments; chunking at
// whitespace keeps the client's progressive render even without
// splitting words across frames.
type Smoother struct {
	sink Sink
	buf  strings.Builder
}

// NewSmoother creates a smoother feeding the given sink.
func NewSmoother(sink Sink) *Smoother {
	return &Smoother{sink: sink}
}

// Write appends a raw delta and emits every complete word in the buffer.
// A word is complete once the whitespace following it has arrived.
func (s *Smoother) Write(text string) {
	s.buf.WriteString(text)
	content := s.buf.String()

	// Emit up to the last whitespace; the trailing partial word waits
	// for more input.
	cut := lastSpace(content)
	if cut < 0 {
		return
	}
	for _, word := range splitAfterSpaces(content[:cut+1]) {
		s.sink(TextDelta(word))
	}
	s.buf.Reset()
	s.buf.WriteString(content[cut+1:])
}

// Flush emits any buffered partial word. Call when the model step ends.
func (s *Smoother) Flush() {
	if s.buf.Len() == 0 {
		return
	}
	s.sink(TextDelta(s.buf.String()))
	s.buf.Reset()
}

func lastSpace(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ' ' || s[i] == '\n' || s[i] == '\t' {
			return i
		}
	}
	return -1
}

// splitAfterSpaces splits text into chunks that each end at a run of
// whitespace, preserving every byte of the input.
func splitAfterSpaces(text string) []string {
	var out []string
	start := 0
	inSpace := false
	for i := 0; i < len(text); i++ {
		isSpace := text[i] == ' ' || text[i] == '\n' || text[i] == '\t'
		if inSpace && !isSpace {
			out = append(out, text[start:i])
			start = i
		}
		inSpace = isSpace
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
