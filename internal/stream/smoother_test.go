package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectText(events *[]string) Sink {
	return func(ev Event) {
		*events = append(*events, ev.Text)
	}
}

func TestSmootherEmitsWholeWords(t *testing.T) {
	var got []string
	s := NewSmoother(collectText(&got))

	s.Write("Hel")
	assert.Empty(t, got, "partial word must be held back")
	s.Write("lo wor")
	assert.Equal(t, []string{"Hello "}, got)
	s.Write("ld")
	s.Flush()
	assert.Equal(t, []string{"Hello ", "world"}, got)
}

func TestSmootherPreservesEveryByte(t *testing.T) {
	const text = "The  quick\nbrown\tfox jumps"

	var got []string
	s := NewSmoother(collectText(&got))
	for _, r := range text {
		s.Write(string(r))
	}
	s.Flush()

	assert.Equal(t, text, strings.Join(got, ""))
	for _, chunk := range got[:len(got)-1] {
		assert.NotEmpty(t, chunk)
	}
}

func TestSmootherLargeDeltaSplitsPerWord(t *testing.T) {
	var got []string
	s := NewSmoother(collectText(&got))

	s.Write("one two three ")
	require.Equal(t, []string{"one ", "two ", "three "}, got)
}

func TestSmootherFlushOnEmptyBuffer(t *testing.T) {
	var got []string
	s := NewSmoother(collectText(&got))
	s.Flush()
	assert.Empty(t, got)
}
