package llm

import (
	"bufio"
	"io"
)

// serverSentEventScanner reads Server-Sent Events line by line.
type serverSentEventScanner struct {
	scanner *bufio.Scanner
}

func newServerSentEventScanner(r io.Reader) *serverSentEventScanner {
	sc := bufio.NewScanner(r)
	// Tool-call argument fragments can make individual data lines large.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &serverSentEventScanner{scanner: sc}
}

// Scan advances to the next line.
func (s *serverSentEventScanner) Scan() bool { return s.scanner.Scan() }

// Text returns the last scanned line.
func (s *serverSentEventScanner) Text() string { return s.scanner.Text() }
