package reconciler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/owenmorgan/calbot/internal/llm"
	"github.com/owenmorgan/calbot/internal/logging"
	"github.com/owenmorgan/calbot/internal/stream"
)

// TurnClient submits a chat turn to the server and feeds the framed
// event stream into a reconciler as frames arrive.
type TurnClient struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     *logging.Logger
}

// NewTurnClient creates a client for the given server. token is the
// bearer session token.
func NewTurnClient(baseURL, token string, log *logging.Logger) *TurnClient {
	return &TurnClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// No overall timeout: the response is a long-lived event stream.
		httpc: &http.Client{},
		log:   log.Sub("turnclient"),
	}
}

// turnRequest is the chat submission payload.
type turnRequest struct {
	Messages []llm.Message `json:"messages"`
}

// Send posts the message history plus the new user message and streams
// the resulting events into rec until done or the connection drops.
func (c *TurnClient) Send(ctx context.Context, rec *Reconciler, history []llm.Message, userText string) error {
	rec.UserMessage(userText)
	messages := append(append([]llm.Message{}, history...), llm.Message{
		Role:    llm.RoleUser,
		Content: userText,
	})

	body, err := json.Marshal(turnRequest{Messages: messages})
	if err != nil {
		return fmt.Errorf("encoding turn request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("submitting turn: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("turn rejected: status %d", resp.StatusCode)
	}

	frames := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var ev stream.Event
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			c.log.Warn().Err(err).Msg("skipping malformed event frame")
			continue
		}
		frames++
		rec.Observe(ctx, ev)
		if ev.Type == stream.TypeDone {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading event stream: %w", err)
	}

	c.log.Debug().Int("frames", frames).Dur("duration", time.Since(start)).Msg("turn stream consumed")
	return nil
}
