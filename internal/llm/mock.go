package llm

import "context"

// MockClient is a test double for Client. Each call to Stream consumes
// the next scripted event list, so multi-step turns can be simulated.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	StreamFunc   func(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)

	// Scripted streaming: Responses[i] is the event list for the i-th
	// Stream call. Ignored when StreamFunc is set.
	Responses [][]StreamEvent
	streamIdx int

	// Requests records every request seen, for assertions.
	Requests []CompletionRequest
}

func (m *MockClient) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response"}, nil
}

func (m *MockClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	m.Requests = append(m.Requests, req)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}

	var events []StreamEvent
	if m.streamIdx < len(m.Responses) {
		events = m.Responses[m.streamIdx]
		m.streamIdx++
	} else {
		events = []StreamEvent{
			{Type: "delta", Content: "mock "},
			{Type: "done", Response: &CompletionResponse{Content: "mock stream response"}},
		}
	}

	ch := make(chan StreamEvent, len(events))
	for _, evt := range events {
		ch <- evt
	}
	close(ch)
	return ch, nil
}
