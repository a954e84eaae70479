package provider

import (
	"context"
	"sync"
)

// Mock is a deterministic in-process backend for tests and dry runs.
// Responses are served in order; when the queue is exhausted (or empty)
// the Handler decides, falling back to a fixed reply.
type Mock struct {
	mu        sync.Mutex
	responses []string
	calls     [][]Message

	// Handler, when set, computes the reply from the message sequence.
	Handler func(messages []Message) string

	// Err, when set, is returned from every Invoke.
	Err error
}

func NewMock(responses ...string) *Mock {
	return &Mock{responses: responses}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Invoke(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, messages)

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.responses) > 0 {
		next := m.responses[0]
		m.responses = m.responses[1:]
		return next, nil
	}
	if m.Handler != nil {
		return m.Handler(messages), nil
	}
	return `{"text": "mock response"}`, nil
}

// Calls returns the message sequences seen so far, in invocation order.
func (m *Mock) Calls() [][]Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Message, len(m.calls))
	copy(out, m.calls)
	return out
}
