package mocks

import (
	"context"
	"sync"
	"testing"
)

// MockEventPublisher records published events instead of sending them
type MockEventPublisher struct {
	mu     sync.Mutex
	t      *testing.T
	Err    error
	Events []any
}

func NewMockEventPublisher(t *testing.T) *MockEventPublisher {
	if t == nil {
		panic("missing required argument 't'")
	}

	return &MockEventPublisher{t: t}
}

func (m *MockEventPublisher) Publish(_ context.Context, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Events = append(m.Events, event)

	return m.Err
}

func (m *MockEventPublisher) Published() []any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]any(nil), m.Events...)
}
