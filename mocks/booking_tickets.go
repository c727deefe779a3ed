package mocks

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"ticketbooth/entity"
)

// MockBookingTickets serves issued tickets per booking for testing purposes
type MockBookingTickets struct {
	mu      sync.Mutex
	t       *testing.T
	Tickets map[entity.ID][]entity.IssuedTicket
	Err     error
	Calls   []entity.ID
}

func NewMockBookingTickets(t *testing.T) *MockBookingTickets {
	if t == nil {
		panic("missing required argument 't'")
	}

	return &MockBookingTickets{t: t, Tickets: map[entity.ID][]entity.IssuedTicket{}}
}

func (m *MockBookingTickets) BookingTickets(_ context.Context, bookingID entity.ID) ([]entity.IssuedTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, bookingID)
	if m.Err != nil {
		return nil, fmt.Errorf("failed to get tickets of booking %s: %w", bookingID, m.Err)
	}

	return m.Tickets[bookingID], nil
}

func (m *MockBookingTickets) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}
