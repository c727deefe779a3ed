package mocks

import (
	"context"
	"sort"
	"sync"
	"testing"

	"ticketbooth/entity"
)

// MockWallet keeps wallet tickets in memory, keyed by ticket id
type MockWallet struct {
	mu      sync.Mutex
	t       *testing.T
	Err     error
	tickets map[entity.ID]entity.IssuedTicket
}

func NewMockWallet(t *testing.T) *MockWallet {
	if t == nil {
		panic("missing required argument 't'")
	}

	return &MockWallet{t: t, tickets: map[entity.ID]entity.IssuedTicket{}}
}

func (m *MockWallet) Store(_ context.Context, ticket entity.IssuedTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.tickets[ticket.ID] = ticket

	return nil
}

func (m *MockWallet) FindAll(_ context.Context) ([]entity.IssuedTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tickets := make([]entity.IssuedTicket, 0, len(m.tickets))
	for _, ticket := range m.tickets {
		tickets = append(tickets, ticket)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })

	return tickets, m.Err
}

func (m *MockWallet) FindByBooking(ctx context.Context, bookingID entity.ID) ([]entity.IssuedTicket, error) {
	all, err := m.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	var tickets []entity.IssuedTicket
	for _, ticket := range all {
		if ticket.BookingID == bookingID {
			tickets = append(tickets, ticket)
		}
	}

	return tickets, nil
}
