package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"ticketbooth/entity"
)

// MockBookingService accepts every booking unless Err is set
type MockBookingService struct {
	mu       sync.Mutex
	t        *testing.T
	Err      error
	Requests []entity.BookingRequest
}

func NewMockBookingService(t *testing.T) *MockBookingService {
	if t == nil {
		panic("missing required argument 't'")
	}

	return &MockBookingService{t: t}
}

func (m *MockBookingService) CreateBooking(_ context.Context, request entity.BookingRequest) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, request)
	if m.Err != nil {
		return nil, m.Err
	}

	return json.RawMessage(fmt.Sprintf(`{"id": "mock-booking-%d", "status": "PENDING"}`, len(m.Requests))), nil
}

func (m *MockBookingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Requests)
}
