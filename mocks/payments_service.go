package mocks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"ticketbooth/entity"
)

type ConfirmedPayment struct {
	PaymentID entity.ID
	Payload   json.RawMessage
}

// MockPaymentsService implements the payment confirmation call for testing purposes
type MockPaymentsService struct {
	mu                 sync.Mutex
	t                  *testing.T
	ConfirmPaymentFunc func(ctx context.Context, paymentID entity.ID, payload json.RawMessage) (json.RawMessage, error)
	Confirmed          []ConfirmedPayment
}

func NewMockPaymentsService(t *testing.T) *MockPaymentsService {
	if t == nil {
		panic("missing required argument 't'")
	}

	return &MockPaymentsService{t: t}
}

func (m *MockPaymentsService) ConfirmPayment(ctx context.Context, paymentID entity.ID, payload json.RawMessage) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Confirmed = append(m.Confirmed, ConfirmedPayment{PaymentID: paymentID, Payload: payload})
	if m.ConfirmPaymentFunc == nil {
		return nil, errors.New("ConfirmPayment not implemented")
	}

	return m.ConfirmPaymentFunc(ctx, paymentID, payload)
}
