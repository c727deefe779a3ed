package checkout_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbooth/checkout"
	"ticketbooth/entity"
	"ticketbooth/metrics"
	"ticketbooth/mocks"
	"ticketbooth/selection"
)

func newSelection(t *testing.T, bookings selection.BookingService) *selection.Controller {
	t.Helper()

	c, err := selection.NewController("E1", 2, []entity.Ticket{{ID: "T1", ZoneID: "1"}}, bookings)
	require.NoError(t, err)
	c.SetSchedule("S1")

	return c
}

func TestService_Book(t *testing.T) {
	bookings := mocks.NewMockBookingService(t)
	publisher := mocks.NewMockEventPublisher(t)
	service := checkout.NewService(mocks.NewMockPaymentsService(t), publisher)

	c := newSelection(t, bookings)
	c.Toggle(entity.Seat{ID: "A", Status: entity.SeatAvailable, ZoneID: "1"})
	c.Toggle(entity.Seat{ID: "B", Status: entity.SeatAvailable, ZoneID: "1"})

	booking, err := service.Book(context.Background(), c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "mock-booking-1", "status": "PENDING"}`, string(booking))

	events := publisher.Published()
	require.Len(t, events, 1)

	placed, ok := events[0].(entity.BookingPlaced)
	require.True(t, ok, "unexpected event %T", events[0])
	assert.Equal(t, entity.ID("mock-booking-1"), placed.BookingID)
	assert.Equal(t, entity.ID("E1"), placed.EventID)
	assert.Equal(t, entity.ID("S1"), placed.ScheduleID)
	assert.Equal(t, []entity.ID{"A", "B"}, placed.SeatIDs)
	assert.Equal(t, "mock-booking-1", placed.Header.IdempotencyKey)
	assert.NotEmpty(t, placed.Header.ID)
}

func TestService_Book_publishFailureKeepsBooking(t *testing.T) {
	publisher := mocks.NewMockEventPublisher(t)
	publisher.Err = errors.New("redis is down")
	service := checkout.NewService(mocks.NewMockPaymentsService(t), publisher)

	c := newSelection(t, mocks.NewMockBookingService(t))
	c.Toggle(entity.Seat{ID: "A", Status: entity.SeatAvailable, ZoneID: "1"})

	booking, err := service.Book(context.Background(), c)
	require.NoError(t, err)
	assert.NotEmpty(t, booking)
	assert.Len(t, publisher.Published(), 1)
}

func TestService_Book_validationFailure(t *testing.T) {
	bookings := mocks.NewMockBookingService(t)
	publisher := mocks.NewMockEventPublisher(t)
	service := checkout.NewService(mocks.NewMockPaymentsService(t), publisher)

	invalid := metrics.BookingsSubmitted.WithLabelValues("invalid")
	before := testutil.ToFloat64(invalid)

	_, err := service.Book(context.Background(), newSelection(t, bookings))

	var validationErr *entity.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, entity.ValidationEmptySelection, validationErr.Reason)
	assert.Equal(t, 0, bookings.Calls())
	assert.Empty(t, publisher.Published())
	assert.Equal(t, before+1, testutil.ToFloat64(invalid), "rejected selections are counted")
}

func TestService_Book_rejected(t *testing.T) {
	bookings := mocks.NewMockBookingService(t)
	bookings.Err = &entity.APIError{Status: 409, Body: `{"message": "seat taken"}`}
	publisher := mocks.NewMockEventPublisher(t)
	service := checkout.NewService(mocks.NewMockPaymentsService(t), publisher)

	c := newSelection(t, bookings)
	c.Toggle(entity.Seat{ID: "A", Status: entity.SeatAvailable, ZoneID: "1"})

	_, err := service.Book(context.Background(), c)

	var apiErr *entity.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 409, apiErr.Status)
	assert.Empty(t, publisher.Published())
}

func TestService_Pay(t *testing.T) {
	payments := mocks.NewMockPaymentsService(t)
	payments.ConfirmPaymentFunc = func(_ context.Context, paymentID entity.ID, _ json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{"id": "` + paymentID.String() + `", "status": "CONFIRMED"}`), nil
	}
	publisher := mocks.NewMockEventPublisher(t)
	service := checkout.NewService(payments, publisher)

	t.Run("default_payload", func(t *testing.T) {
		result, err := service.Pay(context.Background(), "booking-1", "pay-1", nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"id": "pay-1", "status": "CONFIRMED"}`, string(result))

		require.Len(t, payments.Confirmed, 1)
		assert.Equal(t, entity.ID("pay-1"), payments.Confirmed[0].PaymentID)
		assert.JSONEq(t, `{"booking_id": "booking-1"}`, string(payments.Confirmed[0].Payload))
	})

	t.Run("payload_passed_through", func(t *testing.T) {
		_, err := service.Pay(context.Background(), "booking-1", "pay-2", json.RawMessage(`{"provider": "stripe", "status": "succeeded"}`))
		require.NoError(t, err)

		require.Len(t, payments.Confirmed, 2)
		assert.JSONEq(t, `{"provider": "stripe", "status": "succeeded"}`, string(payments.Confirmed[1].Payload))
	})

	events := publisher.Published()
	require.Len(t, events, 2)
	assert.Equal(t, entity.ID("booking-1"), events[0].(entity.PaymentConfirmed).BookingID)
	assert.Equal(t, entity.ID("pay-2"), events[1].(entity.PaymentConfirmed).PaymentID)
}

func TestService_Pay_failure(t *testing.T) {
	payments := mocks.NewMockPaymentsService(t)
	payments.ConfirmPaymentFunc = func(context.Context, entity.ID, json.RawMessage) (json.RawMessage, error) {
		return nil, &entity.APIError{Status: 402, Body: "declined"}
	}
	publisher := mocks.NewMockEventPublisher(t)

	_, err := checkout.NewService(payments, publisher).Pay(context.Background(), "booking-1", "pay-1", nil)
	assert.Error(t, err)
	assert.Empty(t, publisher.Published())
}
