package entity_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbooth/entity"
)

func TestID_UnmarshalJSON(t *testing.T) {
	var seat entity.Seat
	err := json.Unmarshal([]byte(`{"id": 42, "seat_number": "A1", "status": "AVAILABLE", "zone_id": "7", "ticket_id": null}`), &seat)
	require.NoError(t, err)

	assert.Equal(t, entity.ID("42"), seat.ID)
	assert.Equal(t, entity.ID("7"), seat.ZoneID)
	assert.Equal(t, entity.ID(""), seat.TicketID)

	out, err := json.Marshal(entity.BookingItem{EventScheduleID: "1", SeatID: "2", TicketID: "3"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event_schedule_id": "1", "seat_id": "2", "ticket_id": "3"}`, string(out))
}

func TestBookingID(t *testing.T) {
	id, ok := entity.BookingID(json.RawMessage(`{"id": "b-1", "status": "PENDING"}`))
	assert.True(t, ok)
	assert.Equal(t, entity.ID("b-1"), id)

	id, ok = entity.BookingID(json.RawMessage(`{"data": {"id": 15}}`))
	assert.True(t, ok)
	assert.Equal(t, entity.ID("15"), id)

	_, ok = entity.BookingID(json.RawMessage(`{"status": "PENDING"}`))
	assert.False(t, ok)
}

func TestAPIError_Message(t *testing.T) {
	err := &entity.APIError{Status: 409, Body: `{"message": "seat already booked"}`}
	assert.Equal(t, "seat already booked", err.Message())
	assert.Contains(t, err.Error(), "409")

	err = &entity.APIError{Status: 500, Body: "upstream down\n"}
	assert.Equal(t, "upstream down", err.Message())

	var apiErr *entity.APIError
	assert.True(t, errors.As(fmt.Errorf("could not book: %w", err), &apiErr))
	assert.Equal(t, 500, apiErr.Status)
}

func TestValidationError(t *testing.T) {
	err := &entity.ValidationError{Reason: entity.ValidationUnresolvedTicket, SeatID: "seat-9"}
	assert.Equal(t, "no ticket found for seat seat-9", err.Error())

	err = &entity.ValidationError{Reason: entity.ValidationEmptySelection}
	assert.Contains(t, err.Error(), "selection")
}

func TestCredentials_AccessExpiry(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, ok := entity.Credentials{AccessToken: token}.AccessExpiry()
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = entity.Credentials{AccessToken: "opaque"}.AccessExpiry()
	assert.False(t, ok)

	assert.True(t, entity.Credentials{}.Empty())
}
