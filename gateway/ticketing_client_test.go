package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbooth/entity"
	"ticketbooth/gateway"
	"ticketbooth/gateway/gatewaytest"
	"ticketbooth/session"
)

func newTicketingClient(t *testing.T) (gateway.TicketingClient, *gatewaytest.TicketingAPI) {
	t.Helper()

	fake := gatewaytest.NewTicketingAPI()
	t.Cleanup(fake.Close)

	api := newAPIClient(t, fake.URL(), session.NewMemoryStore(fake.IssueCredentials()), nil)

	return gateway.NewTicketingClient(api), fake
}

func TestTicketingClient_catalog(t *testing.T) {
	client, fake := newTicketingClient(t)
	ctx := context.Background()

	startsAt := time.Date(2026, 11, 20, 19, 30, 0, 0, time.UTC)
	stalls := []entity.Ticket{{ID: "T1", ZoneID: "1", Name: "Stalls", Price: "80.00", Currency: "EUR"}}
	fake.Update(func() {
		fake.Events = []entity.Event{{ID: "E1", Title: "Symphony No. 9", Venue: "Concert Hall", StartsAt: startsAt}}
		fake.Schedules["E1"] = []entity.Schedule{{ID: "S1", EventID: "E1", StartsAt: startsAt}}
		fake.Tickets["E1"] = stalls
		fake.Seats["S1"] = []entity.Seat{
			{ID: "seatA", SeatNumber: "A1", Status: entity.SeatAvailable, ZoneID: "1"},
			{ID: "seatB", SeatNumber: "A2", Status: entity.SeatBooked, ZoneID: "1"},
		}
	})

	events, err := client.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, startsAt.Equal(events[0].StartsAt))

	event, err := client.Event(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "Symphony No. 9", event.Title)

	_, err = client.Event(ctx, "missing")
	var apiErr *entity.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	// schedules come wrapped in a data envelope
	schedules, err := client.Schedules(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, []entity.Schedule{{ID: "S1", EventID: "E1", StartsAt: startsAt}}, schedules)

	tickets, err := client.Tickets(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, stalls, tickets)

	seats, err := client.Seats(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.True(t, seats[1].Booked())

	profile, err := client.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GOLD", profile.Membership)
}

func TestTicketingClient_bookingAndPayment(t *testing.T) {
	client, fake := newTicketingClient(t)
	ctx := context.Background()

	booking, err := client.CreateBooking(ctx, entity.BookingRequest{
		EventID: "E1",
		Items:   []entity.BookingItem{{EventScheduleID: "S1", SeatID: "seatA", TicketID: "T1"}},
	})
	require.NoError(t, err)

	bookingID, ok := entity.BookingID(booking)
	require.True(t, ok)

	recorded := fake.Bookings()
	require.Len(t, recorded, 1)
	_, err = uuid.Parse(recorded[0].IdempotencyKey)
	assert.NoError(t, err, "booking should carry an idempotency key")

	fetched, err := client.Booking(ctx, bookingID)
	require.NoError(t, err)
	assert.Contains(t, string(fetched), "PENDING")

	tickets, err := client.BookingTickets(ctx, bookingID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, bookingID, tickets[0].BookingID)
	assert.NotEmpty(t, tickets[0].QRCode)

	payload := json.RawMessage(`{"booking_id": "` + bookingID.String() + `", "provider_reference": "pi_123"}`)
	result, err := client.ConfirmPayment(ctx, "P1", payload)
	require.NoError(t, err)
	assert.Contains(t, string(result), "CONFIRMED")

	forwarded, ok := fake.Payment("P1")
	require.True(t, ok)
	assert.JSONEq(t, string(payload), string(forwarded))

	tickets, err = client.BookingTickets(ctx, bookingID)
	require.NoError(t, err)
	assert.Equal(t, "VALID", tickets[0].Status)
}
