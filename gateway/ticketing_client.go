package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"ticketbooth/entity"
)

// TicketingClient is the typed surface of the ticketing API.
type TicketingClient struct {
	api *APIClient
}

func NewTicketingClient(api *APIClient) TicketingClient {
	if api == nil {
		panic("missing api client")
	}

	return TicketingClient{
		api: api,
	}
}

func (c TicketingClient) Profile(ctx context.Context) (entity.Profile, error) {
	var profile entity.Profile
	err := c.api.RequestJSON(ctx, "/profile", RequestOptions{}, &profile)
	if err != nil {
		return entity.Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

func (c TicketingClient) Events(ctx context.Context) ([]entity.Event, error) {
	var events []entity.Event
	err := c.api.RequestJSON(ctx, "/events", RequestOptions{}, &events)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

func (c TicketingClient) Event(ctx context.Context, eventID entity.ID) (entity.Event, error) {
	var event entity.Event
	err := c.api.RequestJSON(ctx, "/events/"+escape(eventID), RequestOptions{}, &event)
	if err != nil {
		return entity.Event{}, fmt.Errorf("failed to get event %s: %w", eventID, err)
	}

	return event, nil
}

func (c TicketingClient) Schedules(ctx context.Context, eventID entity.ID) ([]entity.Schedule, error) {
	var schedules []entity.Schedule
	err := c.api.RequestJSON(ctx, "/events/"+escape(eventID)+"/schedules", RequestOptions{}, &schedules)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules of event %s: %w", eventID, err)
	}

	return schedules, nil
}

func (c TicketingClient) Tickets(ctx context.Context, eventID entity.ID) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := c.api.RequestJSON(ctx, "/events/"+escape(eventID)+"/tickets", RequestOptions{}, &tickets)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets of event %s: %w", eventID, err)
	}

	return tickets, nil
}

func (c TicketingClient) Seats(ctx context.Context, scheduleID entity.ID) ([]entity.Seat, error) {
	var seats []entity.Seat
	err := c.api.RequestJSON(ctx, "/event-schedules/"+escape(scheduleID)+"/seats", RequestOptions{}, &seats)
	if err != nil {
		return nil, fmt.Errorf("failed to list seats of schedule %s: %w", scheduleID, err)
	}

	return seats, nil
}

// CreateBooking submits a booking and returns the server's booking unchanged.
func (c TicketingClient) CreateBooking(ctx context.Context, request entity.BookingRequest) (json.RawMessage, error) {
	header := http.Header{}
	header.Set("Idempotency-Key", uuid.NewString())

	booking, err := c.api.Request(ctx, "/bookings", RequestOptions{
		Method: http.MethodPost,
		Body:   request,
		Header: header,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	return booking, nil
}

func (c TicketingClient) Booking(ctx context.Context, bookingID entity.ID) (json.RawMessage, error) {
	booking, err := c.api.Request(ctx, "/bookings/"+escape(bookingID), RequestOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %s: %w", bookingID, err)
	}

	return booking, nil
}

func (c TicketingClient) BookingTickets(ctx context.Context, bookingID entity.ID) ([]entity.IssuedTicket, error) {
	var tickets []entity.IssuedTicket
	err := c.api.RequestJSON(ctx, "/bookings/"+escape(bookingID)+"/tickets", RequestOptions{}, &tickets)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets of booking %s: %w", bookingID, err)
	}

	for i := range tickets {
		if tickets[i].BookingID == "" {
			tickets[i].BookingID = bookingID
		}
	}

	return tickets, nil
}

// ConfirmPayment forwards the payment provider's result to the API.
func (c TicketingClient) ConfirmPayment(ctx context.Context, paymentID entity.ID, payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	result, err := c.api.Request(ctx, "/payments/"+escape(paymentID)+"/confirm", RequestOptions{
		Method: http.MethodPost,
		Body:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment %s: %w", paymentID, err)
	}

	return result, nil
}

func escape(id entity.ID) string {
	return url.PathEscape(id.String())
}
