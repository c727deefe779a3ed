// Package selection tracks the seats picked for a booking and turns them
// into a booking request.
package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ticketbooth/entity"
	"ticketbooth/metrics"
)

type BookingService interface {
	CreateBooking(ctx context.Context, request entity.BookingRequest) (json.RawMessage, error)
}

type State int

const (
	Empty State = iota
	Partial
	Full
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Partial:
		return "partial"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Controller holds an ordered selection of at most quantity seats. When the
// selection is full a new seat replaces the oldest one.
//
// A Controller is not safe for concurrent use; calls are applied in the order
// they are made.
type Controller struct {
	eventID    entity.ID
	scheduleID entity.ID
	quantity   int
	tickets    []entity.Ticket
	selected   []entity.Seat

	bookings BookingService
}

func NewController(eventID entity.ID, quantity int, tickets []entity.Ticket, bookings BookingService) (*Controller, error) {
	if bookings == nil {
		panic("missing bookings service")
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	return &Controller{
		eventID:  eventID,
		quantity: quantity,
		tickets:  append([]entity.Ticket(nil), tickets...),
		bookings: bookings,
	}, nil
}

func (c *Controller) State() State {
	switch len(c.selected) {
	case 0:
		return Empty
	case c.quantity:
		return Full
	default:
		return Partial
	}
}

func (c *Controller) Quantity() int {
	return c.quantity
}

func (c *Controller) ScheduleID() entity.ID {
	return c.scheduleID
}

// Selected returns the selection in the order the seats were picked.
func (c *Controller) Selected() []entity.Seat {
	return append([]entity.Seat(nil), c.selected...)
}

func (c *Controller) IsSelected(seatID entity.ID) bool {
	return c.indexOf(seatID) >= 0
}

// Toggle selects or deselects seat. Booked seats are ignored.
func (c *Controller) Toggle(seat entity.Seat) {
	if seat.Booked() {
		return
	}

	if i := c.indexOf(seat.ID); i >= 0 {
		c.selected = append(c.selected[:i:i], c.selected[i+1:]...)
		return
	}

	if c.State() == Full {
		c.selected = append(c.selected[1:len(c.selected):len(c.selected)], seat)
		return
	}

	c.selected = append(c.selected, seat)
}

func (c *Controller) Reset() {
	c.selected = nil
}

func (c *Controller) SetSchedule(scheduleID entity.ID) {
	if scheduleID == c.scheduleID {
		return
	}
	c.scheduleID = scheduleID
	c.Reset()
}

func (c *Controller) SetTickets(tickets []entity.Ticket) {
	c.tickets = append([]entity.Ticket(nil), tickets...)
	c.Reset()
}

// SetQuantity starts a new selection when quantity changes; an existing
// selection is never reinterpreted under another bound.
func (c *Controller) SetQuantity(quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if quantity == c.quantity {
		return nil
	}

	c.quantity = quantity
	c.Reset()

	return nil
}

// BuildRequest validates the selection and resolves a ticket for every seat.
// Nothing is built when a single seat cannot be resolved.
func (c *Controller) BuildRequest() (entity.BookingRequest, error) {
	if len(c.selected) == 0 {
		return entity.BookingRequest{}, &entity.ValidationError{Reason: entity.ValidationEmptySelection}
	}
	if c.scheduleID == "" {
		return entity.BookingRequest{}, &entity.ValidationError{Reason: entity.ValidationMissingSchedule}
	}

	resolutions := lo.Map(c.selected, func(seat entity.Seat, _ int) Resolution {
		return ResolveTicket(seat, c.tickets)
	})

	if unresolved, ok := lo.Find(resolutions, func(r Resolution) bool { return !r.Resolved }); ok {
		return entity.BookingRequest{}, &entity.ValidationError{
			Reason: entity.ValidationUnresolvedTicket,
			SeatID: unresolved.SeatID,
		}
	}

	return entity.BookingRequest{
		EventID: c.eventID,
		Items: lo.Map(resolutions, func(r Resolution, _ int) entity.BookingItem {
			return entity.BookingItem{
				EventScheduleID: c.scheduleID,
				SeatID:          r.SeatID,
				TicketID:        r.TicketID,
			}
		}),
	}, nil
}

// Confirm submits the selection as one booking and returns the server's
// booking unchanged. Validation failures never reach the network. Clearing
// the selection afterwards is up to the caller.
func (c *Controller) Confirm(ctx context.Context) (booking json.RawMessage, err error) {
	ctx, span := otel.Tracer("").Start(ctx, "selection.Confirm")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	span.SetAttributes(
		attribute.String("event_id", c.eventID.String()),
		attribute.String("schedule_id", c.scheduleID.String()),
		attribute.Int("seats", len(c.selected)),
	)

	request, err := c.BuildRequest()
	if err != nil {
		metrics.BookingsSubmitted.WithLabelValues("invalid").Inc()
		return nil, err
	}

	log.FromContext(ctx).WithFields(logrus.Fields{
		"event_id":    c.eventID,
		"schedule_id": c.scheduleID,
		"seats":       len(request.Items),
	}).Info("Submitting booking")

	booking, err = c.bookings.CreateBooking(ctx, request)
	if err != nil {
		metrics.BookingsSubmitted.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.BookingsSubmitted.WithLabelValues("submitted").Inc()

	return booking, nil
}

func (c *Controller) indexOf(seatID entity.ID) int {
	_, i, ok := lo.FindIndexOf(c.selected, func(s entity.Seat) bool {
		return s.ID == seatID
	})
	if !ok {
		return -1
	}
	return i
}
