package event

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/sirupsen/logrus"

	"ticketbooth/entity"
)

func (h Handler) StoreBookedTicketsHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"StoreBookedTicketsHandler",
		func(ctx context.Context, event *entity.BookingPlaced) error {
			log.FromContext(ctx).WithField("booking_id", event.BookingID).Info("Storing booked tickets in wallet")

			return h.syncBookingTickets(ctx, event.BookingID)
		},
	)
}

func (h Handler) StorePaidTicketsHandler() cqrs.EventHandler {
	return cqrs.NewEventHandler(
		"StorePaidTicketsHandler",
		func(ctx context.Context, event *entity.PaymentConfirmed) error {
			log.FromContext(ctx).WithFields(logrus.Fields{
				"booking_id": event.BookingID,
				"payment_id": event.PaymentID,
			}).Info("Updating paid tickets in wallet")

			return h.syncBookingTickets(ctx, event.BookingID)
		},
	)
}

// syncBookingTickets copies the current state of every ticket of the booking
// into the wallet. Storing is idempotent, so redelivered events are harmless.
// Failures a redelivery cannot fix are logged and the event is acked.
func (h Handler) syncBookingTickets(ctx context.Context, bookingID entity.ID) error {
	tickets, err := h.ticketsService.BookingTickets(ctx, bookingID)
	if isPermanent(err) {
		log.FromContext(ctx).
			WithError(err).
			WithField("booking_id", bookingID).
			Warn("Skipping wallet sync, tickets of the booking cannot be fetched")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch tickets of booking %s: %w", bookingID, err)
	}

	for _, ticket := range tickets {
		if ticket.BookingID == "" {
			ticket.BookingID = bookingID
		}
		if err := h.wallet.Store(ctx, ticket); err != nil {
			return fmt.Errorf("failed to store ticket %s: %w", ticket.ID, err)
		}
	}

	return nil
}

// isPermanent reports a lost session or a client error other than rate limiting.
func isPermanent(err error) bool {
	if errors.Is(err, entity.ErrUnauthorized) {
		return true
	}

	var apiErr *entity.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusBadRequest &&
			apiErr.Status < http.StatusInternalServerError &&
			apiErr.Status != http.StatusTooManyRequests
	}

	return false
}
