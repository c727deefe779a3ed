// Package checkout books a seat selection and confirms its payment, announcing
// both on the event bus so the local wallet can follow.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"ticketbooth/entity"
)

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type PaymentsService interface {
	ConfirmPayment(ctx context.Context, paymentID entity.ID, payload json.RawMessage) (json.RawMessage, error)
}

type Selection interface {
	Confirm(ctx context.Context) (json.RawMessage, error)
	BuildRequest() (entity.BookingRequest, error)
}

type Service struct {
	payments PaymentsService
	eventBus EventPublisher
}

func NewService(payments PaymentsService, eventBus EventPublisher) Service {
	if payments == nil {
		panic("missing payments service")
	}
	if eventBus == nil {
		panic("missing event bus")
	}

	return Service{
		payments: payments,
		eventBus: eventBus,
	}
}

// Book submits the selection. Once the API has accepted the booking a
// failure to announce it is only logged.
func (s Service) Book(ctx context.Context, selection Selection) (json.RawMessage, error) {
	booking, err := selection.Confirm(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to book seats: %w", err)
	}

	// the selection is unchanged by a successful Confirm
	request, err := selection.BuildRequest()
	if err != nil {
		return nil, err
	}

	bookingID, ok := entity.BookingID(booking)
	if !ok {
		log.FromContext(ctx).Warn("Booking response has no id, not announcing it")
		return booking, nil
	}

	event := entity.BookingPlaced{
		Header:    entity.NewEventHeaderWithIdempotencyKey(bookingID.String()),
		BookingID: bookingID,
		EventID:   request.EventID,
		SeatIDs: lo.Map(request.Items, func(item entity.BookingItem, _ int) entity.ID {
			return item.SeatID
		}),
	}
	if len(request.Items) > 0 {
		event.ScheduleID = request.Items[0].EventScheduleID
	}

	if err := s.eventBus.Publish(ctx, event); err != nil {
		log.FromContext(ctx).WithError(err).WithField("booking_id", bookingID).Error("Failed to publish BookingPlaced")
	}

	return booking, nil
}

// Pay confirms a payment for bookingID. Without a payload the booking id is
// sent as the body.
func (s Service) Pay(ctx context.Context, bookingID, paymentID entity.ID, payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		var err error
		payload, err = json.Marshal(map[string]entity.ID{"booking_id": bookingID})
		if err != nil {
			return nil, err
		}
	}

	result, err := s.payments.ConfirmPayment(ctx, paymentID, payload)
	if err != nil {
		return nil, err
	}

	logger := log.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id": bookingID,
		"payment_id": paymentID,
	})
	logger.Info("Payment confirmed")

	err = s.eventBus.Publish(ctx, entity.PaymentConfirmed{
		Header:    entity.NewEventHeaderWithIdempotencyKey(paymentID.String()),
		BookingID: bookingID,
		PaymentID: paymentID,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to publish PaymentConfirmed")
	}

	return result, nil
}
