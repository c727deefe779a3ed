package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type BookingPlaced struct {
	Header     EventHeader `json:"header"`
	BookingID  ID          `json:"booking_id"`
	EventID    ID          `json:"event_id"`
	ScheduleID ID          `json:"schedule_id"`
	SeatIDs    []ID        `json:"seat_ids"`
}

type PaymentConfirmed struct {
	Header    EventHeader `json:"header"`
	BookingID ID          `json:"booking_id"`
	PaymentID ID          `json:"payment_id"`
}
