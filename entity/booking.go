package entity

import (
	"encoding/json"
)

type BookingRequest struct {
	EventID ID            `json:"event_id"`
	Items   []BookingItem `json:"items"`
}

type BookingItem struct {
	EventScheduleID ID `json:"event_schedule_id"`
	SeatID          ID `json:"seat_id"`
	TicketID        ID `json:"ticket_id"`
}

// BookingID reads the id of a booking returned by the API, either top-level
// or nested under "data". The booking itself is passed through unchanged.
func BookingID(booking json.RawMessage) (ID, bool) {
	var envelope struct {
		ID   ID `json:"id"`
		Data *struct {
			ID ID `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(booking, &envelope); err != nil {
		return "", false
	}

	if envelope.ID != "" {
		return envelope.ID, true
	}
	if envelope.Data != nil && envelope.Data.ID != "" {
		return envelope.Data.ID, true
	}

	return "", false
}
