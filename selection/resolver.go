package selection

import (
	"github.com/samber/lo"

	"ticketbooth/entity"
)

// Resolution is the outcome of matching a seat to the ticket it is sold under.
// TicketID is only meaningful when Resolved is true.
type Resolution struct {
	SeatID   entity.ID
	TicketID entity.ID
	Resolved bool
}

// ResolveTicket picks the seat's own ticket when it names a known one and
// otherwise falls back to the first ticket sold in the seat's zone.
func ResolveTicket(seat entity.Seat, tickets []entity.Ticket) Resolution {
	if seat.TicketID != "" {
		if ticket, ok := lo.Find(tickets, func(t entity.Ticket) bool {
			return t.ID == seat.TicketID
		}); ok {
			return Resolution{SeatID: seat.ID, TicketID: ticket.ID, Resolved: true}
		}
	}

	if ticket, ok := lo.Find(tickets, func(t entity.Ticket) bool {
		return t.ZoneID == seat.ZoneID
	}); ok {
		return Resolution{SeatID: seat.ID, TicketID: ticket.ID, Resolved: true}
	}

	return Resolution{SeatID: seat.ID}
}
