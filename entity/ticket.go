package entity

type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatBooked    SeatStatus = "BOOKED"
)

type Seat struct {
	ID         ID         `json:"id"`
	SeatNumber string     `json:"seat_number"`
	Status     SeatStatus `json:"status"`
	ZoneID     ID         `json:"zone_id"`
	TicketID   ID         `json:"ticket_id,omitempty"`
}

func (s Seat) Booked() bool {
	return s.Status == SeatBooked
}

// Ticket is a sellable rank of an event, priced per zone.
type Ticket struct {
	ID       ID     `json:"id"`
	ZoneID   ID     `json:"zone_id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// IssuedTicket is a ticket issued for a booking, with the QR payload used at the gate.
type IssuedTicket struct {
	ID        ID     `json:"id" db:"ticket_id"`
	BookingID ID     `json:"booking_id" db:"booking_id"`
	SeatID    ID     `json:"seat_id" db:"seat_id"`
	QRCode    string `json:"qr_code" db:"qr_code"`
	Status    string `json:"status" db:"status"`
}
