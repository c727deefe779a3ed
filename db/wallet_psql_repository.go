package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ticketbooth/entity"
)

// WalletPostgresRepository keeps the tickets issued for the user's bookings.
type WalletPostgresRepository struct {
	db *sqlx.DB
}

func NewWalletPostgresRepository(db *sqlx.DB) *WalletPostgresRepository {
	if db == nil {
		panic("db is nil")
	}

	return &WalletPostgresRepository{db: db}
}

// Store inserts the ticket or refreshes its QR code and status. Storing the
// same ticket again is a no-op.
func (r *WalletPostgresRepository) Store(ctx context.Context, ticket entity.IssuedTicket) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO wallet_tickets (ticket_id, booking_id, seat_id, qr_code, status)
		VALUES (:ticket_id, :booking_id, :seat_id, :qr_code, :status)
		ON CONFLICT (ticket_id) DO UPDATE SET
			qr_code = EXCLUDED.qr_code,
			status = EXCLUDED.status,
			updated_at = NOW()
		WHERE wallet_tickets.qr_code <> EXCLUDED.qr_code
			OR wallet_tickets.status <> EXCLUDED.status
	`, ticket)
	if err != nil {
		return fmt.Errorf("could not store ticket %s: %w", ticket.ID, err)
	}

	return nil
}

func (r *WalletPostgresRepository) FindAll(ctx context.Context) ([]entity.IssuedTicket, error) {
	tickets := []entity.IssuedTicket{}
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT ticket_id, booking_id, seat_id, qr_code, status
		FROM wallet_tickets
		ORDER BY stored_at, ticket_id
	`)
	return tickets, err
}

func (r *WalletPostgresRepository) FindByBooking(ctx context.Context, bookingID entity.ID) ([]entity.IssuedTicket, error) {
	tickets := []entity.IssuedTicket{}
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT ticket_id, booking_id, seat_id, qr_code, status
		FROM wallet_tickets
		WHERE booking_id = $1
		ORDER BY stored_at, ticket_id
	`, bookingID)
	return tickets, err
}
