package db

import (
	"github.com/jmoiron/sqlx"
)

func InitializeDatabaseSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS wallet_tickets (
			ticket_id VARCHAR(255) PRIMARY KEY,
			booking_id VARCHAR(255) NOT NULL,
			seat_id VARCHAR(255) NOT NULL,
			qr_code TEXT NOT NULL DEFAULT '',
			status VARCHAR(64) NOT NULL DEFAULT '',
			stored_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS wallet_tickets_booking_id_idx ON wallet_tickets (booking_id);
	`)
	return err
}
