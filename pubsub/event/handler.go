package event

import (
	"context"

	"ticketbooth/entity"
)

type BookingTicketsService interface {
	BookingTickets(ctx context.Context, bookingID entity.ID) ([]entity.IssuedTicket, error)
}

type WalletRepository interface {
	Store(ctx context.Context, ticket entity.IssuedTicket) error
}

type Handler struct {
	ticketsService BookingTicketsService
	wallet         WalletRepository
}

func NewHandler(
	ticketsService BookingTicketsService,
	wallet WalletRepository,
) Handler {
	if ticketsService == nil {
		panic("missing ticketsService")
	}
	if wallet == nil {
		panic("missing wallet")
	}

	return Handler{
		ticketsService: ticketsService,
		wallet:         wallet,
	}
}
