package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ticketbooth/entity"
)

type walletTicketsResponse struct {
	Tickets []entity.IssuedTicket `json:"tickets"`
}

func (s *Server) GetWalletTickets(c echo.Context) error {
	tickets, err := s.wallet.FindAll(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, walletTicketsResponse{Tickets: nonNil(tickets)})
}

func (s *Server) GetBookingTickets(c echo.Context) error {
	bookingID := entity.ID(c.Param("id"))

	tickets, err := s.wallet.FindByBooking(c.Request().Context(), bookingID)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "no tickets for booking "+bookingID.String())
	}

	return c.JSON(http.StatusOK, walletTicketsResponse{Tickets: tickets})
}

func nonNil(tickets []entity.IssuedTicket) []entity.IssuedTicket {
	if tickets == nil {
		return []entity.IssuedTicket{}
	}
	return tickets
}
