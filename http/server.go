package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"ticketbooth/entity"
)

type WalletRepository interface {
	FindAll(ctx context.Context) ([]entity.IssuedTicket, error)
	FindByBooking(ctx context.Context, bookingID entity.ID) ([]entity.IssuedTicket, error)
}

type Server struct {
	addr   string
	e      *echo.Echo
	wallet WalletRepository
}

func NewServer(addr string, wallet WalletRepository) *Server {
	if wallet == nil {
		panic("missing wallet")
	}

	e := echoHTTP.NewEcho()
	e.Use(otelecho.Middleware("ticketbooth"))

	server := &Server{
		addr:   addr,
		e:      e,
		wallet: wallet,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/wallet/tickets", server.GetWalletTickets)
	e.GET("/wallet/bookings/:id/tickets", server.GetBookingTickets)

	return server
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(context.WithoutCancel(ctx))
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
