package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/lithammer/shortuuid/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbooth/app"
	"ticketbooth/checkout"
	"ticketbooth/config"
	"ticketbooth/db"
	"ticketbooth/entity"
	"ticketbooth/gateway"
	"ticketbooth/gateway/gatewaytest"
	"ticketbooth/selection"
	"ticketbooth/session"
)

func TestComponent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbconn, err := db.Open(postgresURL)
	require.NoError(t, err)
	defer dbconn.Close()

	redisClient := app.NewRedisClient(redisURL)
	defer redisClient.Close()

	fake := gatewaytest.NewTicketingAPI()
	defer fake.Close()
	fake.Update(func() {
		fake.Tickets["E1"] = []entity.Ticket{
			{ID: "T1", ZoneID: "1", Name: "Stalls", Price: "50.00", Currency: "EUR"},
			{ID: "T2", ZoneID: "2", Name: "Balcony", Price: "30.00", Currency: "EUR"},
		}
	})

	cfg := config.Config{
		APIURL:      fake.URL(),
		RefreshURL:  gateway.DefaultRefreshPath,
		HTTPTimeout: 5 * time.Second,
	}
	api, err := app.NewAPIClient(cfg, session.NewMemoryStore(fake.IssueCredentials()), nil)
	require.NoError(t, err)
	ticketing := gateway.NewTicketingClient(api)

	httpAddress := freeAddress(t)
	svc, err := app.New(httpAddress, dbconn, redisClient, ticketing, nil)
	require.NoError(t, err)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		assert.NoError(t, svc.Run(ctx))
	}()
	defer func() {
		cancel()
		<-finished
	}()

	waitForHttpServer(t, httpAddress)

	eventBus, err := app.NewEventBus(redisClient)
	require.NoError(t, err)
	checkoutService := checkout.NewService(ticketing, eventBus)

	tickets, err := ticketing.Tickets(ctx, "E1")
	require.NoError(t, err)

	controller, err := selection.NewController("E1", 2, tickets, ticketing)
	require.NoError(t, err)
	controller.SetSchedule("S1")
	controller.Toggle(entity.Seat{ID: entity.ID("A-" + shortuuid.New()), Status: entity.SeatAvailable, ZoneID: "1"})
	controller.Toggle(entity.Seat{ID: entity.ID("B-" + shortuuid.New()), Status: entity.SeatAvailable, ZoneID: "2", TicketID: "T2"})

	bookCtx := log.ContextWithCorrelationID(ctx, "component-"+shortuuid.New())
	booking, err := checkoutService.Book(bookCtx, controller)
	require.NoError(t, err)

	bookingID, ok := entity.BookingID(booking)
	require.True(t, ok)

	assertWalletTickets(t, httpAddress, bookingID, "PENDING_PAYMENT", 2)

	_, err = checkoutService.Pay(bookCtx, bookingID, entity.ID("pay-"+shortuuid.New()), nil)
	require.NoError(t, err)

	assertWalletTickets(t, httpAddress, bookingID, "VALID", 2)
}

func assertWalletTickets(t *testing.T, addr string, bookingID entity.ID, status string, count int) {
	t.Helper()

	assert.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get(fmt.Sprintf("http://%s/wallet/bookings/%s/tickets", addr, bookingID))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}

			var body struct {
				Tickets []entity.IssuedTicket `json:"tickets"`
			}
			if !assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body)) {
				return
			}

			if !assert.Len(t, body.Tickets, count) {
				return
			}
			for _, ticket := range body.Tickets {
				assert.Equal(t, status, ticket.Status)
				assert.Equal(t, bookingID, ticket.BookingID)
				assert.NotEmpty(t, ticket.QRCode)
			}
		},
		15*time.Second,
		100*time.Millisecond,
	)
}

func freeAddress(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	return listener.Addr().String()
}

func waitForHttpServer(t *testing.T, addr string) {
	t.Helper()

	require.EventuallyWithT(
		t,
		func(t *assert.CollectT) {
			resp, err := http.Get("http://" + addr + "/health")
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			assert.Less(t, resp.StatusCode, 300, "API not ready, http status: %d", resp.StatusCode)
		},
		time.Second*10,
		time.Millisecond*50,
	)
}
