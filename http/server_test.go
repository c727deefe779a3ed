package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbooth/entity"
	ticketboothHTTP "ticketbooth/http"
	"ticketbooth/mocks"
)

func serve(t *testing.T, server *ticketboothHTTP.Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	return rec
}

func TestServer_wallet(t *testing.T) {
	wallet := mocks.NewMockWallet(t)
	require.NoError(t, wallet.Store(context.Background(), entity.IssuedTicket{
		ID: "t1", BookingID: "booking-1", SeatID: "A1", QRCode: "QR:A1", Status: "VALID",
	}))
	require.NoError(t, wallet.Store(context.Background(), entity.IssuedTicket{
		ID: "t2", BookingID: "booking-2", SeatID: "B1", QRCode: "QR:B1", Status: "PENDING_PAYMENT",
	}))

	server := ticketboothHTTP.NewServer(":0", wallet)

	rec := serve(t, server, "/wallet/tickets")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tickets": [
		{"id": "t1", "booking_id": "booking-1", "seat_id": "A1", "qr_code": "QR:A1", "status": "VALID"},
		{"id": "t2", "booking_id": "booking-2", "seat_id": "B1", "qr_code": "QR:B1", "status": "PENDING_PAYMENT"}
	]}`, rec.Body.String())

	rec = serve(t, server, "/wallet/bookings/booking-2/tickets")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tickets": [
		{"id": "t2", "booking_id": "booking-2", "seat_id": "B1", "qr_code": "QR:B1", "status": "PENDING_PAYMENT"}
	]}`, rec.Body.String())

	rec = serve(t, server, "/wallet/bookings/unknown/tickets")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_emptyWallet(t *testing.T) {
	rec := serve(t, ticketboothHTTP.NewServer(":0", mocks.NewMockWallet(t)), "/wallet/tickets")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tickets": []}`, rec.Body.String())
}

func TestServer_walletError(t *testing.T) {
	wallet := mocks.NewMockWallet(t)
	wallet.Err = errors.New("database is down")

	rec := serve(t, ticketboothHTTP.NewServer(":0", wallet), "/wallet/tickets")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_healthAndMetrics(t *testing.T) {
	server := ticketboothHTTP.NewServer(":0", mocks.NewMockWallet(t))

	rec := serve(t, server, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = serve(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
