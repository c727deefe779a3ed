// Package gatewaytest provides an in-process ticketing API for tests.
package gatewaytest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"ticketbooth/entity"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RecordedBooking struct {
	Body           json.RawMessage
	IdempotencyKey string
}

// TicketingAPI is an in-process ticketing API for tests: it issues and
// expires tokens, serves a catalog and records bookings and payments.
type TicketingAPI struct {
	lock   sync.Mutex
	server *httptest.Server

	// RefreshInData nests refresh responses under a "data" key.
	RefreshInData       bool
	RotateRefreshTokens bool
	FailRefresh         bool
	RefreshDelay        time.Duration

	Events        []entity.Event
	Schedules     map[entity.ID][]entity.Schedule
	Tickets       map[entity.ID][]entity.Ticket
	Seats         map[entity.ID][]entity.Seat
	IssuedTickets map[entity.ID][]entity.IssuedTicket

	accessTokens  map[string]bool
	refreshTokens map[string]bool
	issued        int

	calls        map[string]int
	authHeaders  []string
	refreshCalls int
	bookings     []RecordedBooking
	payments     map[entity.ID]json.RawMessage
}

func NewTicketingAPI() *TicketingAPI {
	f := &TicketingAPI{
		Schedules:     map[entity.ID][]entity.Schedule{},
		Tickets:       map[entity.ID][]entity.Ticket{},
		Seats:         map[entity.ID][]entity.Seat{},
		IssuedTickets: map[entity.ID][]entity.IssuedTicket{},
		accessTokens:  map[string]bool{},
		refreshTokens: map[string]bool{},
		calls:         map[string]int{},
		payments:      map[entity.ID]json.RawMessage{},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(f.record)

	e.POST("/auth/login", f.login)
	e.POST("/auth/refresh", f.refresh)

	authorized := e.Group("", f.authorize)
	authorized.POST("/auth/logout", f.logout)
	authorized.GET("/profile", f.profile)
	authorized.GET("/events", f.events)
	authorized.GET("/events/:id", f.event)
	authorized.GET("/events/:id/schedules", f.schedules)
	authorized.GET("/events/:id/tickets", f.tickets)
	authorized.GET("/event-schedules/:id/seats", f.seats)
	authorized.POST("/bookings", f.createBooking)
	authorized.GET("/bookings/:id", f.booking)
	authorized.GET("/bookings/:id/tickets", f.bookingTickets)
	authorized.POST("/payments/:id/confirm", f.confirmPayment)

	f.server = httptest.NewServer(e)

	return f
}

func (f *TicketingAPI) URL() string {
	return f.server.URL
}

func (f *TicketingAPI) Close() {
	f.server.Close()
}

// Update changes the fake's catalog or settings while it is serving.
func (f *TicketingAPI) Update(update func()) {
	f.lock.Lock()
	defer f.lock.Unlock()

	update()
}

// IssueCredentials mints a valid pair, as a sign-in would.
func (f *TicketingAPI) IssueCredentials() entity.Credentials {
	f.lock.Lock()
	defer f.lock.Unlock()

	return f.issueLocked("")
}

// ExpireAccessTokens makes every issued access token stale; refresh tokens stay valid.
func (f *TicketingAPI) ExpireAccessTokens() {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.accessTokens = map[string]bool{}
}

func (f *TicketingAPI) RevokeRefreshTokens() {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.refreshTokens = map[string]bool{}
}

func (f *TicketingAPI) Calls(method, path string) int {
	f.lock.Lock()
	defer f.lock.Unlock()

	return f.calls[method+" "+path]
}

func (f *TicketingAPI) TotalCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()

	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *TicketingAPI) RefreshCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()

	return f.refreshCalls
}

func (f *TicketingAPI) AuthHeaders() []string {
	f.lock.Lock()
	defer f.lock.Unlock()

	return append([]string(nil), f.authHeaders...)
}

func (f *TicketingAPI) Bookings() []RecordedBooking {
	f.lock.Lock()
	defer f.lock.Unlock()

	return append([]RecordedBooking(nil), f.bookings...)
}

func (f *TicketingAPI) Payment(paymentID entity.ID) (json.RawMessage, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()

	payload, ok := f.payments[paymentID]
	return payload, ok
}

func (f *TicketingAPI) issueLocked(refreshToken string) entity.Credentials {
	f.issued++
	credentials := entity.Credentials{
		AccessToken:  fmt.Sprintf("access-%d", f.issued),
		RefreshToken: refreshToken,
	}
	if credentials.RefreshToken == "" {
		credentials.RefreshToken = fmt.Sprintf("refresh-%d", f.issued)
	}

	f.accessTokens[credentials.AccessToken] = true
	f.refreshTokens[credentials.RefreshToken] = true

	return credentials
}

func (f *TicketingAPI) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		f.lock.Lock()
		f.calls[c.Request().Method+" "+c.Request().URL.Path]++
		f.authHeaders = append(f.authHeaders, c.Request().Header.Get("Authorization"))
		f.lock.Unlock()

		return next(c)
	}
}

func (f *TicketingAPI) authorize(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")

		f.lock.Lock()
		valid := f.accessTokens[token]
		f.lock.Unlock()

		if !valid {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "token expired"})
		}

		return next(c)
	}
}

func (f *TicketingAPI) login(c echo.Context) error {
	var request loginBody
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.Password == "wrong" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
	}

	f.lock.Lock()
	credentials := f.issueLocked("")
	f.lock.Unlock()

	return c.JSON(http.StatusOK, tokenBody{
		AccessToken:  credentials.AccessToken,
		RefreshToken: credentials.RefreshToken,
	})
}

func (f *TicketingAPI) refresh(c echo.Context) error {
	var request refreshBody
	if err := c.Bind(&request); err != nil {
		return err
	}

	f.lock.Lock()
	f.refreshCalls++
	delay := f.RefreshDelay
	f.lock.Unlock()

	time.Sleep(delay)

	f.lock.Lock()
	defer f.lock.Unlock()

	if f.FailRefresh || !f.refreshTokens[request.RefreshToken] {
		return c.JSON(http.StatusUnauthorized, map[string]string{"message": "invalid refresh token"})
	}

	refreshToken := request.RefreshToken
	if f.RotateRefreshTokens {
		delete(f.refreshTokens, refreshToken)
		refreshToken = ""
	}
	credentials := f.issueLocked(refreshToken)

	fields := tokenBody{AccessToken: credentials.AccessToken}
	if f.RotateRefreshTokens {
		fields.RefreshToken = credentials.RefreshToken
	}

	if f.RefreshInData {
		return c.JSON(http.StatusOK, map[string]any{"data": fields})
	}
	return c.JSON(http.StatusOK, fields)
}

func (f *TicketingAPI) logout(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (f *TicketingAPI) profile(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"data": entity.Profile{ID: "1", Email: "fan@example.com", Name: "Fan", Membership: "GOLD"},
	})
}

func (f *TicketingAPI) events(c echo.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	return c.JSON(http.StatusOK, f.Events)
}

func (f *TicketingAPI) event(c echo.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, event := range f.Events {
		if event.ID.String() == c.Param("id") {
			return c.JSON(http.StatusOK, event)
		}
	}

	return c.JSON(http.StatusNotFound, map[string]string{"message": "event not found"})
}

func (f *TicketingAPI) schedules(c echo.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	return c.JSON(http.StatusOK, map[string]any{"data": f.Schedules[entity.ID(c.Param("id"))]})
}

func (f *TicketingAPI) tickets(c echo.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	return c.JSON(http.StatusOK, f.Tickets[entity.ID(c.Param("id"))])
}

func (f *TicketingAPI) seats(c echo.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	return c.JSON(http.StatusOK, f.Seats[entity.ID(c.Param("id"))])
}

func (f *TicketingAPI) createBooking(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}

	var request entity.BookingRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid booking"})
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	f.bookings = append(f.bookings, RecordedBooking{
		Body:           body,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})

	bookingID := entity.ID(fmt.Sprintf("booking-%d", len(f.bookings)))
	for _, item := range request.Items {
		f.IssuedTickets[bookingID] = append(f.IssuedTickets[bookingID], entity.IssuedTicket{
			ID:        entity.ID(fmt.Sprintf("%s-%s", bookingID, item.SeatID)),
			BookingID: bookingID,
			SeatID:    item.SeatID,
			QRCode:    fmt.Sprintf("QR:%s:%s", bookingID, item.SeatID),
			Status:    "PENDING_PAYMENT",
		})
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"id":       bookingID,
		"event_id": request.EventID,
		"status":   "PENDING",
		"items":    request.Items,
	})
}

func (f *TicketingAPI) booking(c echo.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	bookingID := entity.ID(c.Param("id"))
	if _, ok := f.IssuedTickets[bookingID]; !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "booking not found"})
	}

	return c.JSON(http.StatusOK, map[string]any{"id": bookingID, "status": "PENDING"})
}

func (f *TicketingAPI) bookingTickets(c echo.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	return c.JSON(http.StatusOK, f.IssuedTickets[entity.ID(c.Param("id"))])
}

func (f *TicketingAPI) confirmPayment(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}

	var request struct {
		BookingID entity.ID `json:"booking_id"`
	}
	_ = json.Unmarshal(body, &request)

	f.lock.Lock()
	defer f.lock.Unlock()

	paymentID := entity.ID(c.Param("id"))
	f.payments[paymentID] = body

	for i := range f.IssuedTickets[request.BookingID] {
		f.IssuedTickets[request.BookingID][i].Status = "VALID"
	}

	return c.JSON(http.StatusOK, map[string]any{"id": paymentID, "status": "CONFIRMED"})
}
