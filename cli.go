package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/lithammer/shortuuid/v3"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"ticketbooth/app"
	"ticketbooth/checkout"
	"ticketbooth/config"
	"ticketbooth/db"
	"ticketbooth/entity"
	"ticketbooth/gateway"
	"ticketbooth/selection"
	"ticketbooth/tracing"
)

const loginHint = "your session has expired, run `ticketbooth login` to sign in again"

// session bundles what a single command needs to talk to the ticketing API.
type session struct {
	cfg       config.Config
	redis     *redis.Client
	api       *gateway.APIClient
	ticketing gateway.TicketingClient
}

func (s *session) Close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, err
	}
	logrus.SetLevel(cfg.Level())

	s := &session{cfg: cfg}
	if cfg.RedisAddr != "" {
		s.redis = app.NewRedisClient(cfg.RedisAddr)
	}

	store, err := app.NewSessionStore(cfg, s.redis)
	if err != nil {
		s.Close()
		return nil, err
	}

	// main reports the expired session through describeError
	s.api, err = app.NewAPIClient(cfg, store, nil)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.ticketing = gateway.NewTicketingClient(s.api)

	return s, nil
}

// withSession runs action with a request context that carries a fresh
// correlation id.
func withSession(action func(ctx context.Context, c *cli.Context, s *session) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer s.Close()

		correlationID := "cli_" + shortuuid.New()
		ctx := log.ContextWithCorrelationID(c.Context, correlationID)
		ctx = log.ToContext(ctx, logrus.WithFields(logrus.Fields{"correlation_id": correlationID}))

		return action(ctx, c, s)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "ticketbooth",
		Usage: "Book event tickets from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "file with environment variables",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "sign in and store the session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"TICKETBOOTH_PASSWORD"}},
				},
				Action: withSession(func(ctx context.Context, c *cli.Context, s *session) error {
					if _, err := s.api.Login(ctx, c.String("email"), c.String("password")); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "signed in as", c.String("email"))
					return nil
				}),
			},
			{
				Name:  "logout",
				Usage: "sign out and forget the session",
				Action: withSession(func(ctx context.Context, c *cli.Context, s *session) error {
					if err := s.api.Logout(ctx); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "signed out")
					return nil
				}),
			},
			{
				Name:   "whoami",
				Usage:  "show the signed-in profile",
				Action: withSession(whoami),
			},
			{
				Name:   "events",
				Usage:  "list events",
				Action: withSession(listEvents),
			},
			{
				Name:  "seats",
				Usage: "show the seat map of an event schedule",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "event", Required: true},
					&cli.StringFlag{Name: "schedule", Required: true},
				},
				Action: withSession(listSeats),
			},
			{
				Name:      "book",
				Usage:     "book seats of an event schedule",
				ArgsUsage: "<seat_id>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "event", Required: true},
					&cli.StringFlag{Name: "schedule", Required: true},
					&cli.IntFlag{Name: "quantity", Usage: "number of tickets, defaults to the number of seats given"},
				},
				Action: withSession(book),
			},
			{
				Name:  "pay",
				Usage: "confirm the payment of a booking",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "booking", Required: true},
					&cli.StringFlag{Name: "payment", Required: true},
					&cli.StringFlag{Name: "payload", Usage: "payment provider result as JSON"},
				},
				Action: withSession(pay),
			},
			{
				Name:      "tickets",
				Usage:     "show the tickets and QR codes of a booking",
				ArgsUsage: "<booking_id>",
				Action:    withSession(bookingTickets),
			},
			{
				Name:   "serve",
				Usage:  "run the ticket wallet service",
				Action: withSession(serve),
			},
		},
	}
}

func whoami(ctx context.Context, c *cli.Context, s *session) error {
	profile, err := s.ticketing.Profile(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s <%s>\n", profile.Name, profile.Email)
	if profile.Membership != "" {
		fmt.Fprintf(c.App.Writer, "membership: %s\n", profile.Membership)
	}

	credentials, err := s.api.Credentials(ctx)
	if err != nil {
		return err
	}
	if expiry, ok := credentials.AccessExpiry(); ok {
		fmt.Fprintf(c.App.Writer, "access token expires: %s\n", expiry.Local().Format(time.RFC1123))
	}

	return nil
}

func listEvents(ctx context.Context, c *cli.Context, s *session) error {
	events, err := s.ticketing.Events(ctx)
	if err != nil {
		return err
	}

	for _, event := range events {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", event.ID, event.Title, event.Venue)
	}

	return nil
}

func listSeats(ctx context.Context, c *cli.Context, s *session) error {
	tickets, err := s.ticketing.Tickets(ctx, entity.ID(c.String("event")))
	if err != nil {
		return err
	}
	seats, err := s.ticketing.Seats(ctx, entity.ID(c.String("schedule")))
	if err != nil {
		return err
	}

	for _, seat := range seats {
		ticket := "-"
		if resolution := selection.ResolveTicket(seat, tickets); resolution.Resolved {
			ticket = resolution.TicketID.String()
		}
		fmt.Fprintf(c.App.Writer, "%s\t%s\tzone %s\t%s\t%s\n", seat.ID, seat.SeatNumber, seat.ZoneID, seat.Status, ticket)
	}

	return nil
}

func book(ctx context.Context, c *cli.Context, s *session) error {
	seatIDs := lo.Map(c.Args().Slice(), func(id string, _ int) entity.ID { return entity.ID(id) })
	if len(seatIDs) == 0 {
		return errors.New("give at least one seat id")
	}

	quantity := c.Int("quantity")
	if quantity == 0 {
		quantity = len(seatIDs)
	}

	eventID := entity.ID(c.String("event"))
	tickets, err := s.ticketing.Tickets(ctx, eventID)
	if err != nil {
		return err
	}
	seats, err := s.ticketing.Seats(ctx, entity.ID(c.String("schedule")))
	if err != nil {
		return err
	}

	controller, err := selection.NewController(eventID, quantity, tickets, s.ticketing)
	if err != nil {
		return err
	}
	controller.SetSchedule(entity.ID(c.String("schedule")))

	for _, id := range seatIDs {
		seat, ok := lo.Find(seats, func(seat entity.Seat) bool { return seat.ID == id })
		if !ok {
			return fmt.Errorf("seat %s is not part of schedule %s", id, c.String("schedule"))
		}
		if seat.Booked() {
			fmt.Fprintf(c.App.ErrWriter, "seat %s is already booked, skipping\n", id)
		}
		controller.Toggle(seat)
	}

	eventBus, err := app.NewEventBus(s.redis)
	if err != nil {
		return err
	}

	booking, err := checkout.NewService(s.ticketing, eventBus).Book(ctx, controller)
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, booking)
}

func pay(ctx context.Context, c *cli.Context, s *session) error {
	var payload json.RawMessage
	if raw := c.String("payload"); raw != "" {
		if !json.Valid([]byte(raw)) {
			return errors.New("payload is not valid JSON")
		}
		payload = json.RawMessage(raw)
	}

	eventBus, err := app.NewEventBus(s.redis)
	if err != nil {
		return err
	}

	result, err := checkout.NewService(s.ticketing, eventBus).Pay(
		ctx,
		entity.ID(c.String("booking")),
		entity.ID(c.String("payment")),
		payload,
	)
	if err != nil {
		return err
	}

	return printJSON(c.App.Writer, result)
}

func bookingTickets(ctx context.Context, c *cli.Context, s *session) error {
	bookingID := c.Args().First()
	if bookingID == "" {
		return errors.New("give a booking id")
	}

	tickets, err := s.ticketing.BookingTickets(ctx, entity.ID(bookingID))
	if err != nil {
		return err
	}

	for _, ticket := range tickets {
		fmt.Fprintf(c.App.Writer, "%s\tseat %s\t%s\t%s\n", ticket.ID, ticket.SeatID, ticket.Status, ticket.QRCode)
	}

	return nil
}

func serve(ctx context.Context, _ *cli.Context, s *session) error {
	if err := s.cfg.ServeRequirements(); err != nil {
		return err
	}

	traceProvider, err := tracing.ConfigureTraceProvider(s.cfg.JaegerEndpoint)
	if err != nil {
		return err
	}

	dbconn, err := db.Open(s.cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer dbconn.Close()

	svc, err := app.New(s.cfg.HTTPAddr, dbconn, s.redis, s.ticketing, traceProvider)
	if err != nil {
		return err
	}

	return svc.Run(ctx)
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}

	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(out))
	return err
}

// describeError turns API failures into something a person can act on.
func describeError(err error) string {
	var apiErr *entity.APIError
	var networkErr *entity.NetworkError

	switch {
	case errors.Is(err, entity.ErrUnauthorized):
		return loginHint
	case errors.As(err, &apiErr):
		return fmt.Sprintf("the ticketing API answered %d: %s", apiErr.Status, apiErr.Message())
	case errors.As(err, &networkErr):
		return fmt.Sprintf("could not reach the ticketing API: %s", networkErr.Err)
	default:
		return err.Error()
	}
}
