// Package app wires ticketbooth's components together for the CLI and for
// the wallet service.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"ticketbooth/config"
	dbLib "ticketbooth/db"
	"ticketbooth/entity"
	"ticketbooth/gateway"
	ticketboothHTTP "ticketbooth/http"
	"ticketbooth/pubsub"
	"ticketbooth/pubsub/bus"
	"ticketbooth/pubsub/event"
	"ticketbooth/session"
	"ticketbooth/tracing"
)

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

// NewSessionStore picks the credential store configured for this run. rdb is
// only used by the redis backend.
func NewSessionStore(cfg config.Config, rdb *redis.Client) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return session.NewMemoryStore(entity.Credentials{}), nil
	case config.SessionBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis session backend needs a redis client")
		}
		return session.NewRedisStore(rdb, cfg.SessionKey), nil
	default:
		path := cfg.SessionFile
		if path == "" {
			var err error
			path, err = session.DefaultFilePath()
			if err != nil {
				return nil, err
			}
		}
		return session.NewFileStore(path), nil
	}
}

func NewAPIClient(cfg config.Config, store session.Store, onUnauthorized func(ctx context.Context)) (*gateway.APIClient, error) {
	return gateway.NewAPIClient(gateway.APIClientConfig{
		BaseURL:    cfg.APIURL,
		RefreshURL: cfg.RefreshURL,
		HTTPClient: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: tracing.NewTransport(http.DefaultTransport),
		},
		OnUnauthorized: onUnauthorized,
	}, store)
}

// NewEventBus publishes to Redis Streams when rdb is set. Without Redis the
// events go to an in-process channel nobody listens to.
func NewEventBus(rdb *redis.Client) (*cqrs.EventBus, error) {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	var publisher message.Publisher
	if rdb != nil {
		var err error
		publisher, err = pubsub.NewRedisPublisher(rdb, watermillLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
	} else {
		publisher = gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	}

	return bus.NewEventBus(publisher)
}

// App is the wallet service: it follows booking events and serves the
// stored tickets over HTTP.
type App struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *ticketboothHTTP.Server
	traceProvider   *tracesdk.TracerProvider
}

func New(
	addr string,
	db *sqlx.DB,
	redisClient *redis.Client,
	ticketsService event.BookingTicketsService,
	traceProvider *tracesdk.TracerProvider,
) (App, error) {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	wallet := dbLib.NewWalletPostgresRepository(db)

	watermillRouter, err := pubsub.NewWatermillRouter(
		pubsub.NewEventProcessorConfig(redisClient, watermillLogger),
		event.NewHandler(ticketsService, wallet),
		watermillLogger,
	)
	if err != nil {
		return App{}, fmt.Errorf("failed to create watermill router: %w", err)
	}

	return App{
		db:              db,
		watermillRouter: watermillRouter,
		httpServer:      ticketboothHTTP.NewServer(addr, wallet),
		traceProvider:   traceProvider,
	}, nil
}

func (a App) Run(ctx context.Context) error {
	if err := dbLib.InitializeDatabaseSchema(a.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return tracing.Shutdown(context.WithoutCancel(ctx), a.traceProvider)
	})

	g.Go(func() error {
		return a.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		// not healthy before the router is consuming
		select {
		case <-a.watermillRouter.Running():
		case <-ctx.Done():
			return nil
		}

		return a.httpServer.Run(ctx)
	})

	return g.Wait()
}
