package pubsub

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/lithammer/shortuuid/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"ticketbooth/metrics"
	"ticketbooth/pubsub/bus"
)

func useMiddlewares(router *message.Router, watermillLogger watermill.LoggerAdapter) {
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(propagateCorrelationID)

	router.AddMiddleware(middleware.Retry{
		MaxRetries:      5,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
		Multiplier:      2,
		Logger:          watermillLogger,
	}.Middleware)

	router.AddMiddleware(traceWalletSync)
	router.AddMiddleware(logWalletSync)
	router.AddMiddleware(measureWalletSync)
}

// walletEvent is the part of BookingPlaced and PaymentConfirmed every wallet
// handler keys on.
type walletEvent struct {
	BookingID string `json:"booking_id"`
}

func bookingIDOf(msg *message.Message) string {
	var event walletEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return ""
	}
	return event.BookingID
}

func eventNameOf(msg *message.Message) string {
	return bus.Marshaler().NameFromMessage(msg)
}

func traceWalletSync(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := otel.GetTextMapPropagator().Extract(msg.Context(), propagation.MapCarrier(msg.Metadata))
		handler := message.HandlerNameFromCtx(msg.Context())

		ctx, span := otel.Tracer("").Start(ctx, "wallet "+handler)
		defer span.End()
		span.SetAttributes(
			attribute.String("topic", message.SubscribeTopicFromCtx(msg.Context())),
			attribute.String("handler", handler),
			attribute.String("event_name", eventNameOf(msg)),
			attribute.String("booking_id", bookingIDOf(msg)),
		)
		msg.SetContext(ctx)

		msgs, err := next(msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return msgs, err
	}
}

func logWalletSync(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		logger := log.FromContext(msg.Context()).WithFields(logrus.Fields{
			"message_id": msg.UUID,
			"event_name": eventNameOf(msg),
			"booking_id": bookingIDOf(msg),
			"handler":    message.HandlerNameFromCtx(msg.Context()),
			"trace_id":   trace.SpanFromContext(msg.Context()).SpanContext().TraceID().String(),
		})
		logger.Debug("Syncing wallet")

		msgs, err := next(msg)
		if err != nil {
			logger.WithError(err).Error("Wallet sync failed")
		}
		return msgs, err
	}
}

func measureWalletSync(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) (msgs []*message.Message, err error) {
		labels := prometheus.Labels{
			"topic":   message.SubscribeTopicFromCtx(msg.Context()),
			"handler": message.HandlerNameFromCtx(msg.Context()),
		}

		start := time.Now()
		defer func() {
			metrics.MessagesProcessed.With(labels).Inc()
			metrics.MessagesProcessingDuration.With(labels).Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.MessagesProcessingFailed.With(labels).Inc()
			}
		}()

		return next(msg)
	}
}

func propagateCorrelationID(next message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		correlationID := msg.Metadata.Get("correlation_id")
		if correlationID == "" {
			correlationID = "wallet_" + shortuuid.New()
		}

		ctx := log.ContextWithCorrelationID(msg.Context(), correlationID)
		ctx = log.ToContext(ctx, logrus.WithFields(logrus.Fields{"correlation_id": correlationID}))
		msg.SetContext(ctx)

		return next(msg)
	}
}
