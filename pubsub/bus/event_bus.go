package bus

import (
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
)

const topicPrefix = "ticketbooth.events."

func NewEventBus(pub message.Publisher) (*cqrs.EventBus, error) {
	return cqrs.NewEventBusWithConfig(pub, cqrs.EventBusConfig{
		GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
			return Topic(params.EventName), nil
		},
		Marshaler: Marshaler(),
	})
}

// Topic is the Redis stream that carries events called eventName.
func Topic(eventName string) string {
	return topicPrefix + eventName
}

func Marshaler() cqrs.CommandEventMarshaler {
	return cqrs.JSONMarshaler{
		GenerateName: cqrs.StructName,
	}
}
