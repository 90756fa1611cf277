package queue

import (
    "context"
    "fmt"

    "github.com/iliyamo/table-reservation/internal/config"
)

// Message is anything with a partition key that marshals to JSON.
type Message interface {
    Key() string
}

// Publisher delivers events to a named topic (a durable queue on RabbitMQ,
// a topic on Kafka).  Callers publish after their transaction commits and
// treat a failure as non-fatal.
type Publisher interface {
    Publish(ctx context.Context, topic string, msg Message) error
    Close() error
}

// NopPublisher drops every event.  It is used when EVENTS_BROKER=none.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Message) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

// NewPublisher builds the publisher selected by cfg.Broker.
func NewPublisher(cfg config.EventsConfig) (Publisher, error) {
    switch cfg.Broker {
    case config.BrokerAMQP:
        return NewAMQPPublisher(cfg.AMQPURL), nil
    case config.BrokerKafka:
        if len(cfg.KafkaBrokers) == 0 {
            return nil, fmt.Errorf("queue: kafka broker list is empty")
        }
        return NewKafkaPublisher(cfg.KafkaBrokers), nil
    case config.BrokerNone, "":
        return NopPublisher{}, nil
    }
    return nil, fmt.Errorf("queue: unknown broker %q", cfg.Broker)
}
