package queue

import (
    "context"
    "encoding/json"
    "fmt"

    "github.com/segmentio/kafka-go"
)

// KafkaPublisher writes JSON events to Kafka.  A single writer serves every
// topic; the topic travels on each message.
type KafkaPublisher struct {
    Writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
    return &KafkaPublisher{Writer: &kafka.Writer{
        Addr:                   kafka.TCP(brokers...),
        Balancer:               &kafka.Hash{},
        RequiredAcks:           kafka.RequireOne,
        AllowAutoTopicCreation: true,
    }}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, msg Message) error {
    payload, err := json.Marshal(msg)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    return p.Writer.WriteMessages(ctx, kafka.Message{
        Topic: topic,
        Key:   []byte(msg.Key()),
        Value: payload,
    })
}

func (p *KafkaPublisher) Close() error { return p.Writer.Close() }
