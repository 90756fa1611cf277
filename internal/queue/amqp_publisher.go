package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes JSON messages to durable RabbitMQ queues through
// the default exchange.  The connection is dialled lazily and re-dialled
// after the broker drops it.
type AMQPPublisher struct {
    url string

    mu       sync.Mutex
    conn     *amqp.Connection
    ch       *amqp.Channel
    declared map[string]bool
}

func NewAMQPPublisher(url string) *AMQPPublisher {
    return &AMQPPublisher{url: url, declared: map[string]bool{}}
}

// channel returns an open channel, dialling when needed.  Caller holds mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    if p.conn == nil || p.conn.IsClosed() {
        conn, err := amqp.Dial(p.url)
        if err != nil {
            return nil, fmt.Errorf("rabbitmq dial: %w", err)
        }
        p.conn = conn
    }
    ch, err := p.conn.Channel()
    if err != nil {
        return nil, fmt.Errorf("rabbitmq channel: %w", err)
    }
    p.ch = ch
    p.declared = map[string]bool{}
    return ch, nil
}

// Publish declares the queue on first use (durable, idempotent) and sends
// msg as a persistent message routed by queue name.
func (p *AMQPPublisher) Publish(ctx context.Context, topic string, msg Message) error {
    body, err := json.Marshal(msg)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        return err
    }
    if !p.declared[topic] {
        if _, err := ch.QueueDeclare(
            topic, // name
            true,  // durable
            false, // autoDelete
            false, // exclusive
            false, // noWait
            nil,   // args
        ); err != nil {
            return fmt.Errorf("queue declare %s: %w", topic, err)
        }
        p.declared[topic] = true
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    messageID(msg),
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", topic, false, false, pub); err != nil {
        return fmt.Errorf("publish %s: %w", topic, err)
    }
    return nil
}

func (p *AMQPPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        err := p.conn.Close()
        p.conn = nil
        return err
    }
    return nil
}

func messageID(msg Message) string {
    switch m := msg.(type) {
    case ReservationEvent:
        return m.EventID
    case ReviewEvent:
        return m.EventID
    }
    return ""
}
