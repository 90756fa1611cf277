package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// AuditConsumer reads reservation events from a durable queue and appends
// one line per event to an audit log file.
type AuditConsumer struct {
    URL     string
    Queue   string
    LogPath string

    mu sync.Mutex // serializes writes to LogPath
}

func NewAuditConsumer(url, queue, logPath string) *AuditConsumer {
    return &AuditConsumer{URL: url, Queue: queue, LogPath: logPath}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// failures never end the loop: dial errors back off from 1s doubling up to
// 30s, and a closed delivery channel triggers a reconnect.
func (c *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            slog.Warn("audit-consumer: dial failed", "err", err, "retry_in", backoff.String())
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        slog.Warn("audit-consumer: consume loop ended; reconnecting", "err", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        slog.Warn("audit-consumer: set QoS failed", "err", err)
    }
    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := c.Handle(d.Body); err != nil {
            slog.Error("audit-consumer: handle message failed", "err", err)
            _ = d.Nack(false, false) // do not requeue poison messages
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

// Handle decodes one reservation event and appends its audit line.
func (c *AuditConsumer) Handle(body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("event without type")
    }

    c.mu.Lock()
    defer c.mu.Unlock()

    if dir := filepath.Dir(c.LogPath); dir != "." {
        if err := os.MkdirAll(dir, 0o755); err != nil {
            return fmt.Errorf("mkdir %s: %w", dir, err)
        }
    }
    f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatAuditLine renders ev as a single newline-terminated log line.
func FormatAuditLine(ev ReservationEvent) string {
    if ev.Type == EventReservationOverdue {
        return fmt.Sprintf("[%s] %s | affected=%d | event_id=%s\n",
            ev.OccurredAt, ev.Type, ev.Affected, ev.EventID)
    }
    return fmt.Sprintf("[%s] %s | reservation_id=%d | user_id=%d | store_id=%d | status=%s | time=%s | event_id=%s\n",
        ev.OccurredAt, ev.Type, ev.ReservationID, ev.UserID, ev.StoreID, ev.Status, ev.ReservationTime, ev.EventID)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
