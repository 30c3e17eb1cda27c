// Package service publishes domain events to RabbitMQ.  Errors are logged
// and returned so callers can ignore them without interrupting the request.
package service

import (
    "context"
    "encoding/json"
    "log/slog"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/backend-scaffold/internal/queue"
)

// EventPublisher publishes audit events.
type EventPublisher interface {
    Publish(ctx context.Context, ev q.AuthEvent) error
}

// NopPublisher drops every event.  Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, q.AuthEvent) error { return nil }

// AMQPPublisher keeps one connection and channel open and redials lazily
// after a failure.
type AMQPPublisher struct {
    url string
    log *slog.Logger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

func NewAMQPPublisher(url string, log *slog.Logger) *AMQPPublisher {
    return &AMQPPublisher{url: url, log: log}
}

// Publish sends ev as a persistent JSON message to the audit queue.
func (p *AMQPPublisher) Publish(ctx context.Context, ev q.AuthEvent) error {
    if ev.At.IsZero() {
        ev.At = time.Now().UTC()
    }
    body, err := json.Marshal(ev)
    if err != nil {
        p.log.ErrorContext(ctx, "rabbitmq: marshal event failed", "err", err)
        return err
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        p.log.WarnContext(ctx, "rabbitmq: connect failed", "err", err)
        return err
    }
    err = ch.PublishWithContext(ctx,
        "",               // default exchange
        q.AuditQueueName, // routing key = queue name
        false,            // mandatory
        false,            // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    ev.At,
            Type:         ev.Type,
            Body:         body,
        })
    if err != nil {
        p.log.WarnContext(ctx, "rabbitmq: publish failed", "err", err, "type", ev.Type)
        p.reset()
        return err
    }
    return nil
}

// Close releases the connection.
func (p *AMQPPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}

// channel returns an open channel, dialing when needed.  p.mu must be held.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, err
    }
    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(q.AuditQueueName, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *AMQPPublisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.conn, p.ch = nil, nil
}
