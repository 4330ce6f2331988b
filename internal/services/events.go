package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"alfredoptarigan/resume-matcher/internal/models"
)

const (
	EventDocumentProcessed = "document.processed"
	EventDocumentFailed    = "document.failed"
)

// EventPublisher announces finished processing runs.
type EventPublisher interface {
	Publish(ctx context.Context, event models.DocumentEvent) error
	Close() error
}

type rabbitPublisher struct {
	conn     *amqp.Connection
	exchange string
	mu       sync.Mutex
	log      *slog.Logger
}

// NewEventPublisher connects to RabbitMQ and declares a durable topic
// exchange. An empty url yields a publisher that drops every event.
func NewEventPublisher(url, exchange string, log *slog.Logger) (EventPublisher, error) {
	if url == "" {
		return noopPublisher{}, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &rabbitPublisher{
		conn:     conn,
		exchange: exchange,
		log:      log.With("component", "events"),
	}, nil
}

// Publish implements EventPublisher. The routing key is the event type.
func (p *rabbitPublisher) Publish(_ context.Context, event models.DocumentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	err = ch.Publish(
		p.exchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: event.CorrelationID,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.log.Debug("event published", "type", event.Type, "kind", event.Kind, "id", event.ID)
	return nil
}

// Close implements EventPublisher.
func (p *rabbitPublisher) Close() error {
	return p.conn.Close()
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, models.DocumentEvent) error { return nil }

func (noopPublisher) Close() error { return nil }
