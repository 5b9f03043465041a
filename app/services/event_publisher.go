package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/amirphl/mailpiece/config"
	"github.com/amirphl/mailpiece/utils"
	"github.com/streadway/amqp"
)

// Domain event types published after commit
const (
	EventAudiencePurchased  = "audience.purchased"
	EventCampaignCreated    = "campaign.created"
	EventCampaignUpdated    = "campaign.updated"
	EventCampaignProduction = "campaign.in_production"
	EventConversionRecorded = "tracking.conversion_recorded"
)

// Event is the envelope written to the broker
type Event struct {
	Type       string         `json:"type"`
	CustomerID uint           `json:"customer_id,omitempty"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent stamps an event with the current time
func NewEvent(eventType string, customerID uint, payload map[string]any) Event {
	return Event{Type: eventType, CustomerID: customerID, Payload: payload, OccurredAt: utils.UTCNow()}
}

// EventPublisher emits domain events. Publishing is best effort; callers log failures.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// AMQPEventPublisher publishes JSON events to a durable queue
type AMQPEventPublisher struct {
	cfg *config.BrokerConfig

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPEventPublisher dials the broker and declares the event queue
func NewAMQPEventPublisher(cfg *config.BrokerConfig) (*AMQPEventPublisher, error) {
	p := &AMQPEventPublisher{cfg: cfg}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPEventPublisher) connect() error {
	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open broker channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		p.cfg.Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", p.cfg.Queue, err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

// Publish sends the event, reconnecting once if the connection dropped
func (p *AMQPEventPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	}

	if p.conn == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}

	if err := p.ch.Publish("", p.cfg.Queue, false, false, msg); err != nil {
		log.Printf("event publish failed, reconnecting: %v", err)
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
		if err := p.ch.Publish("", p.cfg.Queue, false, false, msg); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
		}
	}
	return nil
}

// Close releases the channel and connection
func (p *AMQPEventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *AMQPEventPublisher) closeLocked() error {
	var err error
	if p.ch != nil {
		err = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		p.conn = nil
	}
	return err
}

// NoopEventPublisher drops events. It is used when the broker is disabled.
type NoopEventPublisher struct{}

// NewNoopEventPublisher creates a publisher that discards events
func NewNoopEventPublisher() EventPublisher { return NoopEventPublisher{} }

// Publish discards the event
func (NoopEventPublisher) Publish(context.Context, Event) error { return nil }

// Close is a no-op
func (NoopEventPublisher) Close() error { return nil }

// RecordingEventPublisher keeps events in memory for tests
type RecordingEventPublisher struct {
	mu     sync.Mutex
	events []Event
}

// Publish records the event
func (r *RecordingEventPublisher) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Close is a no-op
func (r *RecordingEventPublisher) Close() error { return nil }

// Events returns a copy of the recorded events
func (r *RecordingEventPublisher) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
