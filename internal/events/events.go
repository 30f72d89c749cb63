// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/eel-studio/storefront/internal/domain/order"
)

// Event types.
const (
	TypeOrderSubmitted     = "order.submitted"
	TypeOrderStatusChanged = "order.status_changed"
)

// Event is the message body. The Kafka key is the order id.
type Event struct {
	Type           string       `json:"type"`
	OrderID        string       `json:"order_id"`
	BuyerID        string       `json:"user_id,omitempty"`
	Status         order.Status `json:"status"`
	PreviousStatus order.Status `json:"previous_status,omitempty"`
	TotalPrice     int64        `json:"total_price,omitempty"`
	OccurredAt     time.Time    `json:"occurred_at"`
}

// OrderSubmitted builds the event for a freshly accepted order.
func OrderSubmitted(o order.Order) Event {
	return Event{
		Type:       TypeOrderSubmitted,
		OrderID:    o.ID,
		BuyerID:    o.BuyerID,
		Status:     o.Status,
		TotalPrice: o.TotalPrice,
		OccurredAt: time.Now().UTC(),
	}
}

// StatusChanged builds the event for an operator status update.
func StatusChanged(o order.Order, previous order.Status) Event {
	return Event{
		Type:           TypeOrderStatusChanged,
		OrderID:        o.ID,
		BuyerID:        o.BuyerID,
		Status:         o.Status,
		PreviousStatus: previous,
		TotalPrice:     o.TotalPrice,
		OccurredAt:     time.Now().UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a single topic.
type KafkaPublisher struct {
	w     messageWriter
	topic string
}

// KafkaConfig configures the writer.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// NewKafkaPublisher builds a synchronous writer that waits for the partition leader.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{w: w, topic: cfg.Topic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: data,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s to %s: %w", ev.Type, p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
