package producer

import (
	"context"
	"encoding/json"
	"time"

	"warehouse-service/internal/service"

	"github.com/segmentio/kafka-go"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderFulfilled     = "order.fulfilled"
	EventOrderStatusChanged = "order.status_changed"
	EventStockAdjusted      = "inventory.adjusted"
	EventLowStock           = "inventory.low_stock"
)

const lowStockKey = "low_stock"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the JSON value of every message on the events topic.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// EventProducer implements service.EventBus on top of a single Kafka topic.
type EventProducer struct {
	writer  messageWriter
	timeout time.Duration
	now     func() time.Time
}

var _ service.EventBus = (*EventProducer)(nil)

func NewEventProducer(brokers []string, topic string) *EventProducer {
	return newEventProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	})
}

func newEventProducer(w messageWriter) *EventProducer {
	return &EventProducer{
		writer:  w,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

func (p *EventProducer) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	return p.publish(ctx, EventOrderCreated, e.OrderID.String(), e)
}

func (p *EventProducer) PublishOrderFulfilled(ctx context.Context, e service.OrderFulfilledEvent) error {
	return p.publish(ctx, EventOrderFulfilled, e.OrderID.String(), e)
}

func (p *EventProducer) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	return p.publish(ctx, EventOrderStatusChanged, e.OrderID.String(), e)
}

func (p *EventProducer) PublishStockAdjusted(ctx context.Context, e service.StockAdjustedEvent) error {
	return p.publish(ctx, EventStockAdjusted, e.InventoryID.String(), e)
}

func (p *EventProducer) PublishLowStock(ctx context.Context, e service.LowStockEvent) error {
	return p.publish(ctx, EventLowStock, lowStockKey, e)
}

func (p *EventProducer) publish(ctx context.Context, typ, key string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(Envelope{Type: typ, OccurredAt: p.now().UTC(), Payload: raw})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(typ)}},
	})
}

func (p *EventProducer) Close() error {
	return p.writer.Close()
}
