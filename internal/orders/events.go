package orders

import (
	"context"
	"encoding/json"
	"time"

	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID       string          `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	UserID        string          `json:"user_id"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

// StatusChangedPayload carries the before and after of one admin update.
type StatusChangedPayload struct {
	OrderID          string        `json:"order_id"`
	OrderNumber      string        `json:"order_number"`
	UserID           string        `json:"user_id"`
	OldStatus        Status        `json:"old_status"`
	NewStatus        Status        `json:"new_status"`
	OldPaymentStatus PaymentStatus `json:"old_payment_status"`
	NewPaymentStatus PaymentStatus `json:"new_payment_status"`
	TrackingNumber   *string       `json:"tracking_number,omitempty"`
	ChangedAt        time.Time     `json:"changed_at"`
}

func NewStatusChanged(oldStatus Status, oldPayment PaymentStatus, after *Order, at time.Time) StatusChangedPayload {
	return StatusChangedPayload{
		OrderID:          after.ID,
		OrderNumber:      after.OrderNumber,
		UserID:           after.UserID,
		OldStatus:        oldStatus,
		NewStatus:        after.Status,
		OldPaymentStatus: oldPayment,
		NewPaymentStatus: after.PaymentStatus,
		TrackingNumber:   after.TrackingNumber,
		ChangedAt:        at,
	}
}

// Publisher is the producer side of one topic.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// KafkaEvents publishes order events, one topic per event type.
type KafkaEvents struct {
	Placed   Publisher
	Changed  Publisher
	Producer string
}

func (k *KafkaEvents) OrderPlaced(ctx context.Context, p OrderPlacedPayload) error {
	return k.publish(ctx, k.Placed, EventOrderPlaced, p.OrderID, p)
}

func (k *KafkaEvents) StatusChanged(ctx context.Context, p StatusChangedPayload) error {
	return k.publish(ctx, k.Changed, EventOrderStatusChanged, p.OrderID, p)
}

func (k *KafkaEvents) publish(ctx context.Context, to Publisher, eventType, orderID string, payload any) error {
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      k.Producer,
		TraceID:       traceID(ctx),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	return to.Publish(ctx, PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

type traceKey struct{}

// WithTraceID tags events published under ctx with the inbound request id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func traceID(ctx context.Context) string {
	s, _ := ctx.Value(traceKey{}).(string)
	return s
}
