package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Dispatcher turns order events into inbox notifications. It is installed as
// the consumer handler of the notifier worker.
type Dispatcher struct {
	Store       Store
	Cache       Cache
	Logger      *zap.SugaredLogger
	ServiceName string
	Now         func() time.Time
}

func NewDispatcher(store Store, cache Cache, logger *zap.SugaredLogger, service string) *Dispatcher {
	return &Dispatcher{Store: store, Cache: cache, Logger: logger, ServiceName: service, Now: time.Now}
}

// HandleMessage returns an error only when a notification could not be
// stored; the consumer retries the message before moving past it. Malformed
// and unknown events are logged and skipped.
func (d *Dispatcher) HandleMessage(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		d.Logger.Warnw("drop malformed event", "topic", m.Topic, "offset", m.Offset, "error", err)
		return nil
	}

	// 2) dedup via Redis (event_id); the unique index stays authoritative
	dkey := fmt.Sprintf(redisx.KeyDedup, d.ServiceName, env.EventID)
	if _, seen, err := d.Cache.Get(ctx, dkey); err != nil {
		d.Logger.Warnw("dedup lookup failed", "event_id", env.EventID, "error", err)
	} else if seen {
		return nil
	}

	// 3) build notifications for the event type
	list, err := d.build(env)
	if err != nil {
		d.Logger.Warnw("drop undecodable payload", "event_id", env.EventID, "event_type", env.EventType, "error", err)
		return nil
	}

	// 4) insert, idempotent per (event_id, kind)
	for i := range list {
		n := list[i]
		n.ID = uuid.NewString()
		n.CreatedAt = d.Now()
		eventID := env.EventID
		n.SourceEventID = &eventID
		inserted, err := d.Store.Create(ctx, &n)
		if err != nil {
			d.Logger.Errorw("create notification failed",
				"event_id", env.EventID, "order_id", env.CorrelationID, "kind", *n.Kind, "error", err)
			return err
		}
		if !inserted {
			d.Logger.Debugw("notification already stored", "event_id", env.EventID, "kind", *n.Kind)
		}
	}

	if err := d.Cache.Set(ctx, dkey, "1", redisx.TTLDedup); err != nil {
		d.Logger.Warnw("dedup mark failed", "event_id", env.EventID, "error", err)
	}
	return nil
}

func (d *Dispatcher) build(env orders.Envelope) ([]Notification, error) {
	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return []Notification{ForOrderPlaced(p)}, nil
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.StatusChangedPayload](env.Payload)
		if err != nil {
			return nil, err
		}
		return ForStatusChange(p), nil
	}
	return nil, nil // ignore
}
