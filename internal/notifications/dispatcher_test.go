package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func message(t *testing.T, eventID, eventType string, payload any) kafkago.Message {
	t.Helper()
	return kafkago.Message{
		Topic: orders.TopicOrderStatusChanged,
		Value: kafkax.MustMarshal(orders.Envelope{
			EventID:      eventID,
			EventType:    eventType,
			EventVersion: 1,
			OccurredAt:   time.Now().UTC(),
			Payload:      kafkax.MustMarshal(payload),
		}),
	}
}

func newTestDispatcher(store *memStore, cache *memCache) *Dispatcher {
	return NewDispatcher(store, cache, zap.NewNop().Sugar(), "notifier")
}

func TestDispatcher_ApproveScenario(t *testing.T) {
	store, cache := newMemStore(), newMemCache()
	d := newTestDispatcher(store, cache)

	p := changed(orders.StatusPendingPayment, orders.StatusProcessing, orders.PaymentPending, orders.PaymentCompleted)
	require.NoError(t, d.HandleMessage(context.Background(), message(t, "ev-1", orders.EventOrderStatusChanged, p)))

	rows := store.all()
	require.Len(t, rows, 1)
	assert.Equal(t, "Payment Confirmed", rows[0].Title)
	assert.Equal(t, TypePayment, rows[0].Type)
	assert.Equal(t, "u1", rows[0].UserID)
	assert.False(t, rows[0].IsRead)
	assert.Equal(t, "ev-1", *rows[0].SourceEventID)
	assert.Contains(t, cache.data, "dedup:notifier:ev-1")
}

func TestDispatcher_RedeliveryDoesNotDuplicate(t *testing.T) {
	store, cache := newMemStore(), newMemCache()
	d := newTestDispatcher(store, cache)
	p := changed(orders.StatusProcessing, orders.StatusShipped, orders.PaymentCompleted, orders.PaymentCompleted)
	m := message(t, "ev-2", orders.EventOrderStatusChanged, p)

	require.NoError(t, d.HandleMessage(context.Background(), m))
	require.NoError(t, d.HandleMessage(context.Background(), m))

	// cache lost: the unique (event, kind) guard still holds
	cache.data = map[string]string{}
	require.NoError(t, d.HandleMessage(context.Background(), m))

	assert.Len(t, store.all(), 1)
}

func TestDispatcher_OrderPlaced(t *testing.T) {
	store := newMemStore()
	d := newTestDispatcher(store, newMemCache())

	m := message(t, "ev-3", orders.EventOrderPlaced, orders.OrderPlacedPayload{OrderID: "o3", OrderNumber: "ORD-3-AAAAAAA", UserID: "u3"})
	require.NoError(t, d.HandleMessage(context.Background(), m))

	rows := store.all()
	require.Len(t, rows, 1)
	assert.Equal(t, "Order Placed", rows[0].Title)
	assert.Equal(t, "/account/orders/o3", *rows[0].Link)
}

func TestDispatcher_SkipsJunk(t *testing.T) {
	store := newMemStore()
	d := newTestDispatcher(store, newMemCache())

	assert.NoError(t, d.HandleMessage(context.Background(), kafkago.Message{Value: []byte("not json")}))
	assert.NoError(t, d.HandleMessage(context.Background(), message(t, "ev-4", "SomethingElse", map[string]string{})))
	assert.Empty(t, store.all())
}

func TestDispatcher_StoreFailureIsReportedForRetry(t *testing.T) {
	store, cache := newMemStore(), newMemCache()
	store.failing = errors.New("db down")
	d := newTestDispatcher(store, cache)
	p := changed(orders.StatusShipped, orders.StatusDelivered, orders.PaymentCompleted, orders.PaymentCompleted)

	err := d.HandleMessage(context.Background(), message(t, "ev-5", orders.EventOrderStatusChanged, p))
	require.Error(t, err)
	assert.NotContains(t, cache.data, "dedup:notifier:ev-5")

	store.failing = nil
	require.NoError(t, d.HandleMessage(context.Background(), message(t, "ev-5", orders.EventOrderStatusChanged, p)))
	assert.Len(t, store.all(), 1)
}
