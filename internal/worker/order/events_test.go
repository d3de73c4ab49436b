package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/cache"
	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/event"
	"github.com/Rockthor1106/restaurant-management-api/internal/messaging"
)

type storeMock struct {
	mock.Mock
}

func (m *storeMock) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	return nil, args.Error(1)
}

func (m *storeMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *storeMock) Delete(ctx context.Context, keys ...string) error {
	args := []any{ctx}
	for _, k := range keys {
		args = append(args, k)
	}
	return m.Called(args...).Error(0)
}

func envelope(t *testing.T, typ event.Type, orderID int64, payload any) messaging.Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	value, err := json.Marshal(event.Envelope{
		ID:         "evt-1",
		Type:       typ,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	})
	require.NoError(t, err)
	return messaging.Message{Topic: "restaurant.orders", Key: []byte("order-7"), Value: value}
}

func TestStatusChangeInvalidatesCachedOrder(t *testing.T) {
	store := &storeMock{}
	store.On("Delete", mock.Anything, cache.OrderKey(7)).Return(nil).Once()
	consumer := NewConsumer(store, zap.NewNop())

	msg := envelope(t, event.OrderStatusChanged, 7, event.OrderPayload{
		ID:             7,
		TableID:        3,
		Status:         entity.OrderStatusReady,
		PreviousStatus: entity.OrderStatusInPreparation,
	})

	require.NoError(t, consumer.Handle(context.Background(), msg))
	store.AssertExpectations(t)
}

func TestItemEventsInvalidateTheirOrder(t *testing.T) {
	store := &storeMock{}
	store.On("Delete", mock.Anything, cache.OrderKey(7)).Return(nil).Once()
	consumer := NewConsumer(store, zap.NewNop())

	msg := envelope(t, event.OrderItemAdded, 7, event.OrderItemPayload{ID: 1, OrderID: 7, ProductName: "Chuleta", UnitPrice: "10000.000", Quantity: 4})

	require.NoError(t, consumer.Handle(context.Background(), msg))
	store.AssertExpectations(t)
}

func TestUndecodableMessagesAreAcknowledged(t *testing.T) {
	store := &storeMock{}
	consumer := NewConsumer(store, zap.NewNop())

	err := consumer.Handle(context.Background(), messaging.Message{Topic: "restaurant.orders", Value: []byte("{not json")})
	assert.NoError(t, err)

	err = consumer.Handle(context.Background(), messaging.Message{Topic: "restaurant.orders", Value: []byte(`{"order_id":7}`)})
	assert.NoError(t, err)

	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUnknownTypesAreSkipped(t *testing.T) {
	store := &storeMock{}
	consumer := NewConsumer(store, zap.NewNop())

	require.NoError(t, consumer.Handle(context.Background(), envelope(t, event.Type("table.renamed"), 7, map[string]any{})))
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCacheFailureIsRetried(t *testing.T) {
	store := &storeMock{}
	boom := errors.New("redis down")
	store.On("Delete", mock.Anything, cache.OrderKey(7)).Return(boom)
	consumer := NewConsumer(store, zap.NewNop())

	err := consumer.Handle(context.Background(), envelope(t, event.OrderDeleted, 7, event.OrderPayload{ID: 7}))
	assert.ErrorIs(t, err, boom)
}

func TestEventHandlerListensOnConfiguredTopic(t *testing.T) {
	cfg := config.Config{Messaging: config.Messaging{Kafka: config.Kafka{Topic: "restaurant.orders"}}}
	reg := NewEventHandler(cache.NewNoop(), zap.NewNop(), cfg)

	assert.Equal(t, "restaurant.orders", reg.Topic)
	assert.NotNil(t, reg.Handler)
}
