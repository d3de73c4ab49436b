package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/messaging"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Publish(ctx context.Context, key []byte, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *mockClient) Consume(ctx context.Context, handler messaging.Handler) error {
	return nil
}

func (m *mockClient) Topic() string { return "restaurant.orders" }

func enabledConfig() config.Config {
	return config.Config{Messaging: config.Messaging{Enabled: true}}
}

func TestPublishWrapsPayloadInEnvelope(t *testing.T) {
	client := new(mockClient)
	var body []byte
	client.On("Publish", mock.Anything, []byte("order-9"), mock.Anything).
		Run(func(args mock.Arguments) { body = args.Get(2).([]byte) }).
		Return(nil).Once()

	p := NewPublisher(enabledConfig(), client, zap.NewNop())
	order := &entity.Order{ID: 9, TableID: 3, Status: entity.OrderStatusReady, CreatedByID: 4}
	p.Publish(context.Background(), OrderStatusChanged, order.ID, 4, NewOrderPayload(order, entity.OrderStatusInPreparation))

	client.AssertExpectations(t)

	env, err := Decode(messaging.Message{Value: body})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusChanged, env.Type)
	assert.Equal(t, int64(9), env.OrderID)
	assert.NotEmpty(t, env.ID)

	var payload OrderPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, entity.OrderStatusReady, payload.Status)
	assert.Equal(t, entity.OrderStatusInPreparation, payload.PreviousStatus)
}

func TestPublishSwallowsClientErrors(t *testing.T) {
	client := new(mockClient)
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	p := NewPublisher(enabledConfig(), client, zap.NewNop())
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), OrderCreated, 1, 1, OrderPayload{ID: 1})
	})
	client.AssertExpectations(t)
}

func TestPublishDisabled(t *testing.T) {
	client := new(mockClient)
	p := NewPublisher(config.Config{}, client, zap.NewNop())

	p.Publish(context.Background(), OrderCreated, 1, 1, OrderPayload{ID: 1})
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestItemPayloadFormatsPrice(t *testing.T) {
	item := &entity.OrderItem{ID: 1, OrderID: 2, ProductName: "Soup", UnitPrice: decimal.RequireFromString("4.5"), Quantity: 2}
	assert.Equal(t, "4.500", NewOrderItemPayload(item).UnitPrice)
}

func TestDecodeRejectsUntypedEnvelope(t *testing.T) {
	_, err := Decode(messaging.Message{Value: []byte(`{"id":"x"}`)})
	assert.Error(t, err)

	_, err = Decode(messaging.Message{Value: []byte(`not json`)})
	assert.Error(t, err)
}
