// Package event defines the domain events published after order changes commit.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/messaging"
)

// Type names an event.
type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	OrderDeleted       Type = "order.deleted"
	OrderItemAdded     Type = "order_item.added"
	OrderItemUpdated   Type = "order_item.updated"
	OrderItemRemoved   Type = "order_item.removed"
)

// Module provides the event publisher to Fx.
var Module = fx.Provide(NewPublisher)

// Envelope wraps every payload sent on the bus.
type Envelope struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	OrderID    int64           `json:"order_id"`
	ActorID    int64           `json:"actor_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// OrderPayload describes an order after the change.
type OrderPayload struct {
	ID             int64              `json:"id"`
	TableID        int64              `json:"table_id"`
	Status         entity.OrderStatus `json:"status"`
	PreviousStatus entity.OrderStatus `json:"previous_status,omitempty"`
	CreatedByID    int64              `json:"created_by_id"`
}

// OrderItemPayload describes an item line after the change.
type OrderItemPayload struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   *int64 `json:"product_id,omitempty"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

// NewOrderPayload builds the payload for order, recording previous when the
// status changed.
func NewOrderPayload(order *entity.Order, previous entity.OrderStatus) OrderPayload {
	return OrderPayload{
		ID:             order.ID,
		TableID:        order.TableID,
		Status:         order.Status,
		PreviousStatus: previous,
		CreatedByID:    order.CreatedByID,
	}
}

// NewOrderItemPayload builds the payload for item.
func NewOrderItemPayload(item *entity.OrderItem) OrderItemPayload {
	return OrderItemPayload{
		ID:          item.ID,
		OrderID:     item.OrderID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		UnitPrice:   item.UnitPrice.StringFixed(3),
		Quantity:    item.Quantity,
	}
}

// Decode unpacks an envelope from a bus message.
func Decode(msg messaging.Message) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode event envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("event envelope without type")
	}
	return env, nil
}

// Publisher sends envelopes on the configured messaging client. Publishing
// is best effort: failures are logged and never returned to the caller.
type Publisher struct {
	client  messaging.Client
	logger  *zap.Logger
	enabled bool
	now     func() time.Time
}

// NewPublisher wires a Publisher.
func NewPublisher(cfg config.Config, client messaging.Client, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:  client,
		logger:  logger,
		enabled: cfg.Messaging.Enabled,
		now:     time.Now,
	}
}

// Publish emits an event of type typ about orderID.
func (p *Publisher) Publish(ctx context.Context, typ Type, orderID, actorID int64, payload any) {
	if p == nil || !p.enabled || p.client == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("marshal event payload", zap.String("type", string(typ)), zap.Error(err))
		return
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       typ,
		OrderID:    orderID,
		ActorID:    actorID,
		OccurredAt: p.now().UTC(),
		Payload:    raw,
	}
	body, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("marshal event envelope", zap.String("type", string(typ)), zap.Error(err))
		return
	}

	// Keyed by order so a partitioned bus keeps per-order ordering.
	if err := p.client.Publish(ctx, []byte(fmt.Sprintf("order-%d", orderID)), body); err != nil {
		p.logger.Error("publish event",
			zap.String("type", string(typ)),
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
	}
}
