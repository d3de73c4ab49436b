// Package order consumes order lifecycle events from the bus.
package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/cache"
	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/event"
	"github.com/Rockthor1106/restaurant-management-api/internal/messaging"
	"github.com/Rockthor1106/restaurant-management-api/internal/worker"
)

const instrumentationName = "github.com/Rockthor1106/restaurant-management-api/worker/order"

var workerTracer = otel.Tracer(instrumentationName)

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// Consumer keeps derived state in step with order events published by any
// API instance. Cached order snapshots are dropped on every event so that
// instances without the originating write do not serve stale reads.
type Consumer struct {
	cache    cache.Store
	logger   *zap.Logger
	consumed metric.Int64Counter
}

// NewConsumer constructs a Consumer.
func NewConsumer(store cache.Store, logger *zap.Logger) *Consumer {
	consumed, _ := otel.Meter(instrumentationName).
		Int64Counter("order_events.consumed", metric.WithDescription("Order events consumed by the worker"))
	return &Consumer{cache: store, logger: logger, consumed: consumed}
}

// NewEventHandler registers the consumer on the order events topic.
func NewEventHandler(store cache.Store, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: NewConsumer(store, logger).Handle,
	}
}

// Handle processes one envelope. Undecodable messages are logged and
// acknowledged since redelivery cannot fix them.
func (c *Consumer) Handle(ctx context.Context, msg messaging.Message) error {
	ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
		attribute.String("messaging.topic", msg.Topic),
		attribute.String("messaging.key", string(msg.Key)),
	))
	defer span.End()

	env, err := event.Decode(msg)
	if err != nil {
		c.logger.Error("dropping undecodable order event", zap.ByteString("key", msg.Key), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode error")
		return nil
	}
	span.SetAttributes(
		attribute.String("event.type", string(env.Type)),
		attribute.Int64("order.id", env.OrderID),
	)

	fields := []zap.Field{
		zap.String("event_id", env.ID),
		zap.String("type", string(env.Type)),
		zap.Int64("order_id", env.OrderID),
		zap.Int64("actor_id", env.ActorID),
		zap.Time("occurred_at", env.OccurredAt),
	}

	switch env.Type {
	case event.OrderCreated, event.OrderStatusChanged, event.OrderDeleted:
		var payload event.OrderPayload
		if err := json.Unmarshal(env.Payload, &payload); err == nil {
			fields = append(fields,
				zap.String("status", string(payload.Status)),
				zap.String("previous_status", string(payload.PreviousStatus)),
				zap.Int64("table_id", payload.TableID),
			)
		}
	case event.OrderItemAdded, event.OrderItemUpdated, event.OrderItemRemoved:
		var payload event.OrderItemPayload
		if err := json.Unmarshal(env.Payload, &payload); err == nil {
			fields = append(fields,
				zap.Int64("item_id", payload.ID),
				zap.String("product_name", payload.ProductName),
				zap.Int("quantity", payload.Quantity),
			)
		}
	default:
		c.logger.Warn("unknown order event type", fields...)
		c.count(ctx, env.Type, "unknown")
		return nil
	}

	if err := c.cache.Delete(ctx, cache.OrderKey(env.OrderID)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cache invalidation failed")
		c.count(ctx, env.Type, "failed")
		return err
	}

	c.logger.Info("order event processed", fields...)
	c.count(ctx, env.Type, "ok")

	return nil
}

func (c *Consumer) count(ctx context.Context, typ event.Type, outcome string) {
	c.consumed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", string(typ)),
		attribute.String("outcome", outcome),
	))
}
