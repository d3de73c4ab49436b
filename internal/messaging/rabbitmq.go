package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/config"
)

const rabbitPublishTimeout = 10 * time.Second

// rabbitClient implements the Client on a RabbitMQ topic exchange. The
// configured topic doubles as the routing key and as Message.Topic on
// consumption, so worker registrations are shared with the Kafka driver.
type rabbitClient struct {
	url      string
	exchange string
	queue    string
	topic    string
	prefetch int
	attempts int
	logger   *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	publish *amqp.Channel
}

func newRabbitClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	client := &rabbitClient{
		url:      cfg.Messaging.RabbitMQ.URL,
		exchange: cfg.Messaging.RabbitMQ.Exchange,
		queue:    cfg.Messaging.RabbitMQ.Queue,
		topic:    cfg.Messaging.Kafka.Topic,
		prefetch: cfg.Messaging.Workers.Concurrency,
		attempts: cfg.Messaging.MaxAttempts,
		logger:   logger,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			client.mu.Lock()
			defer client.mu.Unlock()
			return client.connectLocked()
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("closing rabbitmq client")

			client.mu.Lock()
			defer client.mu.Unlock()
			if client.conn == nil || client.conn.IsClosed() {
				return nil
			}
			return client.conn.Close()
		},
	})

	return client, nil
}

// connectLocked dials the broker and declares the exchange, queue and binding.
func (r *rabbitClient) connectLocked() error {
	conn, err := amqp.Dial(r.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(r.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", r.exchange, err)
	}
	if _, err := ch.QueueDeclare(r.queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("declare queue %s: %w", r.queue, err)
	}
	if err := ch.QueueBind(r.queue, r.topic, r.exchange, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("bind queue %s: %w", r.queue, err)
	}

	r.conn = conn
	r.publish = ch
	r.logger.Info("rabbitmq connected", zap.String("exchange", r.exchange), zap.String("queue", r.queue))
	return nil
}

func (r *rabbitClient) Publish(ctx context.Context, key []byte, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() || r.publish == nil || r.publish.IsClosed() {
		if err := r.connectLocked(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, rabbitPublishTimeout)
	defer cancel()

	return r.publish.PublishWithContext(ctx, r.exchange, r.topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    string(key),
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{"key": string(key)},
		Body:         value,
	})
}

func (r *rabbitClient) Consume(ctx context.Context, handler Handler) error {
	r.mu.Lock()
	if r.conn == nil || r.conn.IsClosed() {
		if err := r.connectLocked(); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	ch, err := r.conn.Channel()
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel: %w", err)
	}
	defer ch.Close()

	if r.prefetch > 0 {
		if err := ch.Qos(r.prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}

	deliveries, err := ch.ConsumeWithContext(ctx, r.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", r.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}

			msg := Message{
				Topic:   d.RoutingKey,
				Key:     []byte(d.MessageId),
				Value:   append([]byte(nil), d.Body...),
				Offset:  int64(d.DeliveryTag),
				Time:    d.Timestamp,
				Headers: headersOf(d.Headers),
			}

			if err := deliver(ctx, handler, msg, r.attempts, r.logger); err != nil {
				r.logger.Error("message handler exhausted retries", zap.Error(err), zap.Uint64("delivery_tag", d.DeliveryTag))

				// Requeue once; redelivered messages are dropped to avoid a poison loop.
				if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
					r.logger.Warn("nack failed", zap.Error(nackErr))
				}
				continue
			}

			if err := d.Ack(false); err != nil {
				r.logger.Warn("ack failed", zap.Error(err))
			}
		}
	}
}

func (r *rabbitClient) Topic() string { return r.topic }

func headersOf(table amqp.Table) map[string]string {
	if len(table) == 0 {
		return nil
	}
	m := make(map[string]string, len(table))
	for k, v := range table {
		m[k] = fmt.Sprint(v)
	}
	return m
}
