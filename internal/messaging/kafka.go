package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/config"
)

const kafkaFetchBackoff = time.Second

// kafkaClient implements the Client via kafka-go consumer groups.
type kafkaClient struct {
	writer   *kafka.Writer
	reader   *kafka.Reader
	topic    string
	attempts int
	logger   *zap.Logger
}

func newKafkaClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	kcfg := cfg.Messaging.Kafka
	logger = logger.With(zap.String("topic", kcfg.Topic))

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(kcfg.Brokers...),
		Topic:                  kcfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{ClientID: kcfg.ClientID, DialTimeout: kcfg.ConnectTimeout},
		Logger:                 kafkaLogger(logger, false),
		ErrorLogger:            kafkaLogger(logger, true),
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        kcfg.Brokers,
		GroupID:        cfg.Messaging.ConsumerGroup,
		Topic:          kcfg.Topic,
		MinBytes:       kcfg.MinBytes,
		MaxBytes:       kcfg.MaxBytes,
		CommitInterval: kcfg.CommitInterval,
		Dialer: &kafka.Dialer{
			Timeout:  kcfg.ConnectTimeout,
			ClientID: kcfg.ClientID,
		},
		Logger:      kafkaLogger(logger, false),
		ErrorLogger: kafkaLogger(logger, true),
	})

	client := &kafkaClient{
		writer:   writer,
		reader:   reader,
		topic:    kcfg.Topic,
		attempts: cfg.Messaging.MaxAttempts,
		logger:   logger,
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing kafka client")

			return errors.Join(writer.Close(), reader.Close())
		},
	})

	return client, nil
}

// Publish writes one message. Keys are hashed to partitions, so events for
// the same order stay ordered.
func (k *kafkaClient) Publish(ctx context.Context, key []byte, value []byte) error {
	return k.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value, Time: time.Now().UTC()})
}

// Consume fetches messages until ctx is done. A message is committed once
// the handler succeeds or its attempts are exhausted; exhausted messages
// are logged and skipped so that one bad event cannot stall the partition.
func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			k.logger.Error("kafka fetch failed", zap.Error(err))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(kafkaFetchBackoff):
			}
			continue
		}

		if err := deliver(ctx, handler, fromKafka(msg), k.attempts, k.logger); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			k.logger.Error("dropping message after retries",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}

		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			k.logger.Warn("commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (k *kafkaClient) Topic() string { return k.topic }

func fromKafka(msg kafka.Message) Message {
	out := Message{
		Topic:  msg.Topic,
		Key:    append([]byte(nil), msg.Key...),
		Value:  append([]byte(nil), msg.Value...),
		Offset: msg.Offset,
		Time:   msg.Time,
	}
	if len(msg.Headers) > 0 {
		out.Headers = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			out.Headers[h.Key] = string(h.Value)
		}
	}
	return out
}

func kafkaLogger(logger *zap.Logger, errorsOnly bool) kafka.LoggerFunc {
	sugar := logger.Named("kafka").Sugar()
	if errorsOnly {
		return sugar.Errorf
	}
	return sugar.Debugf
}
