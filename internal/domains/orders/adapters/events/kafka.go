package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/IBM/sarama"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
)

// DefaultOrderTopic receives order lifecycle events when no topic is configured.
const DefaultOrderTopic = "storefront.orders"

var _ ports.EventPublisher = (*KafkaPublisher)(nil)

// KafkaPublisher writes order events to Kafka as JSON, keyed by order id.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

type KafkaOption func(*KafkaPublisher)

func WithTopic(topic string) KafkaOption {
	return func(p *KafkaPublisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(p *KafkaPublisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewKafkaPublisher wraps an existing producer. The publisher owns it afterwards.
func NewKafkaPublisher(producer sarama.SyncProducer, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: producer,
		topic:    DefaultOrderTopic,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// DialKafka connects an idempotent sync producer to the given brokers.
func DialKafka(brokers []string, opts ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisher(producer, opts...), nil
}

// Publish sends the event synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	if p == nil || p.producer == nil {
		return errors.New("kafka publisher not configured")
	}
	if event == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", event.EventName(), err)
	}
	key := eventKey(event)
	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: event.OccurredAt(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-name"), Value: []byte(event.EventName())},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send order event",
			slog.String("topic", p.topic), slog.String("key", key), slog.String("error", err.Error()))
		return fmt.Errorf("failed to send %s: %w", event.EventName(), err)
	}
	p.logger.DebugContext(ctx, "order event sent",
		slog.String("topic", p.topic),
		slog.String("key", key),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
	)
	return nil
}

// Close flushes and closes the underlying producer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

func eventKey(event domain.Event) string {
	switch e := event.(type) {
	case domain.OrderPlaced:
		return strconv.FormatInt(e.OrderID, 10)
	case *domain.OrderPlaced:
		return strconv.FormatInt(e.OrderID, 10)
	default:
		return event.EventName()
	}
}
