package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/alejandrodnm/tradewatch/internal/domain"
)

const defaultKafkaTopic = "tradewatch.events"

// messageWriter is the subset of *kafka.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka sink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	BatchTimeout time.Duration
}

// Kafka writes every event as a JSON message. The message key is the event
// key (platform trade id or bucket key), so all events of one trade land in
// the same partition and keep their order.
type Kafka struct {
	writer messageWriter
	topic  string
}

// NewKafka creates a synchronous writer with hash balancing.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("notify.NewKafka: brokers are required")
	}
	if cfg.Topic == "" {
		cfg.Topic = defaultKafkaTopic
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		WriteTimeout:           cfg.WriteTimeout,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
	}
	return &Kafka{writer: w, topic: cfg.Topic}, nil
}

// NewKafkaWithWriter wraps an existing writer. Used in tests.
func NewKafkaWithWriter(w messageWriter, topic string) *Kafka {
	if topic == "" {
		topic = defaultKafkaTopic
	}
	return &Kafka{writer: w, topic: topic}
}

// Publish implements ports.Notifier.
func (k *Kafka) Publish(ctx context.Context, e domain.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("notify.Kafka.Publish: marshal %s: %w", e.Kind, err)
	}

	msg := kafka.Message{
		Key:   []byte(e.Key),
		Value: body,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Kind)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("notify.Kafka.Publish: %s to %s: %w", e.Kind, k.topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}
