// Package eventbus publishes domain events to Kafka.
//
// Messages are keyed (by site ID for manifest events) and routed with a
// hash balancer, so every event for one site lands on the same partition
// in order.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/config"
)

// ErrDisabled indicates Kafka is disabled in configuration.
var ErrDisabled = errors.New("eventbus: disabled in configuration")

const defaultWriteTimeout = 10 * time.Second

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic.
type KafkaPublisher struct {
	w     messageWriter
	topic string
}

// NewKafkaPublisher creates a synchronous writer for cfg.Topic.
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("eventbus: brokers and topic are required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		WriteTimeout: defaultWriteTimeout,
	}
	return &KafkaPublisher{w: w, topic: cfg.Topic}, nil
}

// Publish writes one keyed message and waits for the broker ack.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("eventbus: writing to %s: %w", p.topic, err)
	}
	return nil
}

// Topic returns the destination topic.
func (p *KafkaPublisher) Topic() string { return p.topic }

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}
