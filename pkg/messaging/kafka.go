package messaging

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// KafkaConsumer wraps a consumer-group reader for the booking event topic.
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		}),
	}
}

// Consume reads messages until ctx is cancelled, passing each payload to
// handler. The handler is responsible for logging its own failures; the
// offset is committed either way since the event intake is best-effort.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(key, value []byte) error) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read message from kafka: %w", err)
		}
		_ = handler(m.Key, m.Value)
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
