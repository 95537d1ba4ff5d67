// Package kafka publishes and consumes resolution events on a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/pkg/metrics"
)

// MessageWriter is the subset of *kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher on a Kafka topic. Events of one
// form share a key and therefore a partition, which keeps them ordered.
type Publisher struct {
	writer MessageWriter
}

// NewPublisher creates a publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return NewPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	})
}

// NewPublisherWithWriter wraps an existing writer.
func NewPublisherWithWriter(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

// PublishResolution implements ports.EventPublisher.
func (p *Publisher) PublishResolution(ctx context.Context, ev domain.ResolutionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := ev.FormID
	if key == "" {
		key = ev.ResolutionID
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  ev.Time,
	})
	if err != nil {
		metrics.EventsPublished.WithLabelValues("kafka", "error").Inc()
		return fmt.Errorf("publish resolution: %w", err)
	}
	metrics.EventsPublished.WithLabelValues("kafka", "ok").Inc()
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
