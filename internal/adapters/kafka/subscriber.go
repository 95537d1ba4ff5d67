package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
)

// maxDeliver bounds handler attempts per message.
const maxDeliver = 3

// MessageReader is the subset of *kafka.Reader used by Subscriber.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Subscriber implements ports.EventSubscriber with a consumer group.
type Subscriber struct {
	reader  MessageReader
	backoff time.Duration
	wg      sync.WaitGroup
}

// NewSubscriber joins groupID on topic.
func NewSubscriber(brokers []string, topic, groupID string) *Subscriber {
	return NewSubscriberWithReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
		// Offsets are committed manually once the handler succeeded.
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       10e6,
	}))
}

// NewSubscriberWithReader wraps an existing reader.
func NewSubscriberWithReader(r MessageReader) *Subscriber {
	return &Subscriber{reader: r, backoff: time.Second}
}

// SubscribeResolutions implements ports.EventSubscriber. Messages are
// consumed in a background goroutine until ctx is cancelled. A failing handler
// is retried after a backoff, up to maxDeliver attempts per message.
func (s *Subscriber) SubscribeResolutions(ctx context.Context, handler func(ctx context.Context, ev domain.ResolutionEvent) error) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			msg, err := s.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				slog.Warn("kafka fetch failed", "error", err)
				if !sleepCtx(ctx, s.backoff) {
					return
				}
				continue
			}

			var ev domain.ResolutionEvent
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				slog.Warn("dropping malformed resolution event", "offset", msg.Offset, "error", err)
				_ = s.reader.CommitMessages(ctx, msg)
				continue
			}

			for attempt := 1; ; attempt++ {
				err := handler(ctx, ev)
				if err == nil {
					break
				}
				if attempt >= maxDeliver {
					slog.Error("giving up on resolution event", "resolution_id", ev.ResolutionID, "error", err)
					break
				}
				if !sleepCtx(ctx, s.backoff) {
					return
				}
			}
			if err := s.reader.CommitMessages(ctx, msg); err != nil {
				slog.Warn("kafka commit failed", "offset", msg.Offset, "error", err)
			}
		}
	}()
	return nil
}

// Close waits for the consumer loop and closes the reader. Cancel the
// subscription context first.
func (s *Subscriber) Close() error {
	s.wg.Wait()
	return s.reader.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
