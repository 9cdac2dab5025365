// README: Publishes ride transitions to Kafka, keyed by ride id so a ride's events stay ordered.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"londa/internal/modules/ride"
)

// MessageWriter is the subset of *kafka.Writer the stream needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Stream struct {
	writer MessageWriter
}

func NewStream(w MessageWriter) *Stream {
	return &Stream{writer: w}
}

func (s *Stream) OnTransition(ctx context.Context, t ride.Transition) error {
	rec := FromTransition(t)
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(rec.RideID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(rec.Event)},
		},
		Time: rec.At,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish ride event: %w", err)
	}
	return nil
}
