package eventviewer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Event is the envelope pushed to viewers.
type Event struct {
	Topic     string          `json:"topic"`
	EventType string          `json:"eventType"`
	RunID     string          `json:"runId"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// decodeEvent wraps a pipeline event. The key is used as run id when the
// payload carries none.
func decodeEvent(msg kafka.Message) (Event, error) {
	var head struct {
		EventType string `json:"eventType"`
		RunID     string `json:"runId"`
		Timestamp int64  `json:"timestamp"`
	}
	if err := json.Unmarshal(msg.Value, &head); err != nil {
		return Event{}, err
	}
	if head.RunID == "" {
		head.RunID = string(msg.Key)
	}
	if head.EventType == "" {
		for _, h := range msg.Headers {
			if h.Key == "eventType" {
				head.EventType = string(h.Value)
			}
		}
	}
	return Event{
		Topic:     msg.Topic,
		EventType: head.EventType,
		RunID:     head.RunID,
		Timestamp: head.Timestamp,
		Payload:   json.RawMessage(msg.Value),
	}, nil
}

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewReader creates a partition-0 reader for topic positioned at now-since.
// No consumer group is used so each viewer sees the full stream.
func NewReader(ctx context.Context, brokers []string, topic string, since time.Duration) *kafka.Reader {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	if err := reader.SetOffsetAt(ctx, time.Now().Add(-since)); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("failed to rewind reader, starting at latest")
	}
	return reader
}

// Consume reads topic until ctx is done and publishes every event to hub.
// Read errors are retried after retryDelay.
func Consume(ctx context.Context, hub *Hub, reader MessageReader, topic string, retryDelay time.Duration) {
	defer reader.Close()

	logger := log.With().Str("topic", topic).Logger()
	logger.Info().Msg("consuming events")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Msg("kafka read failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
			continue
		}
		if msg.Topic == "" {
			msg.Topic = topic
		}

		ev, err := decodeEvent(msg)
		if err != nil {
			logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping undecodable event")
			continue
		}

		logger.Debug().Str("eventType", ev.EventType).Str("runId", ev.RunID).Msg("event received")
		if err := hub.Publish(ctx, ev); err != nil {
			return
		}
	}
}
