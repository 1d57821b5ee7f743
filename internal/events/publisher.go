// Package events publishes pipeline notifications to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/frankwiersma/speech-to-jira/internal/models"
	"github.com/frankwiersma/speech-to-jira/internal/observability/logging"
	"github.com/frankwiersma/speech-to-jira/internal/observability/metrics"
)

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// channel is one topic and its writer. A nil writer means log-only.
type channel struct {
	topic  string
	writer messageWriter
}

// Publisher sends run events to one topic per event kind, keyed by run id so
// every event of a run lands on the same partition.
type Publisher struct {
	transcripts channel
	tickets     channel
	principal   string
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers          []string
	TopicTranscripts string
	TopicTickets     string
	Principal        string
	Enabled          bool
}

// New creates a publisher recording into the default metrics.
func New(cfg *Config) *Publisher {
	return NewWithMetrics(cfg, metrics.DefaultMetrics)
}

// NewWithMetrics creates a publisher. A nil config, a disabled config or an
// empty broker list yields a publisher that only logs.
func NewWithMetrics(cfg *Config, m *metrics.Metrics) *Publisher {
	p := &Publisher{
		metrics: m,
		logger:  logging.WithComponent("events"),
	}
	if cfg == nil {
		p.logger.Info().Msg("no Kafka config, events are logged only")
		return p
	}

	p.principal = cfg.Principal
	p.transcripts.topic = cfg.TopicTranscripts
	p.tickets.topic = cfg.TopicTickets

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		p.logger.Info().Bool("enabled", cfg.Enabled).Msg("Kafka disabled, events are logged only")
		return p
	}

	transport := &kafka.Transport{
		// DNS in Kubernetes can be slow on first lookup.
		Dial: (&kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}).DialFunc,
	}
	p.transcripts.writer = newWriter(cfg.Brokers, cfg.TopicTranscripts, transport)
	p.tickets.writer = newWriter(cfg.Brokers, cfg.TopicTickets, transport)

	p.logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicTranscripts", cfg.TopicTranscripts).
		Str("topicTickets", cfg.TopicTickets).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher ready")
	return p
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// Enabled reports whether events reach Kafka.
func (p *Publisher) Enabled() bool {
	return p.transcripts.writer != nil || p.tickets.writer != nil
}

// PublishTranscript sends a transcript-completed event.
func (p *Publisher) PublishTranscript(ctx context.Context, ev models.TranscriptCompleted) error {
	return p.send(ctx, p.transcripts, ev.EventType, ev.RunID, ev)
}

// PublishTickets sends a tickets-generated event.
func (p *Publisher) PublishTickets(ctx context.Context, ev models.TicketsGenerated) error {
	return p.send(ctx, p.tickets, ev.EventType, ev.RunID, ev)
}

func (p *Publisher) send(ctx context.Context, ch channel, eventType, runID string, event any) (err error) {
	start := time.Now()
	defer func() {
		p.metrics.RecordKafkaPublish(ch.topic, eventType, err, time.Since(start).Seconds())
	}()

	logger := p.logger.With().Str("topic", ch.topic).Str("runId", runID).Str("eventType", eventType).Logger()

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Msg("event encode failed")
		return fmt.Errorf("encode %s: %w", eventType, err)
	}

	if ch.writer == nil {
		logger.Debug().RawJSON("payload", payload).Msg("event (log-only)")
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(runID),
		Value: payload,
		Time:  start,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}
	if err = ch.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error().Err(err).Msg("event write failed")
		return err
	}
	logger.Debug().Int("bytes", len(payload)).Msg("event published")
	return nil
}

// Close flushes and closes the writers.
func (p *Publisher) Close() error {
	var errs []error
	for _, ch := range []channel{p.transcripts, p.tickets} {
		if ch.writer == nil {
			continue
		}
		if err := ch.writer.Close(); err != nil {
			p.logger.Error().Err(err).Str("topic", ch.topic).Msg("writer close failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
