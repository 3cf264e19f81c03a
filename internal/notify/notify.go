// Package notify publishes job completion events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"go-box-pipeline/internal/model"
)

// Event is published once per finished job.
type Event struct {
	ID          string                  `json:"id"`
	JobID       string                  `json:"job_id"`
	Source      string                  `json:"source"`
	Status      string                  `json:"status"`
	RecordCount int                     `json:"record_count"`
	Files       []string                `json:"files,omitempty"`
	Statistics  *model.TimingStatistics `json:"statistics,omitempty"`
	Error       string                  `json:"error,omitempty"`
	OccurredAt  time.Time               `json:"occurred_at"`
}

// NewEvent builds the event for a job. cause is optional.
func NewEvent(job model.Job, st *model.TimingStatistics, cause error) Event {
	e := Event{
		ID:          ulid.Make().String(),
		JobID:       job.ID,
		Source:      job.Source,
		Status:      job.Status,
		RecordCount: job.RecordCount,
		Files:       job.Files,
		Statistics:  st,
		OccurredAt:  time.Now().UTC(),
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	return e
}

// Notifier delivers job events.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
func (Nop) Close() error                        { return nil }

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes events as JSON messages keyed by job id.
type KafkaNotifier struct {
	writer messageWriter
	logger zerolog.Logger
}

// New returns a Kafka notifier for brokers, or Nop when no brokers are
// configured.
func New(brokers []string, topic string, logger zerolog.Logger) Notifier {
	if len(brokers) == 0 {
		return Nop{}
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// Notify publishes e.
func (k *KafkaNotifier) Notify(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.JobID),
		Value: data,
		Time:  e.OccurredAt,
	})
	if err != nil {
		k.logger.Warn().Err(err).Str("job_id", e.JobID).Msg("failed to publish job event")
		return fmt.Errorf("failed to publish job event: %w", err)
	}
	k.logger.Debug().Str("job_id", e.JobID).Str("event_id", e.ID).Msg("job event published")
	return nil
}

// Close flushes and closes the underlying writer.
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
