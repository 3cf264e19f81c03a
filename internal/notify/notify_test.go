package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-box-pipeline/internal/model"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNew_NoBrokersIsNop(t *testing.T) {
	n := New(nil, "topic", zerolog.Nop())
	assert.IsType(t, Nop{}, n)
	assert.NoError(t, n.Notify(context.Background(), Event{}))
	assert.NoError(t, n.Close())

	assert.IsType(t, &KafkaNotifier{}, New([]string{"localhost:9092"}, "topic", zerolog.Nop()))
}

func TestNewEvent(t *testing.T) {
	job := model.Job{ID: "job-1", Source: model.JobSourceBatch, Status: model.JobStatusFailed, RecordCount: 2}
	e := NewEvent(job, &model.TimingStatistics{Count: 2}, errors.New("boom"))

	_, err := ulid.Parse(e.ID)
	assert.NoError(t, err)
	assert.Equal(t, "job-1", e.JobID)
	assert.Equal(t, model.JobSourceBatch, e.Source)
	assert.Equal(t, "boom", e.Error)
	assert.Equal(t, 2, e.Statistics.Count)
	assert.False(t, e.OccurredAt.IsZero())

	other := NewEvent(job, nil, nil)
	assert.NotEqual(t, e.ID, other.ID)
	assert.Empty(t, other.Error)
}

func TestKafkaNotifier_Notify(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w, logger: zerolog.Nop()}

	e := NewEvent(model.Job{ID: "job-7", Status: model.JobStatusCompleted}, nil, nil)
	require.NoError(t, n.Notify(context.Background(), e))

	require.Len(t, w.messages, 1)
	assert.Equal(t, []byte("job-7"), w.messages[0].Key)

	var decoded Event
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, model.JobStatusCompleted, decoded.Status)

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	n := &KafkaNotifier{writer: &fakeWriter{err: errors.New("broker down")}, logger: zerolog.Nop()}
	err := n.Notify(context.Background(), NewEvent(model.Job{ID: "x"}, nil, nil))
	assert.ErrorContains(t, err, "broker down")
}
