package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/dependability/pkg/common/models"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEventEnvelope(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w, topic: "dependability.predicted", source: "dependability-service"}

	err := p.PublishEvent(context.Background(), EventPredicted, "pred-1", map[string]interface{}{
		"prediction": "High",
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "pred-1", string(msg.Key))
	assert.Equal(t, kafka.Header{Key: "event-type", Value: []byte(EventPredicted)}, msg.Headers[0])

	var event models.Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, EventPredicted, event.Type)
	assert.Equal(t, "dependability-service", event.Source)
	assert.Equal(t, "High", event.Data["prediction"])
	assert.NotEmpty(t, event.ID)
}

func TestPublishEventDefaultsKeyToEventID(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w, topic: "t", source: "s"}

	require.NoError(t, p.PublishEvent(context.Background(), EventPredicted, "", nil))

	var event models.Event
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &event))
	assert.Equal(t, event.ID, string(w.messages[0].Key))
}

func TestPublishEventWriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := &Producer{writer: w, topic: "t", source: "s"}

	err := p.PublishEvent(context.Background(), EventPredicted, "k", nil)
	assert.EqualError(t, err, "broker down")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
