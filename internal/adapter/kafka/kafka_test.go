package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func testSnapshot() domain.PredictionSnapshot {
	loc := domain.Location{Slug: "makassar", Name: "Makassar", Group: "sulsel", Parent: "Sulawesi Selatan", Lat: -5.1477, Lon: 119.4327}
	obs := domain.Observation{Date: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)}
	return domain.NewSnapshot(loc, obs, 0.72, time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC))
}

func TestSerializeToMessage(t *testing.T) {
	snap := testSnapshot()

	msg, err := serializeToMessage(snap)
	require.NoError(t, err)

	assert.Equal(t, []byte("makassar"), msg.Key)
	assert.Contains(t, string(msg.Value), `"slug":"makassar"`)
	assert.Contains(t, string(msg.Value), `"category":"high_risk"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "category", msg.Headers[0].Key)
	assert.Equal(t, []byte("high_risk"), msg.Headers[0].Value)
	assert.Equal(t, "probability", msg.Headers[1].Key)
	assert.Equal(t, []byte("0.7200"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2026-10-17T03:00:00Z"), msg.Headers[2].Value)
}

func TestPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, p.Publish(context.Background(), testSnapshot()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("makassar"), w.msgs[0].Key)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := &Publisher{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := p.Publish(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish makassar")
	assert.Contains(t, err.Error(), "broker down")
}
