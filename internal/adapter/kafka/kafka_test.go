package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/miz-weather/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"id":"edit-1"}`),
		Topic:     "miz-edit-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("scheduler")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"id":"edit-1"}`, string(raw.Value))
	assert.Equal(t, "miz-edit-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "scheduler", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 5, 24, 8, 30, 0, 0, time.UTC)
	result := domain.EditResult{
		ID:          "edit-1",
		ArchivePath: "/data/op.miz",
		OutputPath:  "/data/op_EDITED.miz",
		Outcome:     domain.OutcomeSuccess,
		ProcessedAt: now,
	}

	msg, err := serializeToMessage(result)
	require.NoError(t, err)

	assert.Equal(t, []byte("edit-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"outcome":"success"`)
	assert.NotContains(t, string(msg.Value), `"error"`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "outcome", msg.Headers[0].Key)
	assert.Equal(t, []byte("success"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestReader_ExtractBatch_FullBatch(t *testing.T) {
	src := &mockSource{msgs: []kafkago.Message{
		{Key: []byte("a"), Offset: 1},
		{Key: []byte("b"), Offset: 2},
		{Key: []byte("c"), Offset: 3},
	}}
	r := newReader(src, time.Second, discardLogger())

	batch, err := r.ExtractBatch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, []byte("a"), batch[0].Key)
	assert.Equal(t, []byte("b"), batch[1].Key)

	require.NoError(t, batch[1].Commit(context.Background()))
	require.Len(t, src.committed, 1)
	assert.Equal(t, int64(2), src.committed[0].Offset)
}

func TestReader_ExtractBatch_FlushesPartialBatch(t *testing.T) {
	src := &mockSource{msgs: []kafkago.Message{{Key: []byte("a")}}}
	r := newReader(src, 20*time.Millisecond, discardLogger())

	batch, err := r.ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestReader_ExtractBatch_EmptyOnFlush(t *testing.T) {
	r := newReader(&mockSource{}, 10*time.Millisecond, discardLogger())

	batch, err := r.ExtractBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestReader_ExtractBatch_ContextCanceled(t *testing.T) {
	r := newReader(&mockSource{}, time.Minute, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ExtractBatch(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReader_ExtractBatch_FetchError(t *testing.T) {
	r := newReader(&mockSource{err: errors.New("broker gone")}, time.Minute, discardLogger())

	_, err := r.ExtractBatch(context.Background(), 10)
	require.EqualError(t, err, "broker gone")
}

func TestWriter_LoadBatch(t *testing.T) {
	sink := &mockSink{}
	w := &Writer{sink: sink, logger: discardLogger()}

	require.NoError(t, w.LoadBatch(context.Background(), nil))
	assert.Empty(t, sink.written)

	err := w.LoadBatch(context.Background(), []domain.EditResult{
		{ID: "edit-1", Outcome: domain.OutcomeSuccess},
		{ID: "edit-2", Outcome: domain.OutcomeFailure, Error: "nothing to do!"},
	})
	require.NoError(t, err)
	require.Len(t, sink.written, 2)
	assert.Equal(t, []byte("edit-2"), sink.written[1].Key)
	assert.Contains(t, string(sink.written[1].Value), `"error":"nothing to do!"`)

	sink.err = errors.New("leader not available")
	err = w.LoadBatch(context.Background(), []domain.EditResult{{ID: "edit-3"}})
	require.ErrorContains(t, err, "write edit results")
}

// --- mocks ---

type mockSource struct {
	msgs      []kafkago.Message
	err       error
	committed []kafkago.Message
}

func (m *mockSource) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	if m.err != nil {
		return kafkago.Message{}, m.err
	}
	if len(m.msgs) == 0 {
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	msg := m.msgs[0]
	m.msgs = m.msgs[1:]
	return msg, nil
}

func (m *mockSource) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *mockSource) Close() error { return nil }

type mockSink struct {
	written []kafkago.Message
	err     error
}

func (m *mockSink) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockSink) Close() error { return nil }
