//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/miz-weather/internal/adapter/kafka"
	"github.com/couchcryptid/miz-weather/internal/adapter/miz"
	"github.com/couchcryptid/miz-weather/internal/config"
	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/editor"
	"github.com/couchcryptid/miz-weather/internal/miztest"
	"github.com/couchcryptid/miz-weather/internal/observability"
	"github.com/couchcryptid/miz-weather/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-source"
	testSinkTopic   = "test-sink"

	testReport = "UGTB 240830Z 31017KT CAVOK 11/02 Q1012 NOSIG"
	testTime   = "20180201225000"
)

// resultMessage holds a deserialized message read from the sink topic.
type resultMessage struct {
	Result  domain.EditResult
	Key     string
	Headers map[string]string
}

// readResult reads a single message from the sink consumer and deserializes it.
func readResult(ctx context.Context, t *testing.T, consumer *kafkago.Reader) resultMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var result domain.EditResult
	require.NoError(t, json.Unmarshal(msg.Value, &result), "unmarshal sink message")

	return resultMessage{Result: result, Key: string(msg.Key), Headers: headers}
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func newTransformer(t *testing.T, metrics *observability.Metrics) *pipeline.EditTransformer {
	t.Helper()
	ed := editor.New(nil, domain.NewRandomSource(1), discardLogger(), metrics, miz.WithTempRoot(t.TempDir()))
	return pipeline.NewTransformer(ed, nil, discardLogger())
}

func requestPayload(t *testing.T, req domain.EditRequest) []byte {
	t.Helper()
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	return payload
}

func readMission(t *testing.T, path string) *miz.Mission {
	t.Helper()
	a, err := miz.Open(path, miz.WithLogger(discardLogger()), miz.WithTempRoot(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Decode())
	m, err := a.Mission()
	require.NoError(t, err)
	return m
}

func sinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (Extractor) and
// kafka.Writer (Loader) correctly round-trip an edit through Kafka.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-reader")

	src := miztest.Archive(t, miztest.Options{})
	payload := requestPayload(t, domain.EditRequest{ID: "edit-1", ArchivePath: src, Report: testReport})

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{Key: []byte("edit-1"), Value: payload}))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("edit-1"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	result, err := newTransformer(t, observability.NewMetricsForTesting()).Transform(ctx, raw)
	require.NoError(t, err)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.EditResult{result}))

	rm := readResult(ctx, t, sinkConsumer(t, broker))
	assert.Equal(t, "edit-1", rm.Key)
	assert.Equal(t, domain.OutcomeSuccess, rm.Headers["outcome"])
	_, err = time.Parse(time.RFC3339, rm.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	assert.Equal(t, domain.OutcomeSuccess, rm.Result.Outcome)
	assert.Empty(t, rm.Result.Error)
	want, err := filepath.Abs(miz.DefaultOutputPath(src))
	require.NoError(t, err)
	assert.Equal(t, want, rm.Result.OutputPath)

	wx, err := readMission(t, rm.Result.OutputPath).Weather().Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 759, wx.QNH)
	assert.Equal(t, 11, wx.TemperatureC)
}

// TestPipelineEndToEnd wires the full pipeline (Reader → Transformer → Writer)
// with real Kafka and verifies every requested archive is edited.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-pipeline")

	const n = 5
	dir := t.TempDir()
	outputs := make(map[string]string, n)
	msgs := make([]kafkago.Message, 0, n)
	for i := range n {
		src := filepath.Join(dir, fmt.Sprintf("op-%d.miz", i))
		require.NoError(t, miztest.Write(src, miztest.Options{Sortie: fmt.Sprintf("Op %d", i)}))
		id := fmt.Sprintf("edit-%d", i)
		outputs[id] = filepath.Join(dir, fmt.Sprintf("op-%d-out.miz", i))
		msgs = append(msgs, kafkago.Message{
			Key: []byte(id),
			Value: requestPayload(t, domain.EditRequest{
				ArchivePath: src,
				OutputPath:  outputs[id],
				Report:      testReport,
				Time:        testTime,
			}),
		})
	}

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, newTransformer(t, metrics), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	received := make(map[string]domain.EditResult, n)
	for len(received) < n {
		rm := readResult(ctx, t, consumer)
		received[rm.Key] = rm.Result
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	for id, out := range outputs {
		result, ok := received[id]
		require.True(t, ok, "missing result for %s", id)
		assert.Equal(t, id, result.ID, "ID falls back to the message key")
		assert.Equal(t, domain.OutcomeSuccess, result.Outcome, result.Error)

		mission := readMission(t, out)
		start, err := mission.StartTime()
		require.NoError(t, err)
		assert.Equal(t, 2018, start.Year)
		wx, err := mission.Weather().Snapshot()
		require.NoError(t, err)
		assert.Equal(t, 130, wx.WindGround.Dir)
	}
}

// TestPipelineTransformError verifies that an undecodable message (poison pill)
// is skipped, while a failed edit is still reported on the sink topic.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := testConfig(broker, "test-poison")

	src := miztest.Archive(t, miztest.Options{})

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("idle"), Value: requestPayload(t, domain.EditRequest{ArchivePath: src})},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, newTransformer(t, metrics), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := sinkConsumer(t, broker)
	rm := readResult(ctx, t, consumer)
	assert.Equal(t, "idle", rm.Key)
	assert.Equal(t, domain.OutcomeFailure, rm.Result.Outcome)
	assert.Equal(t, "nothing to do!", rm.Result.Error)

	// Verify no second message arrives (the poison pill was skipped).
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
