package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/miz-weather/internal/config"
	"github.com/couchcryptid/miz-weather/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageSink is the subset of kafkago.Writer used by Writer.
type messageSink interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces edit results to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	sink   messageSink
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{sink: w, logger: logger}
}

// LoadBatch serializes and publishes the results in a single WriteMessages
// call.
func (w *Writer) LoadBatch(ctx context.Context, results []domain.EditResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.sink.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write edit results: %w", err)
	}
	w.logger.Debug("batch loaded", "size", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.sink.Close()
}

// serializeToMessage marshals an EditResult into a Kafka message.
func serializeToMessage(result domain.EditResult) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize edit result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(result.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "outcome", Value: []byte(result.Outcome)},
			{Key: "processed_at", Value: []byte(result.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
