// Package kafka publishes resolved results to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/travel-score/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces one message per result.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	runID  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for topic. runID is attached to every
// message so consumers can group the output of one run.
func NewWriter(brokers []string, topic, runID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, runID: runID, logger: logger}
}

// LoadBatch serializes and publishes all results in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, results []domain.Result) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(results[i], w.runID)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish results to %s: %w", w.writer.Topic, err)
	}
	w.logger.Info("results published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Result into a Kafka message keyed by location.
func serializeToMessage(result domain.Result, runID string) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize result: %w", err)
	}
	key := domain.Key{City: result.City, Country: result.Country}
	return kafkago.Message{
		Key:   []byte(key.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(result.Source)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
