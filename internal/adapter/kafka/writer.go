// Package kafka mirrors canonical heritage records to a Kafka topic so
// downstream consumers (search indexing, change feeds) can follow the
// dataset. The mirror is best-effort: the datastore remains the source of
// truth.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces record messages to the mirror topic.
type Writer struct {
	writer *kafkago.Writer
	runID  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the mirror topic. The runID is
// stamped on every message header so consumers can group messages by
// ingestion run.
func NewWriter(brokers []string, topic, runID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, runID: runID, logger: logger}
}

// Close flushes and closes the underlying producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

func (w *Writer) publish(ctx context.Context, msgs []kafkago.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

// Mirror adapts the Writer to pipeline.Loader for one record type. The key
// function supplies the record's natural key, which doubles as the message
// key for log-compacted topics.
type Mirror[R any] struct {
	writer     *Writer
	recordType string
	key        func(R) string
}

// NewMirror creates a Loader that publishes records of one type.
func NewMirror[R any](w *Writer, recordType string, key func(R) string) *Mirror[R] {
	return &Mirror[R]{writer: w, recordType: recordType, key: key}
}

// LoadBatch serializes and publishes a batch of records in a single
// WriteMessages call.
func (m *Mirror[R]) LoadBatch(ctx context.Context, records []R) error {
	msgs := make([]kafkago.Message, len(records))
	for i, rec := range records {
		msg, err := m.message(rec)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return m.writer.publish(ctx, msgs)
}

// Load publishes a single record.
func (m *Mirror[R]) Load(ctx context.Context, record R) error {
	msg, err := m.message(record)
	if err != nil {
		return err
	}
	return m.writer.publish(ctx, []kafkago.Message{msg})
}

func (m *Mirror[R]) message(record R) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s record: %w", m.recordType, err)
	}
	return kafkago.Message{
		Key:   []byte(m.key(record)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte(m.recordType)},
			{Key: "run_id", Value: []byte(m.writer.runID)},
			{Key: "ingested_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
