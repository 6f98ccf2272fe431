package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/riverwatch/waterpoint/internal/config"
	"github.com/riverwatch/waterpoint/internal/domain"
)

// KafkaSource consumes collector rows from a Kafka topic. Each message value
// is one JSON object whose keys are the collector's column names; key order
// in the document becomes field order in the row.
type KafkaSource struct {
	reader       *kafkago.Reader
	logger       *slog.Logger
	batchSize    int
	batchTimeout time.Duration
}

// NewKafkaSource creates a consumer for the configured source topic.
func NewKafkaSource(cfg *config.Config, logger *slog.Logger) *KafkaSource {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic,
		GroupID:     cfg.KafkaGroupID,
		StartOffset: kafkago.FirstOffset,
	})
	return &KafkaSource{
		reader:       r,
		logger:       logger,
		batchSize:    cfg.KafkaBatchSize,
		batchTimeout: cfg.KafkaBatchTimeout,
	}
}

func (s *KafkaSource) Name() string { return "kafka" }

// Rows reads messages until the batch is full or the batch window elapses.
// Malformed messages are logged and skipped, not retried. Offsets advance
// with the consumer group as messages are read.
func (s *KafkaSource) Rows(ctx context.Context) ([]RawRow, error) {
	batchCtx, cancel := context.WithTimeout(ctx, s.batchTimeout)
	defer cancel()

	var rows []RawRow
	for len(rows) < s.batchSize {
		msg, err := s.reader.ReadMessage(batchCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			return rows, fmt.Errorf("ingest: read kafka message: %w", err)
		}

		row, err := mapMessage(msg)
		if err != nil {
			s.logger.Warn("skipping malformed kafka message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Close closes the underlying consumer.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

// mapMessage converts one Kafka message into a raw row, preserving the JSON
// document's key order.
func mapMessage(msg kafkago.Message) (RawRow, error) {
	var fields domain.Payload
	if err := json.Unmarshal(msg.Value, &fields); err != nil {
		return RawRow{}, fmt.Errorf("decode row: %w", err)
	}
	if len(fields) == 0 {
		return RawRow{}, errors.New("empty row object")
	}
	return RawRow{Fields: fields, Source: "kafka"}, nil
}
