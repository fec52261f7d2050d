package kafka

import (
	"context"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/epa-data-etl/internal/config"
	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
)

// messageWriter is the subset of *kafkago.Writer used by Publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher mirrors written rows to a Kafka topic, one message per row
// keyed by its Record key.
// It implements pipeline.Publisher.
type Publisher struct {
	writer  messageWriter
	runID   string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured topic. Every
// message carries runID in its headers.
func NewPublisher(cfg config.Kafka, runID string, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, runID, metrics, logger)
}

func newPublisher(w messageWriter, runID string, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, runID: runID, metrics: metrics, logger: logger}
}

// Publish serializes rows and writes them in a single WriteMessages call.
func (p *Publisher) Publish(ctx context.Context, rows []domain.Record) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i], p.runID)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d records: %w", len(msgs), err)
	}
	p.metrics.RecordsPublished.Add(float64(len(msgs)))
	p.logger.Debug("records published", "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a row into a Kafka message.
func serializeToMessage(row domain.Record, runID string) (kafkago.Message, error) {
	data, err := row.MarshalJSON()
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %s: %w", row.String(domain.ColumnRecord), err)
	}
	return kafkago.Message{
		Key:   []byte(row.String(domain.ColumnRecord)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "monitor", Value: []byte(row.String(domain.ColumnMonitor))},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
