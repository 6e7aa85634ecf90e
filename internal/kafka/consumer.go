package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/crudgen-api/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

// MessageReader abstracts the kafka reader for testability.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads record events from a Kafka topic one at a time and applies them
// through the generated mutations.
type Consumer struct {
	reader  MessageReader
	writer  RecordWriter
	topic   string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewConsumer creates a consumer that reads from the given topic and applies events
// through w.
func NewConsumer(brokers []string, topic, groupID string, w RecordWriter, m *observability.Metrics, logger *slog.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10 MB
	})
	return &Consumer{
		reader:  reader,
		writer:  w,
		topic:   topic,
		logger:  logger,
		metrics: m,
	}
}

// Run consumes messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("kafka consumer started", "topic", c.topic)
	c.metrics.KafkaConsumerRunning.WithLabelValues(c.topic).Set(1)
	defer c.metrics.KafkaConsumerRunning.WithLabelValues(c.topic).Set(0)

	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.metrics.KafkaConsumerErrors.WithLabelValues(c.topic, "fetch").Inc()
			c.logger.Error("fetch kafka message", "error", err, "retry_in", backoff)
			if !retry.SleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		if c.handleMessage(ctx, msg) {
			return nil
		}
	}
}

// handleMessage decodes and applies one message. It reports whether the consumer
// should stop.
func (c *Consumer) handleMessage(ctx context.Context, msg kafkago.Message) bool {
	if ctx.Err() != nil {
		return true
	}

	ev, err := decodeEvent(msg.Value)
	if err != nil {
		c.logger.Error("decode kafka message", "error", err, "offset", msg.Offset)
		c.metrics.KafkaConsumerErrors.WithLabelValues(c.topic, "unmarshal").Inc()
		// Commit bad messages to avoid reprocessing poison pills
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit offset after decode error", "error", err)
		}
		return false
	}

	if err := apply(ctx, c.writer, ev); err != nil {
		if ctx.Err() != nil {
			return true
		}
		if retryable(err) {
			c.logger.Error("apply record event", "error", err, "op", ev.Op, "entity", ev.Entity)
			c.metrics.KafkaConsumerErrors.WithLabelValues(c.topic, "apply").Inc()
			// Not committed: redelivered on next startup.
			return false
		}
		c.logger.Warn("record event rejected", "error", err, "op", ev.Op, "entity", ev.Entity, "offset", msg.Offset)
		c.metrics.KafkaConsumerErrors.WithLabelValues(c.topic, "rejected").Inc()
	} else {
		c.metrics.KafkaMessagesConsumed.WithLabelValues(c.topic).Inc()
		c.logger.Debug("applied record event", "op", ev.Op, "entity", ev.Entity)
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("commit offset", "error", err, "offset", msg.Offset)
	}
	return false
}

// Close shuts down the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
