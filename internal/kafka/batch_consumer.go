package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/crudgen-api/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

// batchItem holds a fetched Kafka message and its decoded event.
type batchItem struct {
	msg   kafkago.Message
	event RecordEvent
	err   error // non-nil if decoding failed (poison pill)
}

// BatchConsumer reads record events from Kafka in batches. Events in a batch are
// applied in offset order.
type BatchConsumer struct {
	reader        MessageReader
	writer        RecordWriter
	topic         string
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewBatchConsumer creates a batch consumer with time-bounded fetching.
func NewBatchConsumer(
	brokers []string,
	topic, groupID string,
	batchSize int,
	flushInterval time.Duration,
	w RecordWriter,
	m *observability.Metrics,
	logger *slog.Logger,
) *BatchConsumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10 MB
	})
	return &BatchConsumer{
		reader:        reader,
		writer:        w,
		topic:         topic,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		metrics:       m,
	}
}

// Run consumes messages in batches until the context is cancelled.
func (bc *BatchConsumer) Run(ctx context.Context) error {
	bc.logger.Info("kafka batch consumer started",
		"topic", bc.topic, "batch_size", bc.batchSize, "flush_interval", bc.flushInterval)
	bc.metrics.KafkaConsumerRunning.WithLabelValues(bc.topic).Set(1)
	defer bc.metrics.KafkaConsumerRunning.WithLabelValues(bc.topic).Set(0)

	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		items, err := bc.fetchBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			bc.metrics.KafkaConsumerErrors.WithLabelValues(bc.topic, "fetch_batch").Inc()
			bc.logger.Error("fetch batch", "error", err, "retry_in", backoff)
			if !retry.SleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		if len(items) == 0 {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		bc.processBatch(ctx, items)
	}
}

// fetchBatch collects up to batchSize messages or until flushInterval elapses.
func (bc *BatchConsumer) fetchBatch(ctx context.Context) ([]batchItem, error) {
	start := time.Now()
	defer func() {
		bc.metrics.KafkaBatchDuration.WithLabelValues(bc.topic, "fetch").Observe(time.Since(start).Seconds())
	}()

	items := make([]batchItem, 0, bc.batchSize)
	deadline := time.Now().Add(bc.flushInterval)

	for len(items) < bc.batchSize {
		timeout := time.Until(deadline)
		if timeout <= 0 {
			break
		}

		fetchCtx, cancel := context.WithTimeout(ctx, timeout)
		msg, err := bc.reader.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				// Parent context cancelled: return what we have.
				break
			}
			if fetchCtx.Err() == context.DeadlineExceeded {
				// Flush interval expired: return partial batch.
				break
			}
			return nil, err
		}

		ev, decodeErr := decodeEvent(msg.Value)
		items = append(items, batchItem{msg: msg, event: ev, err: decodeErr})
	}

	bc.metrics.KafkaBatchSize.WithLabelValues(bc.topic).Observe(float64(len(items)))
	return items, nil
}

// processBatch applies events in order and commits every message up to the first
// event that failed with a retryable error. Poison pills and rejected events are
// committed so they are not redelivered.
func (bc *BatchConsumer) processBatch(ctx context.Context, items []batchItem) {
	start := time.Now()
	defer func() {
		bc.metrics.KafkaBatchDuration.WithLabelValues(bc.topic, "process").Observe(time.Since(start).Seconds())
	}()

	var done []kafkago.Message
	applied := 0
	for _, item := range items {
		if item.err != nil {
			bc.logger.Error("decode in batch", "error", item.err, "offset", item.msg.Offset)
			bc.metrics.KafkaConsumerErrors.WithLabelValues(bc.topic, "unmarshal").Inc()
			done = append(done, item.msg)
			continue
		}

		if err := apply(ctx, bc.writer, item.event); err != nil {
			if ctx.Err() != nil || retryable(err) {
				bc.logger.Error("apply record event in batch", "error", err,
					"op", item.event.Op, "entity", item.event.Entity, "offset", item.msg.Offset)
				bc.metrics.KafkaConsumerErrors.WithLabelValues(bc.topic, "apply").Inc()
				break
			}
			bc.logger.Warn("record event rejected", "error", err,
				"op", item.event.Op, "entity", item.event.Entity, "offset", item.msg.Offset)
			bc.metrics.KafkaConsumerErrors.WithLabelValues(bc.topic, "rejected").Inc()
		} else {
			applied++
		}
		done = append(done, item.msg)
	}

	if len(done) > 0 {
		if err := bc.reader.CommitMessages(ctx, done...); err != nil {
			bc.logger.Error("commit batch offsets", "error", err, "count", len(done))
		}
	}

	bc.metrics.KafkaMessagesConsumed.WithLabelValues(bc.topic).Add(float64(applied))
	bc.logger.Debug("consumed batch", "applied", applied, "committed", len(done), "fetched", len(items))
}

// Close shuts down the underlying Kafka reader.
func (bc *BatchConsumer) Close() error {
	return bc.reader.Close()
}
