package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	handlerAttempts = 3
	retryStep       = 100 * time.Millisecond
	// fetchRetryDelay paces FetchMessage while the brokers are unreachable.
	fetchRetryDelay = time.Second
)

// Handler processes one event. A returned error triggers a retry.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

// messageReader is the part of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic as part of a consumer group. Offsets are committed
// after every message whatever the outcome, so a poison message can never
// stall its partition.
type Consumer struct {
	reader     messageReader
	logger     *slog.Logger
	fetchDelay time.Duration
	handler    Handler
	dlq        *DLQProducer
	topic      string
	group      string
	closeOnce  sync.Once
	closeErr   error
}

// NewConsumer creates a consumer for cfg.Topic in group cfg.GroupID.
func NewConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		}),
		logger:     logger.With(slog.String("topic", cfg.Topic), slog.String("consumer_group", cfg.GroupID)),
		handler:    handler,
		fetchDelay: fetchRetryDelay,
		topic:      cfg.Topic,
		group:      cfg.GroupID,
	}
}

// WithDLQ sends messages that are malformed or exhaust their retries to a
// dead-letter topic instead of dropping them.
func (c *Consumer) WithDLQ(dlq *DLQProducer) *Consumer {
	c.dlq = dlq
	return c
}

// Start consumes until ctx is canceled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping")
				return c.Close()
			}
			c.logger.Error("fetch message failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				c.logger.Info("consumer stopping")
				return c.Close()
			case <-time.After(c.fetchDelay):
			}
			continue
		}
		countConsumed(c.topic, c.group, outcomeReceived)

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit message failed",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	ctx = extractTraceContext(ctx, &msg)

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		countConsumed(c.topic, c.group, outcomeMalformed)
		c.logger.ErrorContext(ctx, "discarding malformed message",
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		c.deadLetter(ctx, msg, err)
		return
	}

	start := time.Now()
	err = c.handleWithRetry(ctx, event, msg)
	consumerHandleDuration.WithLabelValues(c.topic, c.group).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		countConsumed(c.topic, c.group, outcomeProcessed)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// Shutting down mid-retry; the commit below still happens, the
		// message is not dead-lettered.
	default:
		countConsumed(c.topic, c.group, outcomeFailed)
		c.logger.ErrorContext(ctx, "handler failed after retries",
			slog.String("event_id", event.EventID),
			slog.String("event_type", event.EventType),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		c.deadLetter(ctx, msg, err)
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, event *Event, msg kafka.Message) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = c.handler(ctx, event); err == nil || attempt == handlerAttempts {
			return err
		}
		c.logger.WarnContext(ctx, "handler failed, retrying",
			slog.String("event_id", event.EventID),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryStep):
		}
	}
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.group); err == nil {
		countConsumed(c.topic, c.group, outcomeDeadLettered)
	}
}

// Close closes the reader. Later calls return the first call's result.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.reader.Close()
	})
	return c.closeErr
}
