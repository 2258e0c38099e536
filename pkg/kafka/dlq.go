package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DLQTopicPrefix prefixes the dead-letter topic of every source topic.
const DLQTopicPrefix = "sonix.dlq"

// DLQProducer parks messages the consumer gave up on, so they can be
// inspected and replayed by hand.
type DLQProducer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewDLQProducer creates a dead-letter writer. Each message is flushed
// immediately.
func NewDLQProducer(brokers []string, logger *slog.Logger) *DLQProducer {
	return &DLQProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			BatchSize:              1,
			BatchTimeout:           100 * time.Millisecond,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// DLQTopic returns the dead-letter topic for originalTopic.
func DLQTopic(originalTopic string) string {
	return DLQTopicPrefix + "." + originalTopic
}

// deadLetterMessage copies msg onto its dead-letter topic, recording where it
// came from and why it failed in dlq.* headers.
func deadLetterMessage(msg kafka.Message, cause error, group string) kafka.Message {
	headers := append(make([]kafka.Header, 0, len(msg.Headers)+5), msg.Headers...)
	add := func(k, v string) { headers = append(headers, kafka.Header{Key: "dlq." + k, Value: []byte(v)}) }
	add("original_topic", msg.Topic)
	add("original_partition", strconv.Itoa(msg.Partition))
	add("original_offset", strconv.FormatInt(msg.Offset, 10))
	add("consumer_group", group)
	if cause != nil {
		add("error", cause.Error())
	}
	return kafka.Message{
		Topic:   DLQTopic(msg.Topic),
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
}

// Publish writes msg to its dead-letter topic.
func (d *DLQProducer) Publish(ctx context.Context, msg kafka.Message, cause error, group string) error {
	dead := deadLetterMessage(msg, cause, group)
	log := d.logger.With(
		slog.String("dlq_topic", dead.Topic),
		slog.String("original_topic", msg.Topic),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	if err := d.writer.WriteMessages(ctx, dead); err != nil {
		log.ErrorContext(ctx, "dead-letter publish failed", slog.String("error", err.Error()))
		return fmt.Errorf("publish to %s: %w", dead.Topic, err)
	}
	log.WarnContext(ctx, "message dead-lettered", slog.String("consumer_group", group))
	return nil
}

// Close closes the writer.
func (d *DLQProducer) Close() error {
	return d.writer.Close()
}
