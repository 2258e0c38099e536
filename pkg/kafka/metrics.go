package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Consumer outcomes. A fetched message counts as received, then as one of
// processed, malformed or failed. duplicate and dead_lettered are counted on
// top of those.
const (
	outcomeReceived     = "received"
	outcomeProcessed    = "processed"
	outcomeDuplicate    = "duplicate"
	outcomeMalformed    = "malformed"
	outcomeFailed       = "failed"
	outcomeDeadLettered = "dead_lettered"
)

// Producer outcomes.
const (
	outcomePublished = "published"
	outcomeError     = "error"
)

var (
	consumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumer_messages_total",
		Help: "Consumed Kafka messages by outcome.",
	}, []string{"topic", "consumer_group", "outcome"})

	consumerHandleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_consumer_handle_duration_seconds",
		Help:    "Time spent handling one message, retries included.",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"topic", "consumer_group"})

	producerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_producer_messages_total",
		Help: "Kafka publish attempts by outcome.",
	}, []string{"topic", "outcome"})

	producerPublishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_producer_publish_duration_seconds",
		Help:    "Kafka publish latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
)

func countConsumed(topic, group, outcome string) {
	consumerMessages.WithLabelValues(topic, group, outcome).Inc()
}
