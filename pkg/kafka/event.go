package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// TopicPrefix namespaces every SONIX topic.
const TopicPrefix = "sonix"

const envelopeVersion = 1

// Header keys copied from the envelope onto each message so consumers and
// operators can route or inspect without decoding the body.
const (
	headerEventType     = "event_type"
	headerSource        = "source"
	headerCorrelationID = "correlation_id"
)

// ErrMalformedEvent is returned for messages that do not decode into a usable
// envelope. Retrying such a message never helps.
var ErrMalformedEvent = errors.New("malformed event")

// Topic returns the fully qualified topic for an aggregate and action, e.g.
// sonix.mail.requested.
func Topic(aggregate, action string) string {
	return TopicPrefix + "." + aggregate + "." + action
}

// Event is the envelope all messages travel in. Data holds the JSON payload
// of the given EventType.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent wraps data in a fresh envelope.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       envelopeVersion,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          raw,
	}, nil
}

// WithCorrelationID tags the event with the request that caused it.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Marshal encodes the envelope.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalData decodes the payload into target.
func (e *Event) UnmarshalData(target any) error {
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return nil
}

// message renders the event for topic. Messages are keyed by aggregate so a
// user's or shoe's events stay on one partition, in order.
func (e *Event) message(topic string) (kafka.Message, error) {
	body, err := e.Marshal()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}
	headers := []kafka.Header{
		{Key: headerEventType, Value: []byte(e.EventType)},
		{Key: headerSource, Value: []byte(e.Source)},
	}
	if e.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: headerCorrelationID, Value: []byte(e.CorrelationID)})
	}
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(e.AggregateID),
		Value:   body,
		Headers: headers,
	}, nil
}

// UnmarshalEvent decodes an envelope. Bodies that are not JSON objects or
// carry no event_type yield ErrMalformedEvent.
func UnmarshalEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.EventType == "" {
		return nil, fmt.Errorf("%w: missing event_type", ErrMalformedEvent)
	}
	return &ev, nil
}
