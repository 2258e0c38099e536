// Package event publishes SONIX domain events, including the mail requests
// consumed by the mailer worker.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/domain"
	pkgkafka "github.com/SONIX-Kelompok-6/sonix-be/pkg/kafka"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/logger"
)

// Kafka topic constants for SONIX domain events.
var (
	TopicMailRequested  = pkgkafka.Topic("mail", "requested")
	TopicUserRegistered = pkgkafka.Topic("user", "registered")
	TopicUserVerified   = pkgkafka.Topic("user", "verified")
	TopicReviewCreated  = pkgkafka.Topic("review", "created")
)

// Event types carried on TopicMailRequested.
const (
	EventTypeMailOTP           = "mail.otp"
	EventTypeMailPasswordReset = "mail.password_reset"
)

// Aggregate type constants.
const (
	AggregateTypeUser   = "user"
	AggregateTypeReview = "review"
)

// SourceAPI identifies events originating from the HTTP API.
const SourceAPI = "sonix-api"

// MailRequest is the payload of a mail.* event. Exactly one of Code and
// Token is set, depending on Kind.
type MailRequest struct {
	Kind             string `json:"kind"`
	UserID           int64  `json:"user_id"`
	To               string `json:"to"`
	Username         string `json:"username"`
	Code             string `json:"code,omitempty"`
	Token            string `json:"token,omitempty"`
	ExpiresInMinutes int    `json:"expires_in_minutes"`
}

// EventType returns the event type a request is published under.
func (r MailRequest) EventType() string {
	if r.Kind == EventTypeMailPasswordReset {
		return EventTypeMailPasswordReset
	}
	return EventTypeMailOTP
}

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ID     string `json:"id"`
	ShoeID string `json:"shoe_id"`
	UserID int64  `json:"user_id"`
	Rating int    `json:"rating"`
}

// Publisher sends an event to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes SONIX domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// RequestMail publishes a mail request for the mailer worker.
func (p *Producer) RequestMail(ctx context.Context, req MailRequest) error {
	return p.publish(ctx, TopicMailRequested, req.EventType(), strconv.FormatInt(req.UserID, 10), AggregateTypeUser, req)
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{ID: user.ID, Username: user.Username, Email: user.Email}
	return p.publish(ctx, TopicUserRegistered, TopicUserRegistered, strconv.FormatInt(user.ID, 10), AggregateTypeUser, data)
}

// PublishUserVerified publishes a user.verified event.
func (p *Producer) PublishUserVerified(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{ID: user.ID, Username: user.Username, Email: user.Email}
	return p.publish(ctx, TopicUserVerified, TopicUserVerified, strconv.FormatInt(user.ID, 10), AggregateTypeUser, data)
}

// PublishReviewCreated publishes a review.created event keyed by shoe.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	data := ReviewCreatedData{ID: review.ID, ShoeID: review.ShoeID, UserID: review.UserID, Rating: review.Rating}
	return p.publish(ctx, TopicReviewCreated, TopicReviewCreated, review.ShoeID, AggregateTypeReview, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) error {
	ev, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
