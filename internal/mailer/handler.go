package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/event"
	pkgkafka "github.com/SONIX-Kelompok-6/sonix-be/pkg/kafka"
)

// ConsumerGroupID is the Kafka consumer group of the mailer worker.
const ConsumerGroupID = "sonix-mailer"

// Handler returns the Kafka handler for TopicMailRequested. Unknown event
// types are skipped. A request that cannot be rendered is returned as an
// error so the consumer dead-letters it.
func Handler(sender Sender, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, ev *pkgkafka.Event) error {
		switch ev.EventType {
		case event.EventTypeMailOTP, event.EventTypeMailPasswordReset:
		default:
			logger.WarnContext(ctx, "unknown event type received",
				slog.String("event_type", ev.EventType),
				slog.String("event_id", ev.EventID),
			)
			return nil
		}

		var req event.MailRequest
		if err := ev.UnmarshalData(&req); err != nil {
			return fmt.Errorf("decode mail request: %w", err)
		}
		req.Kind = ev.EventType

		msg, err := Render(req)
		if err != nil {
			return err
		}
		if err := sender.Send(ctx, msg); err != nil {
			return fmt.Errorf("send %s mail via %s: %w", ev.EventType, sender.Name(), err)
		}

		logger.InfoContext(ctx, "mail sent",
			slog.String("event_id", ev.EventID),
			slog.String("kind", ev.EventType),
			slog.Int64("user_id", req.UserID),
		)
		return nil
	}
}
