package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// claimTTL bounds how long a claim survives a worker that crashed mid-event.
const claimTTL = 5 * time.Minute

const (
	statePending = "pending"
	stateDone    = "done"
)

// IdempotencyStore tracks event IDs across worker replicas. A claim is taken
// before handling, then either completed or released.
type IdempotencyStore interface {
	// Claim reserves eventID. It reports false when another delivery already
	// holds or finished it.
	Claim(ctx context.Context, eventID string) (bool, error)
	// Complete marks a claimed event as handled for the store's TTL.
	Complete(ctx context.Context, eventID string) error
	// Release drops a claim so a redelivery can try again.
	Release(ctx context.Context, eventID string) error
}

// RedisIdempotencyStore claims event IDs with SET NX so concurrent replicas
// never handle the same event twice.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisIdempotencyStore creates a store whose keys live under
// "<prefix>:event:" and stay for ttl once completed.
func NewRedisIdempotencyStore(client *redis.Client, prefix string, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisIdempotencyStore) key(eventID string) string {
	return s.prefix + ":event:" + eventID
}

func (s *RedisIdempotencyStore) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(eventID), statePending, min(claimTTL, s.ttl)).Result()
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	return ok, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, eventID string) error {
	if err := s.client.Set(ctx, s.key(eventID), stateDone, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete event %s: %w", eventID, err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, s.key(eventID)).Err(); err != nil {
		return fmt.Errorf("release event %s: %w", eventID, err)
	}
	return nil
}

type claim struct {
	state   string
	expires time.Time
}

// MemoryIdempotencyStore is the single-process IdempotencyStore used in
// development and tests.
type MemoryIdempotencyStore struct {
	mu     sync.Mutex
	claims map[string]claim
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryIdempotencyStore creates an in-memory store.
func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{claims: make(map[string]claim), ttl: ttl, now: time.Now}
}

func (s *MemoryIdempotencyStore) Claim(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if c, ok := s.claims[eventID]; ok && now.Before(c.expires) {
		return false, nil
	}
	s.claims[eventID] = claim{state: statePending, expires: now.Add(min(claimTTL, s.ttl))}
	return true, nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, eventID string) error {
	s.mu.Lock()
	s.claims[eventID] = claim{state: stateDone, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, eventID string) error {
	s.mu.Lock()
	delete(s.claims, eventID)
	s.mu.Unlock()
	return nil
}

// IdempotentHandler runs inner at most once per event ID. Duplicates are
// acknowledged and counted. When the store is unreachable the event is
// handled anyway: a repeated mail is preferable to a lost one.
func IdempotentHandler(store IdempotencyStore, topic, group string, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, event *Event) error {
		if event.EventID == "" {
			return inner(ctx, event)
		}
		attrs := []any{slog.String("event_id", event.EventID), slog.String("event_type", event.EventType)}

		claimed, err := store.Claim(ctx, event.EventID)
		if err != nil {
			logger.WarnContext(ctx, "idempotency claim failed, handling without it",
				append(attrs, slog.String("error", err.Error()))...)
			return inner(ctx, event)
		}
		if !claimed {
			countConsumed(topic, group, outcomeDuplicate)
			logger.DebugContext(ctx, "duplicate event skipped", attrs...)
			return nil
		}

		if err := inner(ctx, event); err != nil {
			// The claim must not outlive a failed attempt or the retry is skipped.
			if relErr := store.Release(context.WithoutCancel(ctx), event.EventID); relErr != nil {
				logger.WarnContext(ctx, "idempotency release failed",
					append(attrs, slog.String("error", relErr.Error()))...)
			}
			return err
		}
		if err := store.Complete(ctx, event.EventID); err != nil {
			logger.WarnContext(ctx, "idempotency complete failed",
				append(attrs, slog.String("error", err.Error()))...)
		}
		return nil
	}
}
