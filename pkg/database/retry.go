package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Startup retry schedule shared by the Postgres pool, the Redis client and
// migrations: up to connectAttempts tries, doubling from connectBaseWait.
const (
	connectAttempts = 4
	connectBaseWait = 500 * time.Millisecond
	connectMaxWait  = 5 * time.Second
)

// backoff returns the wait before retry number attempt (0-based). The delay
// doubles per attempt, is capped at connectMaxWait and carries up to 20%
// random jitter so replicas started together do not reconnect in lockstep.
func backoff(attempt int) time.Duration {
	wait := connectBaseWait << max(attempt, 0)
	if wait <= 0 || wait > connectMaxWait {
		wait = connectMaxWait
	}
	jitter := time.Duration(rand.Int64N(int64(wait) / 5)) // #nosec G404 -- retry jitter
	return wait - jitter
}

// transient reports whether err is a dial or network failure worth retrying.
// SQL errors such as syntax or constraint violations are never transient.
func transient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET)
}

// withRetry runs fn until it succeeds, fails with a non-transient error or
// runs out of attempts.
func withRetry(ctx context.Context, logger *slog.Logger, what string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if err = fn(ctx); err == nil || !transient(err) {
			return err
		}
		if attempt == connectAttempts-1 {
			break
		}

		wait := backoff(attempt)
		if logger != nil {
			logger.WarnContext(ctx, what+" failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", what, ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", what, connectAttempts, err)
}
