// Package ratelimit is the fixed window submission limiter applied before a
// job is enqueued.
package ratelimit

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLimit  = 10
	DefaultWindow = time.Minute

	keyPrefix = "submissions:"
)

// ErrUnavailable is returned when the counter store cannot be reached.
var ErrUnavailable = errors.New("rate limiter unavailable")

// Counter is an atomic increment with a time to live. The ttl is set when the
// key is created and the remaining ttl is returned with every count.
type Counter interface {
	IncrWithTTL(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

type Decision struct {
	Allowed bool
	Count   int64
	// RetryAfter is the remaining lifetime of the window when rejected.
	RetryAfter time.Duration
}

type Limiter struct {
	counter Counter
	limit   int64
	window  time.Duration
}

func NewLimiter(counter Counter, limit int64, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if window <= 0 {
		window = DefaultWindow
	}

	return &Limiter{counter: counter, limit: limit, window: window}
}

// Allow counts a submission attempt of the principal. Rejected attempts count
// too, they do not extend the window.
func (l *Limiter) Allow(ctx context.Context, principalID string) (Decision, error) {
	count, ttl, err := l.counter.IncrWithTTL(ctx, keyPrefix+principalID, l.window)

	if err != nil {
		return Decision{}, errors.Wrapf(ErrUnavailable, "failed to count submission: %s", err)
	}

	if count <= l.limit {
		return Decision{Allowed: true, Count: count}, nil
	}

	if ttl <= 0 {
		ttl = l.window
	}

	log.Info().Str("principalID", principalID).Int64("count", count).Dur("retryAfter", ttl).Msg("submission rate limited")

	return Decision{Count: count, RetryAfter: ttl}, nil
}
