package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RegulatorConfig tunes the failed-attempt counter.
type RegulatorConfig struct {
	// MaxAttempts is the number of failures tolerated inside one window.
	MaxAttempts int
	// Window is the counting window; the counter key expires Window
	// after the first failure in it.
	Window time.Duration
	// Cooldown is how long a ban lasts once the threshold is crossed,
	// counted from the crossing failure. Zero falls back to Window.
	Cooldown time.Duration
}

// Regulator throttles authentication failures per subject using
// fixed-window counters under "exg:regulation:<subject>". INCR keeps the
// count atomic across gateway instances.
type Regulator struct {
	client redis.UniversalClient
	prefix string
	config RegulatorConfig
}

// NewRegulator creates a Regulator backed by the given Redis client.
func NewRegulator(client redis.UniversalClient, cfg RegulatorConfig) *Regulator {
	return &Regulator{
		client: client,
		prefix: "exg:regulation:",
		config: cfg,
	}
}

// Allowed reports whether the subject is under the failure threshold.
func (r *Regulator) Allowed(ctx context.Context, subject string) (bool, error) {
	if subject == "" {
		return true, nil
	}

	count, err := r.client.Get(ctx, r.prefix+subject).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}
	return count < int64(r.config.MaxAttempts), nil
}

// RecordFailure counts one failed attempt and reports whether the
// subject just crossed the threshold.
func (r *Regulator) RecordFailure(ctx context.Context, subject string) (bool, error) {
	if subject == "" {
		return false, nil
	}

	key := r.prefix + subject
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}

	// Fixed-window semantics: the TTL is set only by the first failure.
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.config.Window).Err(); err != nil {
			return false, fmt.Errorf("redis expire: %w", err)
		}
	}

	banned := count >= int64(r.config.MaxAttempts)
	if banned {
		// The ban holds for the full cooldown even when the threshold is
		// crossed late in the window.
		cooldown := r.config.Cooldown
		if cooldown <= 0 {
			cooldown = r.config.Window
		}
		if err := r.client.Expire(ctx, key, cooldown).Err(); err != nil {
			return false, fmt.Errorf("redis expire: %w", err)
		}
	}

	return banned, nil
}

// Reset clears the subject's failure count after a successful login.
func (r *Regulator) Reset(ctx context.Context, subject string) error {
	if subject == "" {
		return nil
	}
	return r.client.Del(ctx, r.prefix+subject).Err()
}
