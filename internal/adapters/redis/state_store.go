package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore holds one-time login state tokens under "exg:state:<token>".
// Consume uses GETDEL so concurrent callbacks carrying the same token
// race to a single winner.
type StateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewStateStore creates a state store with the default key prefix.
func NewStateStore(client redis.UniversalClient) *StateStore {
	return &StateStore{
		client: client,
		prefix: "exg:state:",
	}
}

func (s *StateStore) Put(ctx context.Context, token string, payload []byte, ttl time.Duration) error {
	if token == "" {
		return errors.New("state token cannot be empty")
	}
	if ttl <= 0 {
		return errors.New("state ttl must be positive")
	}
	return s.client.Set(ctx, s.prefix+token, payload, ttl).Err()
}

func (s *StateStore) Consume(ctx context.Context, token string) ([]byte, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	data, err := s.client.GetDel(ctx, s.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis getdel: %w", err)
	}
	return []byte(data), nil
}
