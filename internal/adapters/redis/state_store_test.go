package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_PutAndConsume(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewStateStore(client)
	ctx := context.Background()

	err := store.Put(ctx, "tok-1", []byte(`{"provider_id":"corp"}`), time.Minute)
	require.NoError(t, err)

	payload, err := store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"provider_id":"corp"}`), payload)

	// A token is one-time: the second consume misses.
	_, err = store.Consume(ctx, "tok-1")
	assert.Equal(t, ErrNotFound, err)
}

func TestStateStore_ConsumeUnknown(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewStateStore(client)

	_, err := store.Consume(context.Background(), "never-stored")
	assert.Equal(t, ErrNotFound, err)

	_, err = store.Consume(context.Background(), "")
	assert.Equal(t, ErrNotFound, err)
}

func TestStateStore_TTL(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewStateStore(client)
	ctx := context.Background()

	err := store.Put(ctx, "tok-ttl", []byte("payload"), 100*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)

	_, err = store.Consume(ctx, "tok-ttl")
	assert.Equal(t, ErrNotFound, err)
}

func TestStateStore_PutValidation(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewStateStore(client)
	ctx := context.Background()

	assert.Error(t, store.Put(ctx, "", []byte("x"), time.Minute))
	assert.Error(t, store.Put(ctx, "tok", []byte("x"), 0))
}

func TestStateStore_ConcurrentConsumeSingleWinner(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewStateStore(client)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tok-race", []byte("payload"), time.Minute))

	const workers = 8
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, "tok-race"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count)
}
