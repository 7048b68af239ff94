package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegulator_ThresholdReached(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	reg := NewRegulator(client, RegulatorConfig{MaxAttempts: 3, Window: time.Minute})
	ctx := context.Background()

	allowed, err := reg.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)

	for i := 0; i < 2; i++ {
		banned, err := reg.RecordFailure(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, banned, "attempt %d", i+1)
	}

	banned, err := reg.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, banned)

	allowed, err = reg.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRegulator_SubjectsIndependent(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	reg := NewRegulator(client, RegulatorConfig{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	banned, err := reg.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, banned)

	allowed, err := reg.Allowed(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRegulator_Reset(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	reg := NewRegulator(client, RegulatorConfig{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	_, err := reg.RecordFailure(ctx, "alice")
	require.NoError(t, err)

	allowed, err := reg.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, reg.Reset(ctx, "alice"))

	allowed, err = reg.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRegulator_WindowExpires(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	reg := NewRegulator(client, RegulatorConfig{MaxAttempts: 1, Window: 100 * time.Millisecond})
	ctx := context.Background()

	banned, err := reg.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, banned)

	time.Sleep(200 * time.Millisecond)

	allowed, err := reg.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRegulator_CooldownOutlivesCountingWindow(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	reg := NewRegulator(client, RegulatorConfig{
		MaxAttempts: 2,
		Window:      200 * time.Millisecond,
		Cooldown:    time.Minute,
	})
	ctx := context.Background()

	_, err := reg.RecordFailure(ctx, "alice")
	require.NoError(t, err)

	// The second failure lands late in the window and crosses the
	// threshold; the ban must still hold for the full cooldown.
	time.Sleep(100 * time.Millisecond)
	banned, err := reg.RecordFailure(ctx, "alice")
	require.NoError(t, err)
	require.True(t, banned)

	time.Sleep(200 * time.Millisecond)

	allowed, err := reg.Allowed(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRegulator_EmptySubject(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	reg := NewRegulator(client, RegulatorConfig{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	allowed, err := reg.Allowed(ctx, "")
	require.NoError(t, err)
	assert.True(t, allowed)

	banned, err := reg.RecordFailure(ctx, "")
	require.NoError(t, err)
	assert.False(t, banned)

	assert.NoError(t, reg.Reset(ctx, ""))
}
