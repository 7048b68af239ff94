package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionLevel(t *testing.T) {
	assert.Equal(t, LevelNone, Session{}.Level())
	assert.Equal(t, LevelOneFactor, Session{ID: "s1"}.Level())
	assert.Equal(t, LevelTwoFactor, Session{ID: "s1", SecondFactor: true}.Level())
}

func TestAuthLevelOrdering(t *testing.T) {
	assert.True(t, LevelTwoFactor > LevelOneFactor)
	assert.True(t, LevelOneFactor > LevelNone)
}

func TestAuthLevelString(t *testing.T) {
	assert.Equal(t, "none", LevelNone.String())
	assert.Equal(t, "one_factor", LevelOneFactor.String())
	assert.Equal(t, "two_factor", LevelTwoFactor.String())
}

func TestSessionExpiredAtAbsolute(t *testing.T) {
	now := time.Now()
	s := Session{
		ID:           "s1",
		LastActivity: now,
		ExpiresAt:    now.Add(time.Hour),
	}

	assert.False(t, s.ExpiredAt(now, 30*time.Minute))
	assert.True(t, s.ExpiredAt(now.Add(time.Hour), 0))
	// Activity cannot stretch the absolute bound.
	s.LastActivity = now.Add(59 * time.Minute)
	assert.True(t, s.ExpiredAt(now.Add(61*time.Minute), 30*time.Minute))
}

func TestSessionExpiredAtIdle(t *testing.T) {
	now := time.Now()
	s := Session{
		ID:           "s1",
		LastActivity: now,
		ExpiresAt:    now.Add(12 * time.Hour),
	}

	assert.False(t, s.ExpiredAt(now.Add(29*time.Minute), 30*time.Minute))
	assert.True(t, s.ExpiredAt(now.Add(31*time.Minute), 30*time.Minute))
	// Zero window disables idle expiry.
	assert.False(t, s.ExpiredAt(now.Add(31*time.Minute), 0))
}

func TestSessionInGroup(t *testing.T) {
	s := Session{Groups: []string{"employees", "vpn-users"}}
	assert.True(t, s.InGroup("vpn-users"))
	assert.False(t, s.InGroup("admins"))
	assert.False(t, Session{}.InGroup("employees"))
}
