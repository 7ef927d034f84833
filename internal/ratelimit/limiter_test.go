package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	l := New(limit, window)
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_Allow(t *testing.T) {
	t.Run("admits up to the limit and rejects the next attempt", func(t *testing.T) {
		l, _ := newTestLimiter(30, time.Minute)

		for i := 0; i < 30; i++ {
			assert.True(t, l.Allow("10.0.0.1"), "attempt %d should be admitted", i+1)
		}
		assert.False(t, l.Allow("10.0.0.1"))
	})

	t.Run("window slides with time", func(t *testing.T) {
		l, now := newTestLimiter(30, time.Minute)

		for i := 0; i < 30; i++ {
			l.Allow("10.0.0.1")
		}
		assert.False(t, l.Allow("10.0.0.1"))

		*now = now.Add(30 * time.Second)
		assert.False(t, l.Allow("10.0.0.1"))

		*now = now.Add(31 * time.Second)
		assert.True(t, l.Allow("10.0.0.1"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		l, _ := newTestLimiter(1, time.Minute)

		assert.True(t, l.Allow("10.0.0.1"))
		assert.False(t, l.Allow("10.0.0.1"))
		assert.True(t, l.Allow("10.0.0.2"))
	})

	t.Run("rejected attempts are not counted", func(t *testing.T) {
		l, now := newTestLimiter(2, time.Minute)

		assert.True(t, l.Allow("10.0.0.1"))
		assert.True(t, l.Allow("10.0.0.1"))
		for i := 0; i < 10; i++ {
			assert.False(t, l.Allow("10.0.0.1"))
		}

		// Only the two admissions occupy the window, so once they age out
		// the client is admitted again.
		*now = now.Add(time.Minute + time.Second)
		assert.True(t, l.Allow("10.0.0.1"))
	})
}

func TestLimiter_prune(t *testing.T) {
	l, now := newTestLimiter(5, time.Minute)

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	assert.Equal(t, 2, l.Len())

	*now = now.Add(30 * time.Second)
	l.Allow("10.0.0.2")

	*now = now.Add(45 * time.Second)
	l.prune()

	// 10.0.0.1 went idle for the whole window, 10.0.0.2 did not.
	assert.Equal(t, 1, l.Len())
}
