package pipeline

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryAfterHint(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("seconds", func(t *testing.T) {
		d, ok := retryAfterHint("7", now)
		assert.True(t, ok)
		assert.Equal(t, 7*time.Second, d)
	})

	t.Run("http date", func(t *testing.T) {
		d, ok := retryAfterHint(now.Add(30*time.Second).Format(http.TimeFormat), now)
		assert.True(t, ok)
		assert.Equal(t, 30*time.Second, d)
	})

	t.Run("date in the past clamps to zero", func(t *testing.T) {
		d, ok := retryAfterHint(now.Add(-time.Minute).Format(http.TimeFormat), now)
		assert.True(t, ok)
		assert.Equal(t, time.Duration(0), d)
	})

	t.Run("absent", func(t *testing.T) {
		_, ok := retryAfterHint("", now)
		assert.False(t, ok)
	})

	t.Run("garbage", func(t *testing.T) {
		_, ok := retryAfterHint("soon", now)
		assert.False(t, ok)
	})

	t.Run("negative seconds", func(t *testing.T) {
		_, ok := retryAfterHint("-3", now)
		assert.False(t, ok)
	})
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	c := New(&fakeTokens{}, "http://directory.local",
		WithBackoff(time.Second, 10*time.Second),
		WithJitter(false),
	)

	assert.Equal(t, 1*time.Second, c.backoffDelay(0))
	assert.Equal(t, 2*time.Second, c.backoffDelay(1))
	assert.Equal(t, 4*time.Second, c.backoffDelay(2))
	assert.Equal(t, 8*time.Second, c.backoffDelay(3))
	assert.Equal(t, 10*time.Second, c.backoffDelay(4))
	assert.Equal(t, 10*time.Second, c.backoffDelay(9))
}

func TestBackoffJitterStaysInRange(t *testing.T) {
	c := New(&fakeTokens{}, "http://directory.local",
		WithBackoff(time.Second, 10*time.Second),
		WithJitter(true),
	)

	for i := 0; i < 100; i++ {
		d := c.backoffDelay(2) // nominal 4s
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 4*time.Second)
	}
}

func TestRetryDelayPrefersServerHint(t *testing.T) {
	c := New(&fakeTokens{}, "http://directory.local",
		WithBackoff(time.Second, 10*time.Second),
		WithJitter(false),
	)

	header := http.Header{}
	header.Set("Retry-After", "3")
	assert.Equal(t, 3*time.Second, c.retryDelay(0, header))

	assert.Equal(t, time.Second, c.retryDelay(0, http.Header{}))
}
