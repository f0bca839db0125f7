package pipeline

import (
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryDelay picks the sleep before the next attempt: a server-supplied
// Retry-After hint wins, otherwise the exponential schedule applies.
// retries is the number of retries already consumed.
func (c *Client) retryDelay(retries int, header http.Header) time.Duration {
	if hint, ok := retryAfterHint(header.Get("Retry-After"), c.clock()); ok {
		return hint
	}
	return c.backoffDelay(retries)
}

// backoffDelay returns base doubled per consumed retry, capped, with
// optional jitter spreading the result over [d/2, d).
func (c *Client) backoffDelay(retries int) time.Duration {
	d := c.baseDelay
	for i := 0; i < retries; i++ {
		d *= 2
		if d >= c.maxDelay {
			d = c.maxDelay
			break
		}
	}
	if c.jitter && d > time.Millisecond {
		half := int64(d / 2)
		d = time.Duration(half + rand.Int64N(half))
	}
	return d
}

// retryAfterHint parses a Retry-After header, which is either a delay in
// whole seconds or an HTTP-date. A date in the past yields zero.
func retryAfterHint(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
