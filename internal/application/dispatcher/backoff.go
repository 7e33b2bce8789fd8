package dispatcher

import (
	"math/rand"
	"time"
)

// nextDelay computes the backoff before retry number attempt+1:
// base * 2^attempt plus up to one base of jitter, capped at max.
func nextDelay(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}

	delay := base << uint(attempt)
	if delay <= 0 || delay > max {
		return max
	}

	delay += time.Duration(rand.Int63n(int64(base)))
	if delay > max {
		return max
	}
	return delay
}
