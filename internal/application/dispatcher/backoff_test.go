package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDelayGrowsExponentially(t *testing.T) {
	base := 2 * time.Second
	max := 5 * time.Minute

	for attempt := 0; attempt < 5; attempt++ {
		delay := nextDelay(base, max, attempt)
		floor := base << uint(attempt)
		assert.GreaterOrEqual(t, delay, floor, "attempt %d", attempt)
		// Jitter adds at most one base on top.
		assert.LessOrEqual(t, delay, floor+base, "attempt %d", attempt)
	}
}

func TestNextDelayIsCapped(t *testing.T) {
	base := 2 * time.Second
	max := 30 * time.Second

	for attempt := 4; attempt < 40; attempt++ {
		assert.Equal(t, max, nextDelay(base, max, attempt))
	}
}

func TestNextDelayGuardsDegenerateInputs(t *testing.T) {
	// Zero base falls back to one second.
	delay := nextDelay(0, time.Minute, 0)
	assert.GreaterOrEqual(t, delay, time.Second)
	assert.LessOrEqual(t, delay, 2*time.Second)

	// Max below base is lifted to base.
	assert.Equal(t, time.Second, nextDelay(time.Second, time.Millisecond, 10))

	// Negative attempt behaves like the first attempt.
	delay = nextDelay(time.Second, time.Minute, -3)
	assert.GreaterOrEqual(t, delay, time.Second)
	assert.LessOrEqual(t, delay, 2*time.Second)
}
