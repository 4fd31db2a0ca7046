package invoker

import (
	"context"
	"math/rand"
	"time"

	"capcall/internal/domain"
)

// backoff produces the delay before each retry: the base delay doubles
// per attempt up to the cap, plus up to jitter of random spread so
// concurrent retriers fan out.
type backoff struct {
	base    time.Duration
	max     time.Duration
	jitter  time.Duration
	current time.Duration
	rng     *rand.Rand
}

func newBackoff(policy domain.RetryPolicy) *backoff {
	base := policy.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	maxDelay := policy.MaxDelay
	if maxDelay < base {
		maxDelay = base
	}
	jitter := policy.JitterMax
	if jitter < 0 {
		jitter = 0
	}
	return &backoff{
		base:    base,
		max:     maxDelay,
		jitter:  jitter,
		current: base,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *backoff) Reset() {
	b.current = b.base
}

// Next returns the delay for the upcoming retry and advances the
// schedule.
func (b *backoff) Next() time.Duration {
	delay := b.current

	next := b.current * 2
	if next > b.max {
		next = b.max
	}
	b.current = next

	if b.jitter > 0 {
		delay += time.Duration(b.rng.Int63n(int64(b.jitter) + 1))
	}
	return delay
}

// sleep waits for delay or until ctx is done, whichever comes first.
func sleep(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
