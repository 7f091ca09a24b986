package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Jitter produces human-like pauses uniformly drawn from [min, max].
type Jitter struct {
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
	rng      *rand.Rand
	sleep    Sleeper
}

func NewJitter(minDelay, maxDelay time.Duration) *Jitter {
	return &Jitter{
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:    Sleep,
	}
}

// WithSleeper replaces the pause implementation.
func (j *Jitter) WithSleeper(s Sleeper) *Jitter {
	j.sleep = s
	return j
}

// WithSeed makes the delay sequence deterministic.
func (j *Jitter) WithSeed(seed int64) *Jitter {
	j.rng = rand.New(rand.NewSource(seed))
	return j
}

// Wait pauses for one jittered delay and returns it.
func (j *Jitter) Wait(ctx context.Context) (time.Duration, error) {
	delay := j.Delay()
	return delay, j.sleep(ctx, delay)
}

// Delay draws the next delay without sleeping.
func (j *Jitter) Delay() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.maxDelay <= j.minDelay {
		return j.minDelay
	}

	delta := j.maxDelay - j.minDelay
	jitter := time.Duration(j.rng.Int63n(int64(delta) + 1))
	return j.minDelay + jitter
}
