package deadline

import "time"

const (
	// HardLimit is the wall-clock budget of one scrape request.
	HardLimit = 15 * time.Second
	// StageMinimum must remain before a new platform or page attempt starts.
	StageMinimum = 1500 * time.Millisecond
	// MobileMinimum must be strictly exceeded before the mobile fallback starts.
	MobileMinimum = 2500 * time.Millisecond
)

// Clock returns the current time.
type Clock func() time.Time

// Deadline only gates whether new stages begin. In-flight operations run
// to their own timeouts.
type Deadline struct {
	start time.Time
	limit time.Duration
	now   Clock
}

func New(limit time.Duration) *Deadline {
	return NewWithClock(limit, time.Now)
}

func NewWithClock(limit time.Duration, now Clock) *Deadline {
	if limit <= 0 {
		limit = HardLimit
	}
	if now == nil {
		now = time.Now
	}
	return &Deadline{start: now(), limit: limit, now: now}
}

func (d *Deadline) At() time.Time {
	return d.start.Add(d.limit)
}

func (d *Deadline) Elapsed() time.Duration {
	return d.now().Sub(d.start)
}

// Remaining never goes below zero.
func (d *Deadline) Remaining() time.Duration {
	r := d.limit - d.Elapsed()
	if r < 0 {
		return 0
	}
	return r
}

// Allows reports whether at least min remains.
func (d *Deadline) Allows(min time.Duration) bool {
	return d.Remaining() >= min
}

// Exceeds reports whether strictly more than min remains.
func (d *Deadline) Exceeds(min time.Duration) bool {
	return d.Remaining() > min
}
