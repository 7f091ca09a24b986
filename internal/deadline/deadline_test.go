package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestDeadlineRemaining(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	d := NewWithClock(HardLimit, clock.Now)

	assert.Equal(t, HardLimit, d.Remaining())
	assert.Equal(t, clock.t.Add(HardLimit), d.At())

	clock.Advance(9 * time.Second)
	assert.Equal(t, 6*time.Second, d.Remaining())
	assert.Equal(t, 9*time.Second, d.Elapsed())

	clock.Advance(20 * time.Second)
	assert.Equal(t, time.Duration(0), d.Remaining())
}

func TestDeadlineGates(t *testing.T) {
	tests := []struct {
		name       string
		elapsed    time.Duration
		wantStage  bool
		wantMobile bool
	}{
		{name: "fresh", elapsed: 0, wantStage: true, wantMobile: true},
		{name: "mobile boundary is strict", elapsed: HardLimit - MobileMinimum, wantStage: true, wantMobile: false},
		{name: "stage boundary inclusive", elapsed: HardLimit - StageMinimum, wantStage: true, wantMobile: false},
		{name: "below stage minimum", elapsed: HardLimit - StageMinimum + time.Millisecond, wantStage: false, wantMobile: false},
		{name: "overrun", elapsed: HardLimit + time.Second, wantStage: false, wantMobile: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(0, 0)}
			d := NewWithClock(HardLimit, clock.Now)
			clock.Advance(tt.elapsed)

			assert.Equal(t, tt.wantStage, d.Allows(StageMinimum))
			assert.Equal(t, tt.wantMobile, d.Exceeds(MobileMinimum))
		})
	}
}

func TestNewDefaultsLimit(t *testing.T) {
	d := New(0)
	assert.InDelta(t, float64(HardLimit), float64(d.Remaining()), float64(time.Second))
}
