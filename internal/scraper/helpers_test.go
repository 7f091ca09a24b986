package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// sleepRecorder records pauses and moves the fake clock instead of sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	clock  *fakeClock
	pauses []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.pauses = append(r.pauses, d)
	r.mu.Unlock()
	if r.clock != nil {
		r.clock.Advance(d)
	}
	return ctx.Err()
}

func (r *sleepRecorder) Pauses() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.pauses))
	copy(out, r.pauses)
	return out
}

func flipkartHTML(names ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="_1YokD2">`)
	for i, name := range names {
		fmt.Fprintf(&b, `<div class="_2kHMtA"><a href="/item-%d/p/itm%d"><div class="_4rR01T">%s</div><div class="_30jeq3">₹%d</div><div class="_3I9_wc">₹%d</div></a></div>`,
			i, i, name, 10000+i, 12000+i)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func flipkartCards(n int) string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("realme Narzo %d", i)
	}
	return flipkartHTML(names...)
}

func amazonCards(n int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="s-main-slot">`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<div class="s-result-item" data-component-type="s-search-result" data-asin="B0%04d"><h2><a href="/dp/B0%04d"><span class="a-size-medium">Samsung Galaxy A%d</span></a></h2><span class="a-price"><span class="a-offscreen">₹%d</span></span></div>`,
			i, i, i, 9000+i)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}
