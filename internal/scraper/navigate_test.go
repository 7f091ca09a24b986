package scraper

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/browser/browsertest"
	"github.com/maltedev/listing-scraper/internal/diag"
)

const (
	searchURL = "https://www.flipkart.com/search?q=phone"
	anchorSel = "a[href*='/p/']"
	gridSel   = "div._1YokD2"
)

var captchaTitle = regexp.MustCompile(`(?i)recaptcha`)

func newTestNavigator(rec *sleepRecorder) *Navigator {
	return NewNavigator(2, 400*time.Millisecond, rec.Sleep)
}

func TestNavigateSelectorNeverAppears(t *testing.T) {
	rec := &sleepRecorder{}
	page := browsertest.NewSession(browser.Desktop, map[string]browsertest.Document{
		searchURL: {Title: "Mobiles"},
	})

	out := newTestNavigator(rec).Navigate(context.Background(), page, searchURL, anchorSel, 9*time.Second, captchaTitle, diag.New(true, nil))

	assert.False(t, out.OK)
	assert.False(t, out.Blocked)
	assert.Len(t, page.Gotos, 2)
	assert.Equal(t, []time.Duration{400 * time.Millisecond}, rec.Pauses())
	assert.Equal(t, []time.Duration{9 * time.Second, 9 * time.Second}, page.Timeouts)
}

func TestNavigateBlockPageStopsImmediately(t *testing.T) {
	rec := &sleepRecorder{}
	page := browsertest.NewSession(browser.Desktop, map[string]browsertest.Document{
		searchURL: {Title: "Flipkart reCAPTCHA", ReadyAll: true},
	})
	trail := diag.New(true, nil)

	out := newTestNavigator(rec).Navigate(context.Background(), page, searchURL, anchorSel, 9*time.Second, captchaTitle, trail)

	assert.False(t, out.OK)
	assert.True(t, out.Blocked)
	assert.Len(t, page.Gotos, 1)
	assert.Empty(t, page.Waits)
	assert.Empty(t, rec.Pauses())
	assert.Contains(t, trail.Lines()[len(trail.Lines())-1], "block page detected by title")
}

func TestNavigateWithoutBlockDetection(t *testing.T) {
	rec := &sleepRecorder{}
	page := browsertest.NewSession(browser.Desktop, map[string]browsertest.Document{
		searchURL: {Title: "Flipkart reCAPTCHA", ReadyAll: true},
	})

	out := newTestNavigator(rec).Navigate(context.Background(), page, searchURL, anchorSel, time.Second, nil, nil)

	assert.True(t, out.OK)
	assert.False(t, out.Blocked)
}

func TestNavigateRetriesGotoError(t *testing.T) {
	rec := &sleepRecorder{}
	page := browsertest.NewSession(browser.Desktop, nil)
	calls := 0
	page.OnGoto = func(url string) {
		calls++
		if calls == 2 {
			page.Documents[url] = browsertest.Document{Title: "Mobiles", Ready: []string{anchorSel}}
		}
	}

	out := newTestNavigator(rec).Navigate(context.Background(), page, searchURL, anchorSel, time.Second, captchaTitle, nil)

	assert.True(t, out.OK)
	assert.Len(t, page.Gotos, 2)
	assert.Equal(t, []time.Duration{400 * time.Millisecond}, rec.Pauses())
}

func TestNavigateCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &sleepRecorder{}
	page := browsertest.NewSession(browser.Desktop, nil)

	out := newTestNavigator(rec).Navigate(ctx, page, searchURL, anchorSel, time.Second, nil, nil)

	assert.False(t, out.OK)
	assert.Len(t, page.Gotos, 1)
}

func TestNavigateTiers(t *testing.T) {
	t.Run("falls back to grid selector", func(t *testing.T) {
		rec := &sleepRecorder{}
		page := browsertest.NewSession(browser.Desktop, map[string]browsertest.Document{
			searchURL: {Title: "Mobiles", Ready: []string{gridSel}},
		})

		out := newTestNavigator(rec).NavigateTiers(context.Background(), page, searchURL, []string{anchorSel, gridSel}, time.Second, captchaTitle, nil)

		assert.True(t, out.OK)
		assert.Len(t, page.Gotos, 3)
		assert.Equal(t, []string{anchorSel, anchorSel, gridSel}, page.Waits)
	})

	t.Run("block ends all tiers", func(t *testing.T) {
		rec := &sleepRecorder{}
		page := browsertest.NewSession(browser.Desktop, map[string]browsertest.Document{
			searchURL: {Title: "reCAPTCHA"},
		})

		out := newTestNavigator(rec).NavigateTiers(context.Background(), page, searchURL, []string{anchorSel, gridSel}, time.Second, captchaTitle, nil)

		assert.True(t, out.Blocked)
		assert.Len(t, page.Gotos, 1)
	})

	t.Run("each tier has its own budget", func(t *testing.T) {
		rec := &sleepRecorder{}
		page := browsertest.NewSession(browser.Desktop, map[string]browsertest.Document{
			searchURL: {Title: "Mobiles"},
		})

		out := newTestNavigator(rec).NavigateTiers(context.Background(), page, searchURL, []string{anchorSel, gridSel}, time.Second, captchaTitle, nil)

		assert.False(t, out.OK)
		assert.False(t, out.Blocked)
		assert.Len(t, page.Gotos, 4)
		assert.Equal(t, []time.Duration{400 * time.Millisecond, 400 * time.Millisecond}, rec.Pauses())
	})
}
