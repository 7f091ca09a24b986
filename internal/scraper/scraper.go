package scraper

import (
	"context"
	"time"

	"github.com/maltedev/listing-scraper/internal/browser"
	"github.com/maltedev/listing-scraper/internal/deadline"
	"github.com/maltedev/listing-scraper/internal/diag"
	"github.com/maltedev/listing-scraper/internal/models"
)

// SessionFactory opens hardened rendering sessions. *browser.Browser is
// the production implementation.
type SessionFactory interface {
	NewSession(ctx context.Context, device browser.Device) (browser.Session, error)
}

// Scraper runs one listing request end to end.
type Scraper interface {
	Scrape(ctx context.Context, req *models.ScrapeRequest, trail *diag.Trail) (*models.ScrapeResult, error)
}

// Pacing controls the human-like pauses around one extraction.
type Pacing struct {
	MinWait        time.Duration
	MaxWait        time.Duration
	PreScrollSteps int
	PreScrollPause time.Duration
	ScrollSteps    int
	ScrollPause    time.Duration
}

type Options struct {
	HardLimit    time.Duration
	PerSiteLimit int
	MaxPages     int

	NavTimeout  time.Duration
	NavAttempts int
	RetryDelay  time.Duration
	Desktop     Pacing

	MobileTimeout time.Duration
	MobileLimit   int
	Mobile        Pacing

	ScreenshotQuality int
}

func DefaultOptions() Options {
	return Options{
		HardLimit:    deadline.HardLimit,
		PerSiteLimit: 12,
		MaxPages:     1,

		NavTimeout:  9 * time.Second,
		NavAttempts: 2,
		RetryDelay:  400 * time.Millisecond,
		Desktop: Pacing{
			MinWait:        100 * time.Millisecond,
			MaxWait:        250 * time.Millisecond,
			PreScrollSteps: 2,
			PreScrollPause: 150 * time.Millisecond,
			ScrollSteps:    2,
			ScrollPause:    150 * time.Millisecond,
		},

		MobileTimeout: 6500 * time.Millisecond,
		MobileLimit:   10,
		Mobile: Pacing{
			MinWait:        80 * time.Millisecond,
			MaxWait:        160 * time.Millisecond,
			PreScrollSteps: 2,
			PreScrollPause: 120 * time.Millisecond,
			ScrollSteps:    1,
			ScrollPause:    120 * time.Millisecond,
		},

		ScreenshotQuality: 40,
	}
}
