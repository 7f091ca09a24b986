package browser

import (
	"sync/atomic"
)

// Device selects the viewport and user-agent class of a session.
type Device int

const (
	Desktop Device = iota
	Mobile
)

func (d Device) String() string {
	if d == Mobile {
		return "mobile"
	}
	return "desktop"
}

const (
	TimezoneID     = "Asia/Kolkata"
	Locale         = "en-IN"
	AcceptLanguage = "en-IN,en;q=0.9"
	SearchReferer  = "https://www.google.com/"

	MobileUserAgent = "Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Mobile Safari/537.36"
)

var desktopUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
}

// Profile is everything the harness applies to a fresh browser context.
type Profile struct {
	Device         Device
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	IsMobile       bool
	HasTouch       bool
	TimezoneID     string
	Locale         string
	Headers        map[string]string
}

// Rotator hands out desktop user agents round-robin. Safe for concurrent use.
type Rotator struct {
	pool []string
	next atomic.Uint64
}

func NewRotator(pool []string) *Rotator {
	if len(pool) == 0 {
		pool = desktopUserAgents
	}
	return &Rotator{pool: pool}
}

func (r *Rotator) Next() string {
	n := r.next.Add(1) - 1
	return r.pool[n%uint64(len(r.pool))]
}

// ProfileFor builds the profile of a new session of the given device class.
func ProfileFor(device Device, rotator *Rotator) Profile {
	if device == Mobile {
		return Profile{
			Device:         Mobile,
			UserAgent:      MobileUserAgent,
			ViewportWidth:  390,
			ViewportHeight: 844,
			IsMobile:       true,
			HasTouch:       true,
			TimezoneID:     TimezoneID,
			Locale:         Locale,
			Headers: map[string]string{
				"accept-language": AcceptLanguage,
				"referer":         SearchReferer,
			},
		}
	}

	if rotator == nil {
		rotator = NewRotator(nil)
	}
	return Profile{
		Device:         Desktop,
		UserAgent:      rotator.Next(),
		ViewportWidth:  1360,
		ViewportHeight: 900,
		TimezoneID:     TimezoneID,
		Locale:         Locale,
		Headers: map[string]string{
			"accept-language":           AcceptLanguage,
			"upgrade-insecure-requests": "1",
			"referer":                   SearchReferer,
		},
	}
}
