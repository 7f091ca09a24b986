package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Page is the subset of a rendered page the scraper drives.
type Page interface {
	Goto(url string, timeout time.Duration) error
	Title() (string, error)
	URL() string
	WaitForSelector(selector string, timeout time.Duration) error
	Content() (string, error)
	ClickIfPresent(selector string, timeout time.Duration) (bool, error)
	PressKey(key string) error
	ScrollToBottom() error
	Screenshot(quality int) ([]byte, error)
}

// Session is one isolated rendering context with a single page.
type Session interface {
	Page
	Device() Device
	Close() error
}

// Browser owns the playwright driver and the chromium process. Sessions
// are cheap browser contexts created per request.
type Browser struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	rotator  *Rotator
	extended bool
	logger   *slog.Logger
}

type Options struct {
	Headless bool
	// ExtendedStealth layers the go-rod/stealth evasions under the
	// navigator overrides.
	ExtendedStealth bool
	// Install downloads the chromium build on startup when missing.
	Install     bool
	ProxyServer string
	UserAgents  []string
	Logger      *slog.Logger
}

func DefaultOptions() *Options {
	return &Options{
		Headless:        true,
		ExtendedStealth: true,
	}
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
		},
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Browser{
		pw:       pw,
		browser:  browser,
		rotator:  NewRotator(opts.UserAgents),
		extended: opts.ExtendedStealth,
		logger:   logger.With("component", "browser"),
	}, nil
}

// NewSession opens a hardened context for the given device class.
func (b *Browser) NewSession(ctx context.Context, device Device) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profile := ProfileFor(device, b.rotator)

	bctx, err := b.browser.NewContext(contextOptions(profile))
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	if err := harden(bctx, b.extended); err != nil {
		bctx.Close()
		return nil, err
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	b.logger.Debug("session opened", "device", device.String(), "user_agent", profile.UserAgent)

	return &session{
		device: device,
		ctx:    bctx,
		page:   page,
		logger: b.logger,
	}, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	return errors.Join(errs...)
}

type session struct {
	device Device
	ctx    playwright.BrowserContext
	page   playwright.Page
	logger *slog.Logger
}

func (s *session) Device() Device {
	return s.device
}

func (s *session) Goto(url string, timeout time.Duration) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(ms(timeout)),
	})
	return err
}

func (s *session) Title() (string, error) {
	return s.page.Title()
}

func (s *session) URL() string {
	return s.page.URL()
}

func (s *session) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(ms(timeout)),
	})
	return err
}

func (s *session) Content() (string, error) {
	return s.page.Content()
}

func (s *session) ClickIfPresent(selector string, timeout time.Duration) (bool, error) {
	button := s.page.Locator(selector).First()

	count, err := button.Count()
	if err != nil || count == 0 {
		return false, err
	}

	if err := button.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(ms(timeout))}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *session) PressKey(key string) error {
	return s.page.Keyboard().Press(key)
}

func (s *session) ScrollToBottom() error {
	_, err := s.page.Evaluate(`() => window.scrollBy(0, document.body.scrollHeight)`)
	return err
}

func (s *session) Screenshot(quality int) ([]byte, error) {
	return s.page.Screenshot(playwright.PageScreenshotOptions{
		Type:    playwright.ScreenshotTypeJpeg,
		Quality: playwright.Int(quality),
	})
}

// Close releases the page and then its context.
func (s *session) Close() error {
	var errs []error

	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
	}

	if s.ctx != nil {
		if err := s.ctx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	s.logger.Debug("session closed", "device", s.device.String())

	return errors.Join(errs...)
}

func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
