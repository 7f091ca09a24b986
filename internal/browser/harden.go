package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/stealth"
	"github.com/playwright-community/playwright-go"
)

const overridesJS = `(() => {
  try { Object.defineProperty(navigator, 'webdriver', { get: () => false }); } catch (e) {}
  try { Object.defineProperty(navigator, 'languages', { get: () => ['en-IN', 'en'] }); } catch (e) {}
  try { Object.defineProperty(navigator, 'platform', { get: () => 'Win32' }); } catch (e) {}
  window.chrome = { runtime: {} };
  const orig = navigator.permissions && navigator.permissions.query;
  if (orig) {
    navigator.permissions.query = (params) =>
      params && params.name === 'notifications'
        ? Promise.resolve({ state: Notification.permission })
        : orig.call(navigator.permissions, params);
  }
})();`

// blockedResources are aborted to cut page weight.
var blockedResources = map[string]bool{
	"image": true,
	"media": true,
	"font":  true,
}

func shouldAbort(resourceType string) bool {
	return blockedResources[strings.ToLower(resourceType)]
}

// InitScript returns the script installed before any document loads. The
// explicit overrides always run last so they win over the stealth bundle.
func InitScript(extended bool) string {
	if !extended {
		return overridesJS
	}
	return stealth.JS + "\n" + overridesJS
}

func contextOptions(p Profile) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		UserAgent:  playwright.String(p.UserAgent),
		Locale:     playwright.String(p.Locale),
		TimezoneId: playwright.String(p.TimezoneID),
		Viewport: &playwright.Size{
			Width:  p.ViewportWidth,
			Height: p.ViewportHeight,
		},
		ExtraHttpHeaders: p.Headers,
		AcceptDownloads:  playwright.Bool(false),
	}
	if p.IsMobile {
		opts.IsMobile = playwright.Bool(true)
		opts.HasTouch = playwright.Bool(p.HasTouch)
	}
	return opts
}

// harden applies the init script and the resource filter to a context
// before any page is opened in it.
func harden(bctx playwright.BrowserContext, extended bool) error {
	if err := bctx.AddInitScript(playwright.Script{
		Content: playwright.String(InitScript(extended)),
	}); err != nil {
		return fmt.Errorf("failed to add init script: %w", err)
	}

	if err := bctx.Route("**/*", func(route playwright.Route) {
		if shouldAbort(route.Request().ResourceType()) {
			_ = route.Abort()
			return
		}
		_ = route.Continue()
	}); err != nil {
		return fmt.Errorf("failed to install request filter: %w", err)
	}

	return nil
}
