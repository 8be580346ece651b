package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
	"github.com/user/jd-scraper/internal/domain"
	"github.com/user/jd-scraper/internal/platform"
	"github.com/user/jd-scraper/internal/proxy"
	"go.uber.org/zap"
)

// perContextProxy is a launch-level placeholder; every context overrides it.
const perContextProxy = "http://per-context"

// PlaywrightAcquirer is the alternative engine, driving Chromium through
// the Playwright driver. One browser, one BrowserContext per Load.
type PlaywrightAcquirer struct {
	opts    Options
	logger  *zap.Logger
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewPlaywright starts the driver and launches Chromium.
func NewPlaywright(opts Options) (*PlaywrightAcquirer, error) {
	opts.setDefaults()

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--no-sandbox",
		},
	}
	if opts.ExecPath != "" {
		launch.ExecutablePath = playwright.String(opts.ExecPath)
	}
	if opts.Proxies.HasProxies() {
		// Chromium only honours per-context proxies when launched with one.
		launch.Proxy = &playwright.Proxy{Server: perContextProxy}
	}
	browser, err := pw.Chromium.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	opts.Logger.Info("playwright chromium started", zap.Bool("headless", opts.Headless))
	return &PlaywrightAcquirer{opts: opts, logger: opts.Logger, pw: pw, browser: browser}, nil
}

// Ping fails once the browser has disconnected.
func (a *PlaywrightAcquirer) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !a.browser.IsConnected() {
		return errors.New("browser disconnected")
	}
	return nil
}

// contextOptions picks the identity for one browser context: a user agent
// and, when configured, the next proxy.
func contextOptions(m *proxy.Manager) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(m.GetUserAgent()),
		Viewport:  &playwright.Size{Width: viewportWidth, Height: viewportHeight},
	}
	if p := m.GetProxy(); p != "" {
		opts.Proxy = &playwright.Proxy{Server: p}
	}
	return opts
}

// Close shuts the browser and the driver down.
func (a *PlaywrightAcquirer) Close() error {
	berr := a.browser.Close()
	perr := a.pw.Stop()
	return errors.Join(berr, perr)
}

// Load renders rawURL and returns the page HTML.
func (a *PlaywrightAcquirer) Load(ctx context.Context, rawURL string, profile *platform.Profile, note NoteFunc) (*RenderedPage, error) {
	if note == nil {
		note = discardNotes
	}

	bctx, err := a.browser.NewContext(contextOptions(a.opts.Proxies))
	if err != nil {
		return nil, fmt.Errorf("open browsing context: %w", err)
	}
	defer bctx.Close()
	stop := context.AfterFunc(ctx, func() { _ = bctx.Close() })
	defer stop()

	pg, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	err = pg.Route("**/*", func(route playwright.Route) {
		switch route.Request().ResourceType() {
		case "image", "font", "media":
			_ = route.Abort()
		default:
			_ = route.Continue()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("install resource filter: %w", err)
	}

	timeoutMS := float64(a.opts.Timeout.Milliseconds())
	_, err = pg.Goto(rawURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(timeoutMS),
	})
	if err != nil {
		if !errors.Is(err, playwright.ErrTimeout) {
			return nil, a.classify(ctx, err, timeoutMS)
		}
		note("First load timed out, retrying with networkidle")
		_, err = pg.Goto(rawURL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateNetworkidle,
			Timeout:   playwright.Float(2 * timeoutMS),
		})
		if err != nil {
			return nil, a.classify(ctx, err, 2*timeoutMS)
		}
	}

	if profile != nil && profile.ReadySelector != "" {
		err := pg.Locator(profile.ReadySelector).First().WaitFor(playwright.LocatorWaitForOptions{
			Timeout: playwright.Float(float64(a.opts.ReadyTimeout.Milliseconds())),
		})
		if err != nil {
			note("ATS wait selector '%s' not found; continuing", profile.ReadySelector)
		}
	}
	if profile != nil {
		if err := sleepCtx(ctx, profile.ExtraDelay()); err != nil {
			return nil, err
		}
	}

	for _, sel := range DismissSelectors {
		btn := pg.Locator(sel).First()
		visible, err := btn.IsVisible()
		if err != nil || !visible {
			continue
		}
		if err := btn.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(float64(overlayClickTimeout.Milliseconds())),
		}); err != nil {
			continue
		}
		note("Dismissed overlay via %s", sel)
		if err := sleepCtx(ctx, overlayPause); err != nil {
			return nil, err
		}
	}

	if _, err := pg.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		a.logger.Debug("scroll failed", zap.String("url", rawURL), zap.Error(err))
	}
	if err := sleepCtx(ctx, lazyLoadPause); err != nil {
		return nil, err
	}

	html, err := pg.Content()
	if err != nil {
		return nil, fmt.Errorf("capture html: %w", err)
	}
	return &RenderedPage{URL: rawURL, HTML: html}, nil
}

func (a *PlaywrightAcquirer) classify(ctx context.Context, err error, timeoutMS float64) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w after %.0fms", domain.ErrPageLoadTimeout, timeoutMS)
	}
	return fmt.Errorf("%w: %v", domain.ErrNavigation, err)
}
