package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/user/jd-scraper/internal/domain"
	"github.com/user/jd-scraper/internal/platform"
	"github.com/user/jd-scraper/internal/proxy"
	"go.uber.org/zap"
)

const (
	lifecycleDOMContentLoaded = "DOMContentLoaded"
	lifecycleNetworkIdle      = "networkIdle"
)

// blockedResourceTypes never reach the network.
var blockedResourceTypes = []network.ResourceType{
	network.ResourceTypeImage,
	network.ResourceTypeFont,
	network.ResourceTypeMedia,
}

// ChromedpAcquirer keeps one Chrome process alive and opens a fresh browser
// context (incognito-like) for every Load.
type ChromedpAcquirer struct {
	opts          Options
	logger        *zap.Logger
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromedp launches Chrome. Close must be called to release it.
func NewChromedp(opts Options) (*ChromedpAcquirer, error) {
	opts.setDefaults()

	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(viewportWidth, viewportHeight),
		chromedp.UserAgent(opts.Proxies.GetUserAgent()),
	)
	if opts.ExecPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	sugar := opts.Logger.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// Start the process now so a missing browser fails at startup, not on the first scrape.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	opts.Logger.Info("chrome started", zap.Bool("headless", opts.Headless))
	return &ChromedpAcquirer{
		opts:          opts,
		logger:        opts.Logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close shuts the browser process down.
func (a *ChromedpAcquirer) Close() error {
	a.browserCancel()
	a.allocCancel()
	return nil
}

// Load renders rawURL and returns the page HTML.
func (a *ChromedpAcquirer) Load(ctx context.Context, rawURL string, profile *platform.Profile, note NoteFunc) (*RenderedPage, error) {
	if note == nil {
		note = discardNotes
	}

	tabCtx, cancel := chromedp.NewContext(a.browserCtx, chromedp.WithNewBrowserContext(contextProxy(a.opts.Proxies)))
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	chromedp.ListenTarget(tabCtx, failBlockedRequests(tabCtx))

	patterns := make([]*fetch.RequestPattern, 0, len(blockedResourceTypes))
	for _, rt := range blockedResourceTypes {
		patterns = append(patterns, &fetch.RequestPattern{URLPattern: "*", ResourceType: rt})
	}
	if err := chromedp.Run(tabCtx,
		fetch.Enable().WithPatterns(patterns),
		page.SetLifecycleEventsEnabled(true),
		emulation.SetUserAgentOverride(a.opts.Proxies.GetUserAgent()),
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
	); err != nil {
		return nil, fmt.Errorf("open browsing context: %w", err)
	}

	if err := a.navigate(tabCtx, rawURL, lifecycleDOMContentLoaded, a.opts.Timeout); err != nil {
		if !errors.Is(err, domain.ErrPageLoadTimeout) {
			return nil, err
		}
		note("First load timed out, retrying with networkidle")
		a.logger.Debug("retrying navigation", zap.String("url", rawURL))
		if err := a.navigate(tabCtx, rawURL, lifecycleNetworkIdle, 2*a.opts.Timeout); err != nil {
			return nil, err
		}
	}

	if profile != nil && profile.ReadySelector != "" {
		readyCtx, readyCancel := context.WithTimeout(tabCtx, a.opts.ReadyTimeout)
		err := chromedp.Run(readyCtx, chromedp.WaitReady(profile.ReadySelector, chromedp.ByQuery))
		readyCancel()
		if err != nil {
			note("ATS wait selector '%s' not found; continuing", profile.ReadySelector)
		}
	}
	if profile != nil {
		if err := sleepCtx(tabCtx, profile.ExtraDelay()); err != nil {
			return nil, err
		}
	}

	a.dismissOverlays(tabCtx, note)

	captureCtx, captureCancel := context.WithTimeout(tabCtx, a.opts.Timeout)
	defer captureCancel()
	var html string
	err := chromedp.Run(captureCtx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(lazyLoadPause),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: capturing rendered html after %dms", domain.ErrPageLoadTimeout, a.opts.Timeout.Milliseconds())
		}
		return nil, fmt.Errorf("capture html: %w", err)
	}
	return &RenderedPage{URL: rawURL, HTML: html}, nil
}

// Ping asks the browser for its targets, which fails once Chrome is gone.
func (a *ChromedpAcquirer) Ping(ctx context.Context) error {
	if err := a.browserCtx.Err(); err != nil {
		return fmt.Errorf("browser closed: %w", err)
	}
	c := chromedp.FromContext(a.browserCtx)
	if c == nil || c.Browser == nil {
		return errors.New("browser not started")
	}
	if _, err := target.GetTargets().Do(cdp.WithExecutor(ctx, c.Browser)); err != nil {
		return fmt.Errorf("browser unreachable: %w", err)
	}
	return nil
}

// contextProxy takes the next proxy from m for one browser context. Chrome
// applies it to every request made in that context.
func contextProxy(m *proxy.Manager) func(*target.CreateBrowserContextParams) *target.CreateBrowserContextParams {
	p := m.GetProxy()
	return func(params *target.CreateBrowserContextParams) *target.CreateBrowserContextParams {
		if p == "" {
			return params
		}
		return params.WithProxyServer(p)
	}
}

// navigate starts a navigation and returns once the main frame reports the
// lifecycle event named by until, or the timeout elapses.
func (a *ChromedpAcquirer) navigate(ctx context.Context, rawURL, until string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ready := make(chan struct{})
	w := &lifecycleWaiter{until: until}
	chromedp.ListenTarget(navCtx, func(ev interface{}) {
		if w.observe(ev) {
			close(ready)
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(navCtx, chromedp.Navigate(rawURL))
	}()

	for {
		select {
		case <-ready:
			// Chrome commits an error page for failed navigations, which also
			// reaches DOMContentLoaded.
			select {
			case err := <-done:
				if err != nil && navCtx.Err() == nil {
					return fmt.Errorf("%w: %v", domain.ErrNavigation, err)
				}
			default:
			}
			return nil
		case err := <-done:
			if err == nil {
				if until == lifecycleDOMContentLoaded {
					return nil
				}
				// Load fired; keep waiting for the network to settle.
				done = nil
				continue
			}
			if navCtx.Err() == nil {
				return fmt.Errorf("%w: %v", domain.ErrNavigation, err)
			}
		case <-navCtx.Done():
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w after %dms waiting for %s", domain.ErrPageLoadTimeout, timeout.Milliseconds(), until)
	}
}

func (a *ChromedpAcquirer) dismissOverlays(ctx context.Context, note NoteFunc) {
	for _, sel := range DismissSelectors {
		probeCtx, cancel := context.WithTimeout(ctx, overlayProbeTimeout+overlayClickTimeout)
		var clicked bool
		err := chromedp.Run(probeCtx, chromedp.Evaluate(dismissExpression(sel), &clicked))
		cancel()
		if err != nil || !clicked {
			continue
		}
		note("Dismissed overlay via %s", sel)
		if err := sleepCtx(ctx, overlayPause); err != nil {
			return
		}
	}
}

// lifecycleWaiter follows the main frame's navigation and reports when the
// awaited lifecycle event arrives for it. Target events are delivered
// sequentially, so no locking is needed.
type lifecycleWaiter struct {
	until    string
	frameID  cdp.FrameID
	loaderID cdp.LoaderID
	fired    bool
}

func (w *lifecycleWaiter) observe(ev interface{}) bool {
	if w.fired {
		return false
	}
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame != nil && e.Frame.ParentID == "" {
			w.frameID = e.Frame.ID
			w.loaderID = e.Frame.LoaderID
		}
	case *page.EventLifecycleEvent:
		if w.frameID != "" && e.FrameID == w.frameID && e.LoaderID == w.loaderID && e.Name == w.until {
			w.fired = true
			return true
		}
	}
	return false
}

// failBlockedRequests answers every paused request with a client block.
// Only blocked resource types are paused, see the fetch patterns in Load.
func failBlockedRequests(ctx context.Context) func(ev interface{}) {
	return func(ev interface{}) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(ctx)
			if c == nil || c.Target == nil {
				return
			}
			execCtx := cdp.WithExecutor(ctx, c.Target)
			_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
		}()
	}
}
