// Package browser renders job pages in a headless browser and hands back
// the final HTML.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/user/jd-scraper/internal/config"
	"github.com/user/jd-scraper/internal/platform"
	"github.com/user/jd-scraper/internal/proxy"
	"go.uber.org/zap"
)

const (
	viewportWidth  = 1280
	viewportHeight = 900

	// ReadyTimeout is the default wait for a profile's readiness selector.
	ReadyTimeout = 10 * time.Second

	overlayProbeTimeout = 500 * time.Millisecond
	overlayClickTimeout = time.Second
	overlayPause        = 300 * time.Millisecond
	lazyLoadPause       = 500 * time.Millisecond
)

// DismissSelectors are probed in order; the first visible match of each is
// clicked to get cookie banners and modals out of the way.
var DismissSelectors = []string{
	`button[id*="cookie" i]`,
	`button[class*="cookie" i]`,
	`button[id*="accept" i]`,
	`button[class*="consent" i]`,
	`button[aria-label*="close" i]`,
	`button[aria-label*="dismiss" i]`,
	`button[class*="close-modal" i]`,
	`[data-testid="close-button"]`,
}

// NoteFunc records a non-fatal anomaly on the caller's result.
type NoteFunc func(format string, args ...any)

// RenderedPage is the outcome of a successful load.
type RenderedPage struct {
	URL  string
	HTML string
}

// Acquirer loads a URL in an isolated browsing context. Implementations
// must be safe for concurrent Load calls.
type Acquirer interface {
	// Load fails with domain.ErrPageLoadTimeout or domain.ErrNavigation.
	Load(ctx context.Context, rawURL string, profile *platform.Profile, note NoteFunc) (*RenderedPage, error)
	// Ping reports whether the browser process is still usable.
	Ping(ctx context.Context) error
	Close() error
}

// Options configures a browser engine.
type Options struct {
	Headless bool
	Timeout  time.Duration
	ExecPath string
	Proxies  *proxy.Manager
	Logger   *zap.Logger

	// ReadyTimeout bounds the wait for a profile's readiness selector.
	ReadyTimeout time.Duration
}

func (o *Options) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = ReadyTimeout
	}
	if o.Proxies == nil {
		o.Proxies = proxy.NewManager(nil, nil)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// New starts the engine named by engine ("chromedp" or "playwright").
func New(engine string, opts Options) (Acquirer, error) {
	switch engine {
	case config.EngineChromedp, "":
		return NewChromedp(opts)
	case config.EnginePlaywright:
		return NewPlaywright(opts)
	default:
		return nil, fmt.Errorf("unsupported browser engine %q", engine)
	}
}

func discardNotes(string, ...any) {}

const dismissScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const r = el.getBoundingClientRect();
	const st = window.getComputedStyle(el);
	if (r.width === 0 || r.height === 0 || st.visibility === 'hidden' || st.display === 'none') return false;
	el.click();
	return true;
})()`

// dismissExpression builds the probe-and-click script for one selector.
func dismissExpression(selector string) string {
	quoted, _ := json.Marshal(selector)
	return fmt.Sprintf(dismissScript, quoted)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
