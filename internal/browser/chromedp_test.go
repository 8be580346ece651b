package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/jd-scraper/internal/domain"
	"github.com/user/jd-scraper/internal/platform"
	"github.com/user/jd-scraper/internal/proxy"
)

func mainFrame(id, loader string) *page.EventFrameNavigated {
	return &page.EventFrameNavigated{Frame: &cdp.Frame{ID: cdp.FrameID(id), LoaderID: cdp.LoaderID(loader)}}
}

func lifecycle(frame, loader, name string) *page.EventLifecycleEvent {
	return &page.EventLifecycleEvent{FrameID: cdp.FrameID(frame), LoaderID: cdp.LoaderID(loader), Name: name}
}

func TestLifecycleWaiter(t *testing.T) {
	t.Run("fires on main frame event", func(t *testing.T) {
		w := &lifecycleWaiter{until: lifecycleDOMContentLoaded}
		assert.False(t, w.observe(mainFrame("F1", "L1")))
		assert.False(t, w.observe(lifecycle("F1", "L1", "init")))
		assert.True(t, w.observe(lifecycle("F1", "L1", lifecycleDOMContentLoaded)))
		assert.False(t, w.observe(lifecycle("F1", "L1", lifecycleDOMContentLoaded)), "fires once")
	})

	t.Run("ignores events before navigation commits", func(t *testing.T) {
		w := &lifecycleWaiter{until: lifecycleNetworkIdle}
		assert.False(t, w.observe(lifecycle("F1", "L0", lifecycleNetworkIdle)))
	})

	t.Run("ignores subframes and stale loaders", func(t *testing.T) {
		w := &lifecycleWaiter{until: lifecycleNetworkIdle}
		sub := &page.EventFrameNavigated{Frame: &cdp.Frame{ID: "SUB", ParentID: "F1", LoaderID: "LS"}}
		assert.False(t, w.observe(sub))
		assert.False(t, w.observe(mainFrame("F1", "L2")))
		assert.False(t, w.observe(lifecycle("SUB", "LS", lifecycleNetworkIdle)))
		assert.False(t, w.observe(lifecycle("F1", "L1", lifecycleNetworkIdle)))
		assert.True(t, w.observe(lifecycle("F1", "L2", lifecycleNetworkIdle)))
	})
}

func TestContextProxy_RotatesPerBrowserContext(t *testing.T) {
	m := proxy.NewManager([]string{"http://a:1", "http://b:2"}, nil)

	first := contextProxy(m)(target.CreateBrowserContext())
	second := contextProxy(m)(target.CreateBrowserContext())
	third := contextProxy(m)(target.CreateBrowserContext())

	assert.Equal(t, "http://a:1", first.ProxyServer)
	assert.Equal(t, "http://b:2", second.ProxyServer)
	assert.Equal(t, "http://a:1", third.ProxyServer)
}

func TestContextProxy_NoneConfigured(t *testing.T) {
	params := contextProxy(proxy.NewManager(nil, nil))(target.CreateBrowserContext())

	assert.Empty(t, params.ProxyServer)
}

func TestOptions_Defaults(t *testing.T) {
	var o Options
	o.setDefaults()

	assert.Equal(t, 30*time.Second, o.Timeout)
	assert.Equal(t, ReadyTimeout, o.ReadyTimeout)
	assert.NotNil(t, o.Proxies)
	assert.NotNil(t, o.Logger)
}

func TestDismissExpression_QuotesSelector(t *testing.T) {
	expr := dismissExpression(`[data-testid="close-button"]`)
	assert.Contains(t, expr, `document.querySelector("[data-testid=\"close-button\"]")`)
	assert.Contains(t, expr, "el.click()")
}

func TestNew_UnsupportedEngine(t *testing.T) {
	_, err := New("selenium", Options{})
	assert.Error(t, err)
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}

// liveChrome starts a real browser when CHROME_TESTS is set.
func liveChrome(t *testing.T) *ChromedpAcquirer {
	t.Helper()
	if testing.Short() || os.Getenv("CHROME_TESTS") == "" {
		t.Skip("set CHROME_TESTS=1 to run tests against a real Chrome")
	}
	a, err := NewChromedp(Options{Headless: true, Timeout: 2 * time.Second, ReadyTimeout: 500 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestChromedp_LoadRendersScriptContent(t *testing.T) {
	a := liveChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<button id="cookie-accept" onclick="this.remove()">Accept</button>
<div id="content"></div>
<script>document.getElementById('content').innerHTML = '<h2>Responsibilities</h2><p>Rendered by script</p>';</script>
</body></html>`)
	}))
	defer srv.Close()

	var notes []string
	note := func(format string, args ...any) { notes = append(notes, fmt.Sprintf(format, args...)) }
	profile := &platform.Profile{Name: "local", ReadySelector: "#content h2"}

	rp, err := a.Load(context.Background(), srv.URL, profile, note)
	require.NoError(t, err)

	assert.Contains(t, rp.HTML, "Rendered by script")
	assert.NotContains(t, rp.HTML, "cookie-accept", "cookie button is clicked away")
	assert.Contains(t, notes, `Dismissed overlay via button[id*="cookie" i]`)
}

func TestChromedp_NavigationError(t *testing.T) {
	a := liveChrome(t)

	_, err := a.Load(context.Background(), "http://127.0.0.1:1/", nil, nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindNavigation, domain.KindOf(err))
}

// stallingServer sends the start of a document and then never finishes it,
// so neither DOMContentLoaded nor networkIdle can fire.
func stallingServer(t *testing.T) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><p>loading")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return srv
}

// recordNotes returns a NoteFunc and the slice it appends to.
func recordNotes() (NoteFunc, *[]string) {
	var notes []string
	return func(format string, args ...any) { notes = append(notes, fmt.Sprintf(format, args...)) }, &notes
}

func staticServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChromedp_TimeoutRetriesThenFails(t *testing.T) {
	a := liveChrome(t)
	srv := stallingServer(t)
	note, notes := recordNotes()

	start := time.Now()
	_, err := a.Load(context.Background(), srv.URL, nil, note)

	require.Error(t, err)
	assert.Equal(t, domain.KindPageLoadTimeout, domain.KindOf(err))
	assert.Contains(t, err.Error(), "waiting for networkIdle")
	assert.Equal(t, []string{"First load timed out, retrying with networkidle"}, *notes)
	// First tier waits T, the retry 2T.
	assert.GreaterOrEqual(t, time.Since(start), 3*a.opts.Timeout)
}

func TestChromedp_MissingReadySelectorContinues(t *testing.T) {
	a := liveChrome(t)
	srv := staticServer(t, `<html><body><div id="content">Static job text</div></body></html>`)
	note, notes := recordNotes()
	profile := &platform.Profile{Name: "local", ReadySelector: "#never-rendered"}

	rp, err := a.Load(context.Background(), srv.URL, profile, note)

	require.NoError(t, err)
	assert.Contains(t, rp.HTML, "Static job text")
	assert.Contains(t, *notes, "ATS wait selector '#never-rendered' not found; continuing")
}

func TestChromedp_ExtraDelay(t *testing.T) {
	a := liveChrome(t)
	srv := staticServer(t, `<html><body><p>Delayed profile</p></body></html>`)
	profile := &platform.Profile{Name: "slow", ExtraDelayMS: 700}

	start := time.Now()
	_, err := a.Load(context.Background(), srv.URL, profile, nil)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 700*time.Millisecond)
}

func TestChromedp_Ping(t *testing.T) {
	a := liveChrome(t)

	require.NoError(t, a.Ping(context.Background()))
	require.NoError(t, a.Close())
	assert.Error(t, a.Ping(context.Background()))
}
