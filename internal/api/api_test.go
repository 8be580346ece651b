package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/jd-scraper/internal/config"
	"github.com/user/jd-scraper/internal/domain"
	"github.com/user/jd-scraper/internal/monitoring"
	"go.uber.org/zap"
)

type stubScraper struct {
	mu          sync.Mutex
	concurrency int
	calls       int
	ctxErrs     []error
}

func (s *stubScraper) ScrapeOne(ctx context.Context, rawURL string) *domain.JobPosting {
	s.mu.Lock()
	s.calls++
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	s.mu.Unlock()
	job := domain.NewJobPosting(rawURL)
	job.Title = "Platform Engineer"
	job.CompanyName = "Acme"
	job.Description = "Run the platform."
	job.RawContentHTML = "<div>secret</div>"
	if strings.Contains(rawURL, "broken") {
		job.Fail(domain.ErrNavigation)
	}
	return job
}

func (s *stubScraper) ScrapeMany(ctx context.Context, urls []string, concurrency int) []*domain.JobPosting {
	s.mu.Lock()
	s.concurrency = concurrency
	s.mu.Unlock()
	out := make([]*domain.JobPosting, len(urls))
	for i, u := range urls {
		out[i] = s.ScrapeOne(ctx, u)
	}
	return out
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T) (*Server, *stubScraper, *monitoring.Metrics, *prometheus.Registry) {
	t.Helper()
	return newTestServerWithBrowser(t, stubPinger{})
}

func newTestServerWithBrowser(t *testing.T, browser Pinger) (*Server, *stubScraper, *monitoring.Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := monitoring.NewMetrics(reg)
	sc := &stubScraper{}
	cfg := &config.Config{Concurrency: 3, ServerPort: "0"}
	return NewServer(cfg, sc, browser, m, reg, zap.NewNop()), sc, m, reg
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleScrapeBatch(t *testing.T) {
	s, sc, _, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodPost, "/api/scrape",
		`{"urls":["https://jobs.lever.co/acme/1","https://example.com/broken"],"concurrency":2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "https://jobs.lever.co/acme/1", got[0]["url"])
	assert.Equal(t, true, got[0]["success"])
	assert.Equal(t, false, got[1]["success"])
	assert.Equal(t, "NavigationError", got[1]["error_kind"])
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Equal(t, 2, sc.concurrency)
}

func TestHandleScrapeBatch_Concurrency(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"default from config", `{"urls":["https://a.example/1"]}`, 3},
		{"capped", `{"urls":["https://a.example/1"],"concurrency":500}`, maxRequestConcurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sc, _, _ := newTestServer(t)

			rec := do(t, s.Handler(), http.MethodPost, "/api/scrape", tt.body)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, sc.concurrency)
		})
	}
}

func TestHandleScrapeBatch_BadRequests(t *testing.T) {
	tooMany := `{"urls":[` + strings.TrimSuffix(strings.Repeat(`"https://a.example/x",`, maxBatchURLs+1), ",") + `]}`
	tests := map[string]string{
		"not json":     `{`,
		"empty list":   `{"urls":[]}`,
		"relative url": `{"urls":["/jobs/1"]}`,
		"bad scheme":   `{"urls":["ftp://example.com/job"]}`,
		"too many":     tooMany,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			s, sc, _, _ := newTestServer(t)

			rec := do(t, s.Handler(), http.MethodPost, "/api/scrape", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Zero(t, sc.calls)
		})
	}
}

func TestHandleScrapeOne(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/api/scrape?url=https://jobs.lever.co/acme/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var job domain.JobPosting
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "Platform Engineer", job.Title)
	assert.Empty(t, job.RawContentHTML)

	rec = do(t, s.Handler(), http.MethodGet, "/api/scrape?format=prompt&url=https://jobs.lever.co/acme/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "## Platform Engineer\n**Company:** Acme\n\nRun the platform.", rec.Body.String())
}

func TestHandleScrapeOne_BadRequests(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	for _, target := range []string{
		"/api/scrape",
		"/api/scrape?url=not-a-url",
		"/api/scrape?url=https://example.com/1&format=xml",
	} {
		rec := do(t, s.Handler(), http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _, m, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"browser":"ok"}`, rec.Body.String())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "200")))

	m.ObserveScrape("lever", true, "", 2)
	rec = do(t, s.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jdscrape_scrapes_total")
	assert.Contains(t, rec.Body.String(), `jdscrape_http_requests_total{method="GET",route="/api/health",status="200"} 1`)
}

func TestHealthCheck_BrowserDown(t *testing.T) {
	s, _, m, _ := newTestServerWithBrowser(t, stubPinger{err: errors.New("websocket closed")})

	rec := do(t, s.Handler(), http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"browser":"unhealthy"}`, rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "503")))
}

func TestScrape_ClientDisconnectDoesNotCancel(t *testing.T) {
	s, sc, _, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/api/scrape",
		strings.NewReader(`{"urls":["https://a.example/1","https://b.example/2"]}`)).WithContext(ctx)
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/api/scrape?url=https://a.example/3", nil).WithContext(ctx)
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, sc.ctxErrs, 3)
	for _, err := range sc.ctxErrs {
		assert.NoError(t, err)
	}
}

func TestUnknownRoute(t *testing.T) {
	s, _, m, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
