package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ScrapesTotal        *prometheus.CounterVec
	ScrapeDuration      *prometheus.HistogramVec
	ScrapesInFlight     prometheus.Gauge
	ContentTierTotal    *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the metrics with reg. Pass prometheus.DefaultRegisterer
// in binaries and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ScrapesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jdscrape_scrapes_total",
			Help: "The total number of job posting scrapes",
		}, []string{"status", "error_kind"}), // status: success, failure
		ScrapeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jdscrape_scrape_duration_seconds",
			Help:    "Duration of a single scrape, page load included.",
			Buckets: []float64{1, 2.5, 5, 10, 15, 30, 60, 120},
		}, []string{"platform"}),
		ScrapesInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "jdscrape_scrapes_in_flight",
			Help: "Scrapes currently holding a browsing context.",
		}),
		ContentTierTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jdscrape_content_tier_total",
			Help: "Content containers found, by locator tier.",
		}, []string{"tier"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jdscrape_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jdscrape_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveScrape records a finished scrape.
func (m *Metrics) ObserveScrape(platform string, success bool, errorKind string, seconds float64) {
	if platform == "" {
		platform = "generic"
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.ScrapesTotal.WithLabelValues(status, errorKind).Inc()
	m.ScrapeDuration.WithLabelValues(platform).Observe(seconds)
}

func (m *Metrics) IncContentTier(tier string) {
	m.ContentTierTotal.WithLabelValues(tier).Inc()
}
