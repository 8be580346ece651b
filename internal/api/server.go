package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/user/jd-scraper/internal/config"
	"github.com/user/jd-scraper/internal/domain"
	"github.com/user/jd-scraper/internal/monitoring"
	"go.uber.org/zap"
)

// requestTimeout bounds a whole API call; a batch at the default
// concurrency needs several page loads back to back.
const requestTimeout = 5 * time.Minute

// Scraper is the part of scraper.Scraper the API needs.
type Scraper interface {
	ScrapeOne(ctx context.Context, rawURL string) *domain.JobPosting
	ScrapeMany(ctx context.Context, urls []string, concurrency int) []*domain.JobPosting
}

// Pinger reports the health of a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	scraper    Scraper
	browser    Pinger
	metrics    *monitoring.Metrics
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, sc Scraper, browser Pinger, m *monitoring.Metrics, g prometheus.Gatherer, l *zap.Logger) *Server {
	s := &Server{
		config:   cfg,
		scraper:  sc,
		browser:  browser,
		metrics:  m,
		gatherer: g,
		logger:   l,
	}
	s.router = s.setupRouter()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 10*time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
