// Package app wires configuration into a running scrape engine. Both the
// CLI and the HTTP service start from here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/user/jd-scraper/internal/browser"
	"github.com/user/jd-scraper/internal/config"
	"github.com/user/jd-scraper/internal/monitoring"
	"github.com/user/jd-scraper/internal/normalize"
	"github.com/user/jd-scraper/internal/platform"
	"github.com/user/jd-scraper/internal/proxy"
	"github.com/user/jd-scraper/internal/scraper"
	"go.uber.org/zap"
)

// Engine owns the browser for the lifetime of the process.
type Engine struct {
	Scraper  *scraper.Scraper
	Metrics  *monitoring.Metrics
	Profiles *platform.Registry
	acquirer browser.Acquirer
}

// New loads the profile registry, starts the configured browser engine and
// assembles the scraper. Close must be called to stop the browser.
func New(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*Engine, error) {
	profiles, err := platform.Load(cfg.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	logger.Debug("profiles loaded", zap.Strings("profiles", profiles.Names()))

	acq, err := browser.New(cfg.BrowserEngine, browser.Options{
		Headless: cfg.Headless,
		Timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
		ExecPath: cfg.ChromePath,
		Proxies:  proxy.NewManager(cfg.ProxyList(), cfg.UserAgentList()),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	m := monitoring.NewMetrics(reg)
	sc := scraper.New(acq, profiles, normalize.New(cfg.TrimNoiseSections, cfg.MaxDescriptionChars),
		scraper.WithLogger(logger),
		scraper.WithMetrics(m),
		scraper.WithHostLimiter(scraper.NewHostLimiter(cfg.HostRateLimit, cfg.HostRateBurst)),
		scraper.WithConcurrency(cfg.Concurrency),
	)
	return &Engine{Scraper: sc, Metrics: m, Profiles: profiles, acquirer: acq}, nil
}

// Ping checks that the browser is still usable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.acquirer.Ping(ctx)
}

func (e *Engine) Close() error {
	return e.acquirer.Close()
}
