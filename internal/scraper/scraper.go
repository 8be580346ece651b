// Package scraper runs the extraction pipeline for one URL and fans out
// over batches of URLs.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/user/jd-scraper/internal/browser"
	"github.com/user/jd-scraper/internal/domain"
	"github.com/user/jd-scraper/internal/extract"
	"github.com/user/jd-scraper/internal/monitoring"
	"github.com/user/jd-scraper/internal/normalize"
	"github.com/user/jd-scraper/internal/platform"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds ScrapeMany when the caller passes no limit.
const DefaultConcurrency = 3

const tierBody = "body"

// Scraper turns job URLs into JobPostings. It is safe for concurrent use;
// the only shared state is the read-only profile registry and the browser.
type Scraper struct {
	acquirer    browser.Acquirer
	registry    *platform.Registry
	normalizer  *normalize.Normalizer
	limiter     *HostLimiter
	metrics     *monitoring.Metrics
	logger      *zap.Logger
	concurrency int
}

// Option customises a Scraper.
type Option func(*Scraper)

func WithLogger(l *zap.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

// WithHostLimiter throttles scrapes per host. A nil limiter disables it.
func WithHostLimiter(hl *HostLimiter) Option {
	return func(s *Scraper) { s.limiter = hl }
}

// WithConcurrency sets the ScrapeMany default.
func WithConcurrency(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(acq browser.Acquirer, reg *platform.Registry, norm *normalize.Normalizer, opts ...Option) *Scraper {
	s := &Scraper{
		acquirer:    acq,
		registry:    reg,
		normalizer:  norm,
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = platform.Default()
	}
	if s.metrics == nil {
		s.metrics = monitoring.NewMetrics(prometheus.NewRegistry())
	}
	return s
}

// ScrapeOne never fails: every error, panics included, is recorded on the
// returned posting.
func (s *Scraper) ScrapeOne(ctx context.Context, rawURL string) (job *domain.JobPosting) {
	job = domain.NewJobPosting(rawURL)
	log := s.logger.With(zap.String("scrape_id", uuid.NewString()), zap.String("url", rawURL))
	start := time.Now()

	profile := s.registry.Match(rawURL)
	platformName := ""
	if profile != nil {
		platformName = profile.Name
		job.AddNote("Detected ATS: %s", profile.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			job.Fail(&domain.PanicError{Value: r})
			log.Error("scrape panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		elapsed := time.Since(start)
		s.metrics.ObserveScrape(platformName, job.Success, string(job.ErrorKind), elapsed.Seconds())
		if job.Success {
			log.Info("scrape finished", zap.String("platform", platformName), zap.Duration("elapsed", elapsed))
		} else {
			log.Warn("scrape failed", zap.String("error_kind", string(job.ErrorKind)), zap.String("error", job.Error))
		}
	}()

	if err := s.run(ctx, job, profile, log); err != nil {
		job.Fail(err)
	}
	return job
}

func (s *Scraper) run(ctx context.Context, job *domain.JobPosting, profile *platform.Profile, log *zap.Logger) error {
	if err := s.limiter.WaitURL(ctx, job.URL); err != nil {
		return fmt.Errorf("wait for host slot: %w", err)
	}

	log.Debug("acquiring page")
	page, err := s.acquire(ctx, job, profile)
	if err != nil {
		return err
	}

	log.Debug("parsing page", zap.Int("html_bytes", len(page.HTML)))
	doc, err := extract.Parse(page.HTML)
	if err != nil {
		return err
	}
	extract.Prune(doc)

	log.Debug("locating content")
	content, tier, err := locate(doc, profile, job)
	if err != nil {
		return err
	}
	s.metrics.IncContentTier(tier)

	log.Debug("extracting metadata", zap.String("tier", tier))
	meta := extract.ExtractMetadata(doc, profile)
	job.Title = meta.Title
	job.CompanyName = meta.Company
	job.Location = meta.Location
	job.SalaryRange = meta.Salary
	job.JobType = meta.JobType

	log.Debug("normalizing")
	if job.RawContentHTML, err = goquery.OuterHtml(content); err != nil {
		return fmt.Errorf("%w: render content: %v", domain.ErrParseFailure, err)
	}
	res, err := s.normalizer.Normalize(content)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParseFailure, err)
	}
	job.Description = res.Text
	if res.Truncated {
		job.AddNote("Truncated to %d chars", s.normalizer.MaxChars())
	}
	return nil
}

func (s *Scraper) acquire(ctx context.Context, job *domain.JobPosting, profile *platform.Profile) (*browser.RenderedPage, error) {
	s.metrics.ScrapesInFlight.Inc()
	defer s.metrics.ScrapesInFlight.Dec()
	return s.acquirer.Load(ctx, job.URL, profile, job.AddNote)
}

// locate returns the content element and the tier that found it, falling
// back to <body>.
func locate(doc *goquery.Document, profile *platform.Profile, job *domain.JobPosting) (*goquery.Selection, string, error) {
	if loc, ok := extract.Locate(doc, profile); ok {
		switch {
		case loc.Selector != "":
			job.AddNote("Content found via %s selector %s", loc.Tier, loc.Selector)
		default:
			job.AddNote("Content found via %s scoring (score %d)", loc.Tier, loc.Score)
		}
		return loc.Selection, string(loc.Tier), nil
	}

	job.AddNote("No specific content container found; using <body>")
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return nil, "", fmt.Errorf("%w: document has no body", domain.ErrParseFailure)
	}
	return body, tierBody, nil
}

// ScrapeMany scrapes urls with at most concurrency scrapes in flight and
// returns the postings in input order. concurrency < 1 uses the default.
func (s *Scraper) ScrapeMany(ctx context.Context, urls []string, concurrency int) []*domain.JobPosting {
	if concurrency < 1 {
		concurrency = s.concurrency
	}
	results := make([]*domain.JobPosting, len(urls))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = s.ScrapeOne(ctx, u)
			return nil // best-effort: a failed scrape never cancels its siblings
		})
	}
	_ = g.Wait()

	s.logger.Info("batch finished", zap.Int("urls", len(urls)), zap.Int("concurrency", concurrency))
	return results
}
