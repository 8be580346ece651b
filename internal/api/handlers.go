package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/user/jd-scraper/internal/domain"
	"go.uber.org/zap"
)

const (
	maxBatchURLs          = 50
	maxRequestConcurrency = 10
)

func (s *Server) handleScrapeBatch(w http.ResponseWriter, r *http.Request) {
	var req domain.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.URLs) == 0 {
		s.respondWithError(w, http.StatusBadRequest, "URLs list cannot be empty")
		return
	}
	if len(req.URLs) > maxBatchURLs {
		s.respondWithError(w, http.StatusBadRequest, fmt.Sprintf("At most %d URLs per request", maxBatchURLs))
		return
	}
	for _, u := range req.URLs {
		if !validJobURL(u) {
			s.respondWithError(w, http.StatusBadRequest, "Invalid URL in list: "+u)
			return
		}
	}

	concurrency := req.Concurrency
	if concurrency < 1 {
		concurrency = s.config.Concurrency
	}
	concurrency = min(concurrency, maxRequestConcurrency)

	s.logger.Info("batch scrape requested", zap.Int("urls", len(req.URLs)), zap.Int("concurrency", concurrency))
	// Started scrapes finish even if the client goes away; each page load is
	// bounded by the acquirer's own timeouts.
	ctx := context.WithoutCancel(r.Context())
	s.respondWithJSON(w, http.StatusOK, s.scraper.ScrapeMany(ctx, req.URLs, concurrency))
}

func (s *Server) handleScrapeOne(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		s.respondWithError(w, http.StatusBadRequest, "URL query parameter is required")
		return
	}
	if !validJobURL(rawURL) {
		s.respondWithError(w, http.StatusBadRequest, "Invalid URL: "+rawURL)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json", "prompt":
	default:
		s.respondWithError(w, http.StatusBadRequest, "format must be json or prompt")
		return
	}

	job := s.scraper.ScrapeOne(context.WithoutCancel(r.Context()), rawURL)
	if format == "prompt" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(job.PromptText()))
		return
	}
	s.respondWithJSON(w, http.StatusOK, job)
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.browser.Ping(ctx); err != nil {
		s.logger.Error("health check failed for browser", zap.Error(err))
		s.respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"browser": "unhealthy"})
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]string{"browser": "ok"})
}

func validJobURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		code = http.StatusInternalServerError
		response = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
