// Package api exposes the HTTP interface for the scraper service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lettingsradar/zoopla-scraper/internal/config"
	"github.com/lettingsradar/zoopla-scraper/internal/scraper"
)

// ScrapeRunner executes one scrape and returns its ID alongside the result.
type ScrapeRunner interface {
	Run(ctx context.Context, query scraper.SearchQuery, opts scraper.Options) (string, scraper.ScrapeResult)
}

// Server wires HTTP handlers to the scrape service.
type Server struct {
	router  chi.Router
	runner  ScrapeRunner
	cfg     config.Config
	logger  *zap.Logger
	limiter *rate.Limiter
	slots   chan struct{}
	circuit *captchaCircuit
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner ScrapeRunner, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		runner:  runner,
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.Server.RateLimitRPS), max(cfg.Server.RateBurst, 1)),
		slots:   make(chan struct{}, max(cfg.Server.MaxConcurrentScrapes, 1)),
		circuit: newCaptchaCircuit(
			cfg.Server.CaptchaTripThreshold,
			time.Duration(cfg.Server.CaptchaCooldownSec)*time.Second,
			nil,
		),
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(time.Duration(max(cfg.Server.RequestTimeoutSec, 1)) * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/scrape", s.scrape)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.circuit.Allow() {
		writeError(w, http.StatusServiceUnavailable, "anti-bot circuit open")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type scrapeRequest struct {
	Location            string `json:"location"`
	PriceMin            *int   `json:"price_min"`
	PriceMax            *int   `json:"price_max"`
	Furnished           *bool  `json:"furnished"`
	RoomInShared        *bool  `json:"room_in_shared"`
	Page                int    `json:"page"`
	TimeoutMS           int    `json:"timeout_ms"`
	TakeScreenshot      *bool  `json:"take_screenshot"`
	Headless            *bool  `json:"headless"`
	SelectorProfilePath string `json:"selector_profile_path"`
}

type scrapeResponse struct {
	ScrapeID string `json:"scrape_id"`
	scraper.ScrapeResult
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	query, opts, err := s.toScrapeCall(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	if !s.circuit.Allow() {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(s.circuit.RetryAfter().Seconds())))
		writeError(w, http.StatusServiceUnavailable, "anti-bot circuit open; retry later")
		return
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	default:
		writeError(w, http.StatusTooManyRequests, "scrape capacity exhausted")
		return
	}

	scrapeID, result := s.runner.Run(r.Context(), query, opts)
	s.circuit.Record(result.Status)

	writeJSON(w, http.StatusOK, scrapeResponse{ScrapeID: scrapeID, ScrapeResult: result})
}

func (s *Server) toScrapeCall(req scrapeRequest) (scraper.SearchQuery, scraper.Options, error) {
	if req.Location == "" {
		return scraper.SearchQuery{}, scraper.Options{}, fmt.Errorf("location is required")
	}
	if req.Page < 0 {
		return scraper.SearchQuery{}, scraper.Options{}, fmt.Errorf("page must be >= 0")
	}
	if req.PriceMin != nil && *req.PriceMin < 0 {
		return scraper.SearchQuery{}, scraper.Options{}, fmt.Errorf("price_min must be >= 0")
	}
	if req.PriceMax != nil && *req.PriceMax < 0 {
		return scraper.SearchQuery{}, scraper.Options{}, fmt.Errorf("price_max must be >= 0")
	}
	query := scraper.SearchQuery{
		Location:     req.Location,
		PriceMin:     req.PriceMin,
		PriceMax:     req.PriceMax,
		Furnished:    req.Furnished,
		RoomInShared: valueOrDefault(req.RoomInShared, true),
		Page:         req.Page,
	}
	opts := scraper.Options{
		ProfilePath:    req.SelectorProfilePath,
		Headless:       req.Headless,
		TakeScreenshot: req.TakeScreenshot,
	}
	if req.TimeoutMS > 0 {
		opts.Timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}
	return query, opts, nil
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
