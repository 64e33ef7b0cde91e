// Package api serves the operations endpoints: liveness, readiness,
// Prometheus metrics and the last cycle summary.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/camwatch/internal/api/middleware"
	"github.com/ManuGH/camwatch/internal/health"
	xglog "github.com/ManuGH/camwatch/internal/log"
	"github.com/ManuGH/camwatch/internal/report"
)

// SummarySource exposes the most recent cycle. *cycle.Runner implements it.
type SummarySource interface {
	Last() (report.CycleSummary, time.Time, bool)
}

// Config configures the ops server.
type Config struct {
	Listen         string
	RateLimit      int // requests per minute per IP
	TracingService string
}

// SummaryResponse is the body of GET /api/v1/summary.
type SummaryResponse struct {
	CycleID    string                  `json:"cycle_id"`
	FinishedAt time.Time               `json:"finished_at"`
	Online     int                     `json:"online"`
	Total      int                     `json:"total"`
	Mute       bool                    `json:"mute"`
	Text       string                  `json:"text"`
	Reports    []report.LocationReport `json:"reports"`
}

// Server is the ops HTTP server.
type Server struct {
	cfg       Config
	health    *health.Manager
	summaries SummarySource
	logger    zerolog.Logger
	handler   http.Handler
}

// New creates the server and its routes.
func New(cfg Config, hm *health.Manager, summaries SummarySource) *Server {
	s := &Server{
		cfg:       cfg,
		health:    hm,
		summaries: summaries,
		logger:    xglog.WithComponent("api"),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		TracingService: s.cfg.TracingService,
		RateLimit:      s.cfg.RateLimit,
		Logger:         s.logger,
	})
	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/api/v1/summary", s.handleSummary)
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, finished, ok := s.summaries.Last()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":  "no_cycle_yet",
			"detail": "No probe cycle has completed since start.",
		})
		return
	}
	online, total := summary.Totals()
	writeJSON(w, http.StatusOK, SummaryResponse{
		CycleID:    summary.CycleID,
		FinishedAt: finished,
		Online:     online,
		Total:      total,
		Mute:       summary.Mute(),
		Text:       summary.Text,
		Reports:    summary.Reports,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Listen).Msg("ops server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down ops server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
