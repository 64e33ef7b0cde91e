// SPDX-License-Identifier: MIT

package middleware

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// StackConfig configures the ops server middleware stack.
type StackConfig struct {
	TracingService string // empty disables tracing
	RateLimit      int    // requests per minute per IP
	Logger         zerolog.Logger
}

// NewRouter constructs a chi router with the middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	// 1. Recoverer (outermost safety net)
	r.Use(chimw.Recoverer)
	// 2. RequestID (correlation early)
	r.Use(chimw.RequestID)
	r.Use(SecurityHeaders)
	r.Use(Metrics)
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	r.Use(AccessLog(cfg.Logger))
	r.Use(OpsRateLimit(cfg.RateLimit))
	return r
}
