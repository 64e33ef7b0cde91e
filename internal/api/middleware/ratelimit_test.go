// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func request(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_EnforcesLimit(t *testing.T) {
	h := limitByIP(3, time.Second)(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, request(h, "192.168.1.1").Code, "request %d", i+1)
	}

	w := request(h, "192.168.1.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestRateLimit_DifferentIPsIndependent(t *testing.T) {
	h := limitByIP(1, time.Second)(okHandler())

	assert.Equal(t, http.StatusOK, request(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, request(h, "10.0.0.2").Code)
}

func TestNewRouter_AppliesStack(t *testing.T) {
	r := NewRouter(StackConfig{RateLimit: 1, Logger: zerolog.Nop()})
	r.Get("/api/v1/summary", okHandler().ServeHTTP)

	w := request(r, "10.1.1.1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, http.StatusTooManyRequests, request(r, "10.1.1.1").Code)
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	r := NewRouter(StackConfig{RateLimit: 100, Logger: zerolog.Nop()})
	r.Get("/probe/{id}", okHandler().ServeHTTP)

	before := testutil.CollectAndCount(httpRequestDuration)
	req := httptest.NewRequest(http.MethodGet, "/probe/7", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, before+1, testutil.CollectAndCount(httpRequestDuration))
	assert.Equal(t, 0.0, testutil.ToFloat64(httpRequestsInFlight))
}
