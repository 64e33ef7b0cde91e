// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

func TestManager_Health(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "ok", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "slow", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestManager_Ready(t *testing.T) {
	m := NewManager("v1")
	assert.True(t, m.Ready(context.Background()).Ready, "no checkers means ready")

	m.RegisterChecker(&mockChecker{name: "slow", status: StatusDegraded})
	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)

	m.RegisterChecker(&mockChecker{name: "down", status: StatusUnhealthy})
	resp = m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(&mockChecker{name: "down", status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.Ready)
	assert.Equal(t, StatusUnhealthy, body.Checks["down"].Status)

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "liveness ignores checkers")
}

func TestBinaryChecker(t *testing.T) {
	c := NewBinaryChecker("ffmpeg", "ffmpeg")
	c.lookPath = func(string) (string, error) { return "/usr/bin/ffmpeg", nil }
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, "/usr/bin/ffmpeg", res.Message)

	c.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)
}

func TestCycleFreshnessChecker(t *testing.T) {
	now := time.Date(2025, 5, 20, 15, 0, 0, 0, time.UTC)
	inWindow := true
	last := time.Time{}
	have := false

	c := NewCycleFreshnessChecker(
		func() (time.Time, bool) { return last, have },
		func(time.Time) bool { return inWindow },
		2*time.Hour,
	)
	c.now = func() time.Time { return now }
	c.started = now.Add(-30 * time.Minute)

	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status, "fresh process waits for the first cycle")

	c.started = now.Add(-3 * time.Hour)
	res := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
	assert.Equal(t, "no cycle completed yet", res.Message)

	last, have = now.Add(-time.Hour), true
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	last = now.Add(-3 * time.Hour)
	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)

	inWindow = false
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status, "staleness is ignored outside the window")
}

func TestPerformStartupChecks(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "fake-ffmpeg")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755))

	exportDir := filepath.Join(dir, "exports")
	err := PerformStartupChecks(context.Background(), StartupConfig{FFmpegBin: fake, ExportDir: exportDir, ListenAddr: ":8080"})
	require.NoError(t, err)
	assert.DirExists(t, exportDir)

	err = PerformStartupChecks(context.Background(), StartupConfig{FFmpegBin: filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "ffmpeg binary not found")

	err = PerformStartupChecks(context.Background(), StartupConfig{FFmpegBin: fake, ListenAddr: "no-port"})
	assert.ErrorContains(t, err, "invalid API listen address")
}
