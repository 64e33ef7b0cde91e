// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogramCount(t *testing.T, h interface{ Write(*dto.Metric) error }) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestRecordProbe(t *testing.T) {
	before := testutil.ToFloat64(probeResultsTotal.WithLabelValues("dark"))
	attemptsBefore := histogramCount(t, probeAttempts)

	RecordProbe("dark", 2, 1500*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(probeResultsTotal.WithLabelValues("dark")))
	assert.Equal(t, attemptsBefore+1, histogramCount(t, probeAttempts))

	// Pre-check failures have no stream attempts and are not observed.
	RecordProbe("tcp-failed", 0, time.Second)
	assert.Equal(t, attemptsBefore+1, histogramCount(t, probeAttempts))
}

func TestRecordCycle_Outcome(t *testing.T) {
	tests := []struct {
		name           string
		online, total  int
		locationErrors int
		outcome        string
	}{
		{"clean", 4, 4, 0, "clean"},
		{"problems", 3, 4, 0, "problems"},
		{"partial", 4, 4, 1, "partial"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(cyclesTotal.WithLabelValues(tt.outcome))
			finished := time.Unix(1700000000, 0)

			RecordCycle(time.Minute, tt.online, tt.total, tt.locationErrors, finished)

			assert.Equal(t, before+1, testutil.ToFloat64(cyclesTotal.WithLabelValues(tt.outcome)))
			assert.Equal(t, float64(tt.online), testutil.ToFloat64(channelsOnline))
			assert.Equal(t, float64(tt.total), testutil.ToFloat64(channelsTotal))
			assert.Equal(t, float64(1700000000), testutil.ToFloat64(lastCycleTimestamp))
		})
	}
}

func TestRecordLocationAndDelivery(t *testing.T) {
	RecordLocation("north", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(locationOnline.WithLabelValues("north")))

	before := testutil.ToFloat64(locationErrorsTotal.WithLabelValues("north"))
	RecordLocationError("north")
	assert.Equal(t, before+1, testutil.ToFloat64(locationErrorsTotal.WithLabelValues("north")))

	nb := testutil.ToFloat64(notifyFailuresTotal.WithLabelValues("telegram"))
	RecordNotifyFailure("telegram")
	assert.Equal(t, nb+1, testutil.ToFloat64(notifyFailuresTotal.WithLabelValues("telegram")))

	eb := testutil.ToFloat64(exportFailuresTotal)
	RecordExportFailure()
	assert.Equal(t, eb+1, testutil.ToFloat64(exportFailuresTotal))
}

func TestScheduler(t *testing.T) {
	SetSchedulerRunning(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(schedulerRunning))
	SetSchedulerRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(schedulerRunning))

	before := testutil.ToFloat64(skippedBoundariesTotal)
	RecordSkippedBoundaries(0)
	RecordSkippedBoundaries(2)
	assert.Equal(t, before+2, testutil.ToFloat64(skippedBoundariesTotal))
}

func TestPromhttpExposure(t *testing.T) {
	RecordProbe("normal", 1, time.Second)

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `camwatch_probe_results_total{quality="normal"}`)
}
