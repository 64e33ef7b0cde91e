// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors for probes and cycles.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Probe metrics
	probeResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camwatch_probe_results_total",
		Help: "Channel probe results by quality",
	}, []string{"quality"}) // quality=normal|dark|tcp-failed|protocol-error|exception|attempts-exhausted

	probeAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "camwatch_probe_attempts",
		Help:    "Stream open attempts per channel probe",
		Buckets: []float64{1, 2, 3, 4, 5, 8},
	})

	probeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "camwatch_probe_duration_seconds",
		Help:    "Wall time of a single channel probe",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
	})

	// Cycle metrics
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "camwatch_cycle_duration_seconds",
		Help:    "Wall time of a full probe cycle",
		Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
	})

	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camwatch_cycles_total",
		Help: "Completed probe cycles by outcome",
	}, []string{"outcome"}) // outcome=clean|problems|partial

	lastCycleTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camwatch_last_cycle_timestamp_seconds",
		Help: "Unix time the last cycle completed",
	})

	channelsOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camwatch_channels_online",
		Help: "Online channels in the last cycle",
	})

	channelsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camwatch_channels_total",
		Help: "Probed channels in the last cycle",
	})

	locationOnline = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "camwatch_location_online_channels",
		Help: "Online channels per location in the last cycle",
	}, []string{"location"})

	locationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camwatch_location_errors_total",
		Help: "Location tasks that failed as a whole",
	}, []string{"location"})

	// Delivery metrics
	notifyFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camwatch_notify_failures_total",
		Help: "Summary deliveries that failed by sink",
	}, []string{"sink"}) // sink=telegram|mqtt|log

	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "camwatch_circuit_breaker_state",
		Help: "Circuit breaker state by name (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	breakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "camwatch_circuit_breaker_trips_total",
		Help: "Circuit breaker transitions to open",
	}, []string{"name", "reason"})

	exportFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camwatch_export_failures_total",
		Help: "Per-cycle CSV exports that failed",
	})

	// Scheduler metrics
	skippedBoundariesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "camwatch_scheduler_skipped_boundaries_total",
		Help: "Hour boundaries skipped because a cycle overran",
	})

	schedulerRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "camwatch_scheduler_running",
		Help: "1 while a cycle is running, 0 while waiting",
	})
)

// RecordProbe records one finished channel probe.
func RecordProbe(quality string, attempts int, d time.Duration) {
	probeResultsTotal.WithLabelValues(quality).Inc()
	if attempts > 0 {
		probeAttempts.Observe(float64(attempts))
	}
	probeDuration.Observe(d.Seconds())
}

// RecordCycle records a completed cycle.
func RecordCycle(d time.Duration, online, total, locationErrors int, finished time.Time) {
	cycleDuration.Observe(d.Seconds())
	outcome := "clean"
	switch {
	case locationErrors > 0:
		outcome = "partial"
	case online < total:
		outcome = "problems"
	}
	cyclesTotal.WithLabelValues(outcome).Inc()
	channelsOnline.Set(float64(online))
	channelsTotal.Set(float64(total))
	lastCycleTimestamp.Set(float64(finished.Unix()))
}

// RecordLocation sets the online gauge for a location.
func RecordLocation(location string, online int) {
	locationOnline.WithLabelValues(location).Set(float64(online))
}

// RecordLocationError counts a failed location task.
func RecordLocationError(location string) {
	locationErrorsTotal.WithLabelValues(location).Inc()
}

// RecordNotifyFailure counts a failed delivery on sink.
func RecordNotifyFailure(sink string) {
	notifyFailuresTotal.WithLabelValues(sink).Inc()
}

// SetCircuitBreakerState publishes a breaker state.
func SetCircuitBreakerState(name, state string) {
	v := 0.0
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	breakerState.WithLabelValues(name).Set(v)
}

// RecordCircuitBreakerTrip counts a breaker opening.
func RecordCircuitBreakerTrip(name, reason string) {
	breakerTripsTotal.WithLabelValues(name, reason).Inc()
}

// RecordExportFailure counts a failed CSV export.
func RecordExportFailure() {
	exportFailuresTotal.Inc()
}

// RecordSkippedBoundaries counts boundaries lost to an overrunning cycle.
func RecordSkippedBoundaries(n int) {
	if n > 0 {
		skippedBoundariesTotal.Add(float64(n))
	}
}

// SetSchedulerRunning flips the scheduler state gauge.
func SetSchedulerRunning(running bool) {
	if running {
		schedulerRunning.Set(1)
		return
	}
	schedulerRunning.Set(0)
}
