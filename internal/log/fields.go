// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCycleID = "cycle_id"
	FieldTraceID = "trace_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Topology fields
	FieldLocation   = "location"
	FieldLocationID = "location_id"
	FieldChannel    = "channel"
	FieldProfile    = "profile"
	FieldURL        = "url"

	// Probe fields
	FieldAttempt      = "attempt"
	FieldMaxAttempts  = "max_attempts"
	FieldQuality      = "quality"
	FieldFailureClass = "failure_class"
	FieldAccessible   = "accessible"
	FieldFramesTotal  = "frames_checked"
	FieldFramesDark   = "frames_dark"

	// Timing fields
	FieldDurationMS = "duration_ms"
	FieldSleep      = "sleep"
	FieldNextRun    = "next_run"
)
