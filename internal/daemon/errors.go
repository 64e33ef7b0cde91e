// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingTopology is returned when components are built without locations to probe.
	ErrMissingTopology = errors.New("topology is required")

	// ErrMissingScheduler is returned when an App is run without a scheduler.
	ErrMissingScheduler = errors.New("scheduler is required")
)
