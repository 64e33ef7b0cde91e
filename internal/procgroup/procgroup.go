// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup spawns decoder processes in their own process group so
// that a probe can reap the whole tree when it gives up on a stream.
package procgroup

import (
	"errors"
	"os/exec"
	"time"

	"github.com/ManuGH/camwatch/internal/log"
)

// ErrKillFailed is returned when the process did not exit after SIGKILL.
var ErrKillFailed = errors.New("kill operation failed")

// Set configures the command to start in a new process group.
// Mandatory for Terminate to function as a group reaper.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// Terminate stops the process group led by cmd: SIGTERM, wait up to grace for
// done to close, then SIGKILL and wait up to grace again. done must be closed
// by whoever calls cmd.Wait.
func Terminate(cmd *exec.Cmd, done <-chan struct{}, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	default:
	}

	pid := cmd.Process.Pid
	logger := log.WithComponent("procgroup")
	logger.Debug().Int("pid", pid).Msg("sending SIGTERM to process group")
	if err := terminateGroup(cmd); err != nil {
		logger.Debug().Err(err).Int("pid", pid).Msg("SIGTERM failed")
	}

	select {
	case <-done:
		return nil
	case <-time.After(grace):
	}

	logger.Warn().Int("pid", pid).Msg("SIGTERM grace period exceeded, sending SIGKILL to process group")
	if err := killGroup(cmd); err != nil {
		logger.Debug().Err(err).Int("pid", pid).Msg("SIGKILL failed")
	}

	select {
	case <-done:
		return nil
	case <-time.After(grace):
		return ErrKillFailed
	}
}
