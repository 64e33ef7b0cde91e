//go:build unix

package prober

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camwatch/internal/policy"
	"github.com/ManuGH/camwatch/internal/stream"
)

// hangingDecoder stands in for an ffmpeg that never produces a frame.
func hangingDecoder(t *testing.T) *stream.FFmpegSource {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexec sleep 30\n"), 0o755))
	return stream.NewFFmpegSource(stream.FFmpegConfig{
		Bin:         bin,
		FrameWidth:  4,
		FrameHeight: 4,
		KillGrace:   100 * time.Millisecond,
	}, zerolog.Nop())
}

func TestProbe_HangingStreamStaysWithinBudget(t *testing.T) {
	profile := policy.Default()
	profile.Timeout = 300 * time.Millisecond
	profile.MaxAttempts = 3

	start := time.Now()
	res := newTestProber(hangingDecoder(t)).Probe(context.Background(), 1, descriptor, profile)
	elapsed := time.Since(start)

	assert.False(t, res.Accessible)
	assert.Equal(t, QualityAttemptsExhausted, res.Quality)
	assert.Equal(t, FailureAttemptsExhausted, res.Failure)
	assert.Equal(t, 3, res.Attempts)
	assert.GreaterOrEqual(t, elapsed, profile.Budget())
	assert.Less(t, elapsed, profile.Budget()+700*time.Millisecond, "each attempt waits one timeout")
}
