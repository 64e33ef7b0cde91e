package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camwatch/internal/fanout"
	"github.com/ManuGH/camwatch/internal/prober"
)

func TestCSVWriter_Write(t *testing.T) {
	dir := t.TempDir()
	msk := time.FixedZone("MSK", 3*60*60)
	w := NewCSVWriter(dir, msk)
	at := time.Date(2025, 3, 1, 9, 0, 5, 0, time.UTC)

	results := []fanout.Result{
		{LocationID: "b", LocationName: "Beta", Result: prober.Result{Channel: 1, Accessible: true, Quality: prober.QualityDark, FramesChecked: 5, FramesDark: 5, Attempts: 1}},
		{LocationID: "a", LocationName: "Alpha", Result: prober.Result{Channel: 2, Quality: prober.QualityAttemptsExhausted, Attempts: 3, Failure: prober.FailureAttemptsExhausted}},
		{LocationID: "a", LocationName: "Alpha", Result: prober.Result{Channel: 1, Accessible: true, Quality: prober.QualityNormal, FramesChecked: 5, Attempts: 1}},
	}

	path, err := w.Write(context.Background(), results, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "camera_status_20250301_120005.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{"Alpha", "a", "1", "Online", "normal", "5", "0", "1", "", "2025-03-01 12:00:05"}, rows[1])
	assert.Equal(t, []string{"Alpha", "a", "2", "Offline", "attempts-exhausted", "0", "0", "3", "attempts_exhausted", "2025-03-01 12:00:05"}, rows[2])
	assert.Equal(t, "Beta", rows[3][0])
	assert.Equal(t, "dark", rows[3][4])
}

func TestCSVWriter_EmptyResults(t *testing.T) {
	w := NewCSVWriter(t.TempDir(), nil)
	path, err := w.Write(context.Background(), nil, time.Unix(0, 0))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Branch,LocationID,Camera,Status,Quality,FramesChecked,FramesDark,Attempts,Failure,Timestamp\n", string(data))
}

func TestCSVWriter_MissingDir(t *testing.T) {
	w := NewCSVWriter(filepath.Join(t.TempDir(), "missing"), time.UTC)
	_, err := w.Write(context.Background(), nil, time.Now())
	assert.Error(t, err)
}
