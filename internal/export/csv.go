// SPDX-License-Identifier: MIT

// Package export writes the raw per-channel results of a cycle to disk.
package export

import (
	"cmp"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/camwatch/internal/fanout"
	xglog "github.com/ManuGH/camwatch/internal/log"
)

const (
	filePrefix      = "camera_status_"
	fileStampLayout = "20060102_150405"
	rowStampLayout  = "2006-01-02 15:04:05"
)

var header = []string{
	"Branch", "LocationID", "Camera", "Status", "Quality",
	"FramesChecked", "FramesDark", "Attempts", "Failure", "Timestamp",
}

// CSVWriter writes one camera_status_<timestamp>.csv per cycle.
type CSVWriter struct {
	dir string
	loc *time.Location
}

// NewCSVWriter writes into dir, stamping files and rows in loc.
func NewCSVWriter(dir string, loc *time.Location) *CSVWriter {
	if loc == nil {
		loc = time.UTC
	}
	return &CSVWriter{dir: dir, loc: loc}
}

// FileName returns the export file name for a cycle finished at t.
func (w *CSVWriter) FileName(t time.Time) string {
	return filePrefix + t.In(w.loc).Format(fileStampLayout) + ".csv"
}

// Write exports results sorted by location name and channel, atomically
// replacing any file of the same name. It returns the written path.
func (w *CSVWriter) Write(ctx context.Context, results []fanout.Result, at time.Time) (string, error) {
	logger := xglog.WithComponentFromContext(ctx, "export")
	path := filepath.Join(w.dir, w.FileName(at))

	rows := slices.Clone(results)
	slices.SortStableFunc(rows, func(a, b fanout.Result) int {
		if c := cmp.Compare(a.LocationName, b.LocationName); c != 0 {
			return c
		}
		return cmp.Compare(a.Channel, b.Channel)
	})

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return "", fmt.Errorf("create pending export file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending export file")
		}
	}()

	cw := csv.NewWriter(pendingFile)
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("write export header: %w", err)
	}
	stamp := at.In(w.loc).Format(rowStampLayout)
	for _, r := range rows {
		if err := cw.Write(record(r, stamp)); err != nil {
			return "", fmt.Errorf("write export row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush export: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return "", fmt.Errorf("atomically replace export file: %w", err)
	}
	logger.Info().Str("path", path).Int("rows", len(rows)).Msg("cycle results exported")
	return path, nil
}

func record(r fanout.Result, stamp string) []string {
	status := "Offline"
	if r.Accessible {
		status = "Online"
	}
	return []string{
		r.LocationName,
		r.LocationID,
		strconv.Itoa(r.Channel),
		status,
		string(r.Quality),
		strconv.Itoa(r.FramesChecked),
		strconv.Itoa(r.FramesDark),
		strconv.Itoa(r.Attempts),
		string(r.Failure),
		stamp,
	}
}
