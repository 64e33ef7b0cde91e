// Package report aggregates one cycle's probe results into per-location
// reports and renders the human-readable summary.
package report

import (
	"slices"
	"strconv"
	"strings"

	"github.com/ManuGH/camwatch/internal/fanout"
	"github.com/ManuGH/camwatch/internal/prober"
	"github.com/ManuGH/camwatch/internal/topology"
)

const (
	healthyMarker = "✅"
	problemMarker = "❌"
)

// LocationReport summarises one location. A channel is offline iff its
// probe was not accessible; dark channels count as online.
type LocationReport struct {
	LocationID string `json:"location_id"`
	Name       string `json:"name"`
	Total      int    `json:"total"`
	Online     int    `json:"online"`
	Offline    []int  `json:"offline,omitempty"`
	Dark       []int  `json:"dark,omitempty"`
}

// HasOffline reports whether any channel is offline.
func (r LocationReport) HasOffline() bool { return len(r.Offline) > 0 }

// Line renders the report as a single summary line.
func (r LocationReport) Line() string {
	var b strings.Builder
	if r.HasOffline() {
		b.WriteString(problemMarker)
	} else {
		b.WriteString(healthyMarker)
	}
	b.WriteByte(' ')
	b.WriteString(r.Name)
	b.WriteString(": ")
	b.WriteString(strconv.Itoa(r.Online))
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(r.Total))
	b.WriteString(" камер работает")
	if r.HasOffline() {
		parts := make([]string, len(r.Offline))
		for i, ch := range r.Offline {
			parts[i] = strconv.Itoa(ch)
		}
		b.WriteString(" (камеры ")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteByte(')')
	}
	return b.String()
}

// CycleSummary is the ordered set of location reports plus rendered text.
type CycleSummary struct {
	CycleID string           `json:"cycle_id,omitempty"`
	Reports []LocationReport `json:"reports"`
	Text    string           `json:"text"`
}

// Mute is true when no channel is offline, so clean reports are delivered silently.
func (s CycleSummary) Mute() bool {
	for _, r := range s.Reports {
		if r.HasOffline() {
			return false
		}
	}
	return true
}

// Totals returns the number of online and probed channels across all reports.
func (s CycleSummary) Totals() (online, total int) {
	for _, r := range s.Reports {
		online += r.Online
		total += r.Total
	}
	return online, total
}

// Aggregate groups results by location in topology order, then orders the
// reports problems first and by name. Locations without results (their task
// failed) are omitted. Aggregate is pure.
func Aggregate(locations []topology.Location, results []fanout.Result) CycleSummary {
	byLocation := make(map[string][]fanout.Result, len(locations))
	for _, r := range results {
		byLocation[r.LocationID] = append(byLocation[r.LocationID], r)
	}

	reports := make([]LocationReport, 0, len(locations))
	for _, loc := range locations {
		rs, ok := byLocation[loc.ID]
		if !ok {
			continue
		}
		reports = append(reports, buildReport(loc, rs))
	}

	slices.SortStableFunc(reports, compareReports)

	lines := make([]string, len(reports))
	for i, r := range reports {
		lines[i] = r.Line()
	}
	return CycleSummary{Reports: reports, Text: strings.Join(lines, "\n")}
}

func buildReport(loc topology.Location, rs []fanout.Result) LocationReport {
	rep := LocationReport{LocationID: loc.ID, Name: loc.Name, Total: len(rs)}
	for _, r := range rs {
		if !r.Accessible {
			rep.Offline = append(rep.Offline, r.Channel)
			continue
		}
		rep.Online++
		if r.Quality == prober.QualityDark {
			rep.Dark = append(rep.Dark, r.Channel)
		}
	}
	slices.Sort(rep.Offline)
	slices.Sort(rep.Dark)
	return rep
}

func compareReports(a, b LocationReport) int {
	if a.HasOffline() != b.HasOffline() {
		if a.HasOffline() {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Name, b.Name)
}
