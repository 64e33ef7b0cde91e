package report

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camwatch/internal/fanout"
	"github.com/ManuGH/camwatch/internal/prober"
	"github.com/ManuGH/camwatch/internal/topology"
)

func loc(id string, channels ...int) topology.Location {
	return topology.Location{ID: id, Name: id, Template: "rtsp://h/{channel}", Channels: channels}
}

func res(locID string, ch int, accessible bool, q prober.Quality) fanout.Result {
	return fanout.Result{
		LocationID:   locID,
		LocationName: locID,
		Result:       prober.Result{Channel: ch, Accessible: accessible, Quality: q},
	}
}

func TestAggregate_MixedScenario(t *testing.T) {
	locations := []topology.Location{loc("A", 1, 2), loc("B", 1)}
	results := []fanout.Result{
		res("B", 1, true, prober.QualityDark),
		res("A", 1, true, prober.QualityNormal),
		res("A", 2, false, prober.QualityAttemptsExhausted),
	}

	got := Aggregate(locations, results)

	want := CycleSummary{
		Reports: []LocationReport{
			{LocationID: "A", Name: "A", Total: 2, Online: 1, Offline: []int{2}},
			{LocationID: "B", Name: "B", Total: 1, Online: 1, Dark: []int{1}},
		},
		Text: "❌ A: 1/2 камер работает (камеры 2)\n✅ B: 1/1 камер работает",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Aggregate mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.Mute())
}

func TestAggregate_AllHealthyIsMutedAndAlphabetical(t *testing.T) {
	locations := []topology.Location{loc("Zeta", 1), loc("Alpha", 1, 2), loc("Mu", 3)}
	results := []fanout.Result{
		res("Zeta", 1, true, prober.QualityNormal),
		res("Alpha", 1, true, prober.QualityNormal),
		res("Alpha", 2, true, prober.QualityNormal),
		res("Mu", 3, true, prober.QualityNormal),
	}

	got := Aggregate(locations, results)

	assert.Equal(t, "✅ Alpha: 2/2 камер работает\n✅ Mu: 1/1 камер работает\n✅ Zeta: 1/1 камер работает", got.Text)
	assert.True(t, got.Mute())
	online, total := got.Totals()
	assert.Equal(t, 4, online)
	assert.Equal(t, 4, total)
}

func TestAggregate_ProblemsSortBeforeHealthyRegardlessOfName(t *testing.T) {
	locations := []topology.Location{loc("Alpha", 1), loc("Zeta", 1, 5, 2)}
	results := []fanout.Result{
		res("Alpha", 1, true, prober.QualityNormal),
		res("Zeta", 5, false, prober.QualityTCPFailed),
		res("Zeta", 1, true, prober.QualityNormal),
		res("Zeta", 2, false, prober.QualityProtocolError),
	}

	got := Aggregate(locations, results)

	require.Len(t, got.Reports, 2)
	assert.Equal(t, "Zeta", got.Reports[0].Name)
	assert.Equal(t, []int{2, 5}, got.Reports[0].Offline)
	assert.Equal(t, "❌ Zeta: 1/3 камер работает (камеры 2, 5)", got.Reports[0].Line())
}

func TestAggregate_LocationWithoutResultsIsOmitted(t *testing.T) {
	locations := []topology.Location{loc("A", 1), loc("B", 1)}
	got := Aggregate(locations, []fanout.Result{res("B", 1, true, prober.QualityNormal)})

	require.Len(t, got.Reports, 1)
	assert.Equal(t, "B", got.Reports[0].LocationID)
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil, nil)
	assert.Empty(t, got.Reports)
	assert.Empty(t, got.Text)
	assert.True(t, got.Mute())
}

func TestAggregate_Properties(t *testing.T) {
	qualities := prober.Qualities()
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		var locations []topology.Location
		var results []fanout.Result
		for l := 0; l < 1+rng.Intn(6); l++ {
			id := fmt.Sprintf("L%02d", rng.Intn(50))
			if containsLocation(locations, id) {
				continue
			}
			n := 1 + rng.Intn(8)
			channels := make([]int, n)
			for c := range channels {
				channels[c] = c + 1
				q := qualities[rng.Intn(len(qualities))]
				ok := q == prober.QualityNormal || q == prober.QualityDark
				results = append(results, res(id, c+1, ok, q))
			}
			locations = append(locations, loc(id, channels...))
		}
		rng.Shuffle(len(results), func(i, j int) { results[i], results[j] = results[j], results[i] })

		first := Aggregate(locations, results)
		second := Aggregate(locations, results)
		require.Equal(t, first.Text, second.Text, "aggregation is idempotent")

		for i, r := range first.Reports {
			assert.LessOrEqual(t, r.Online, r.Total)
			assert.Equal(t, r.Total, r.Online+len(r.Offline))
			if r.HasOffline() {
				assert.Contains(t, r.Line(), "❌")
				assert.Contains(t, r.Line(), "(камеры ")
			} else {
				assert.Contains(t, r.Line(), "✅")
				assert.NotContains(t, r.Line(), "(")
			}
			if i > 0 {
				prev := first.Reports[i-1]
				if prev.HasOffline() == r.HasOffline() {
					assert.Less(t, prev.Name, r.Name)
				} else {
					assert.True(t, prev.HasOffline(), "problem locations sort first")
				}
			}
		}
	}
}

func containsLocation(locations []topology.Location, id string) bool {
	for _, l := range locations {
		if l.ID == id {
			return true
		}
	}
	return false
}
