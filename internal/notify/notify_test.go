package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camwatch/internal/resilience"
)

type recorder struct {
	name  string
	err   error
	texts []string
	mutes []bool
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Send(_ context.Context, text string, mute bool) error {
	r.texts = append(r.texts, text)
	r.mutes = append(r.mutes, mute)
	return r.err
}

func TestMulti_DeliversToEverySink(t *testing.T) {
	boom := errors.New("boom")
	a := &recorder{name: "a", err: boom}
	b := &recorder{name: "b"}

	err := Multi{a, b}.Send(context.Background(), "summary", true)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a: boom")
	assert.Equal(t, []string{"summary"}, b.texts, "a failing sink does not stop the others")
	assert.Equal(t, []bool{true}, b.mutes)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi{}.Send(context.Background(), "x", false))
}

func TestLog_Send(t *testing.T) {
	var buf bytes.Buffer
	sink := Log{Logger: zerolog.New(&buf)}

	require.NoError(t, sink.Send(context.Background(), "✅ A: 1/1 камер работает", true))
	assert.Contains(t, buf.String(), `"mute":true`)
	assert.Contains(t, buf.String(), "камер работает")
}

func TestGuard_SkipsSinkAfterFailures(t *testing.T) {
	down := &recorder{name: "telegram", err: errors.New("502")}
	g := Guard(down, 2, time.Hour)
	assert.Equal(t, "telegram", g.Name())

	require.Error(t, g.Send(context.Background(), "one", false))
	require.Error(t, g.Send(context.Background(), "two", false))
	err := g.Send(context.Background(), "three", false)

	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, []string{"one", "two"}, down.texts)
}
