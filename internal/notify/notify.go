// Package notify delivers cycle summaries to operators.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/camwatch/internal/log"
	"github.com/ManuGH/camwatch/internal/metrics"
)

// Notifier delivers a summary text. mute asks the sink to deliver silently.
type Notifier interface {
	Name() string
	Send(ctx context.Context, text string, mute bool) error
}

// Multi sends to every sink and joins their failures. One failing sink does
// not stop delivery to the others.
type Multi []Notifier

func (m Multi) Name() string { return "multi" }

func (m Multi) Send(ctx context.Context, text string, mute bool) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, text, mute); err != nil {
			metrics.RecordNotifyFailure(n.Name())
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Log writes the summary to the log only. It is the sink of last resort when
// no delivery channel is configured.
type Log struct {
	Logger zerolog.Logger
}

func (Log) Name() string { return "log" }

func (l Log) Send(ctx context.Context, text string, mute bool) error {
	logger := xglog.WithContext(ctx, l.Logger)
	logger.Info().
		Bool("mute", mute).
		Str("summary", text).
		Str(xglog.FieldEvent, "notify.log").
		Msg("cycle summary")
	return nil
}
