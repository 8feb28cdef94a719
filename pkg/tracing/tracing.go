// Package tracing provides a generic event-log listener that logs every
// event it sees, for local debugging and audit trails. It is a direct
// Go-idiom port of a listener that does nothing but route events to the
// structured logger at a configured level.
package tracing

import (
	"context"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/log"
	"github.com/rs/zerolog"
)

// Processor logs every event matching Filter at Level.
type Processor struct {
	ID     string
	Level  zerolog.Level
	Filter eventlog.Filter
}

func New(id string, level zerolog.Level, filter eventlog.Filter) *Processor {
	return &Processor{ID: id, Level: level, Filter: filter}
}

// Run subscribes to Filter and logs each event until ctx is canceled.
func (p *Processor) Run(ctx context.Context, store eventlog.Store, pollInterval time.Duration) error {
	logger := log.WithComponent(p.ID)

	return store.Subscribe(ctx, p.Filter, 0, pollInterval, func(e eventlog.Event) error {
		logger.WithLevel(p.Level).
			Str("event_type", e.Type).
			Int64("sequence", e.Sequence).
			Str("zone", e.Zone).
			Str("update_id", e.UpdateID).
			Msg("event")
		return nil
	})
}
