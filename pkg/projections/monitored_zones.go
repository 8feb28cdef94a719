package projections

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/log"
	"github.com/dmrolfs/weather-monitor/pkg/registrar"
)

// MonitoredZonesView is an in-memory set of currently monitored zones,
// kept current by a registrar-stream listener. Reads never
// touch the event log; they read the guarded set directly.
type MonitoredZonesView struct {
	mu    sync.RWMutex
	zones map[ids.ZoneCode]struct{}
}

func NewMonitoredZonesView() *MonitoredZonesView {
	return &MonitoredZonesView{zones: make(map[ids.ZoneCode]struct{})}
}

// Zones returns a snapshot of the currently monitored zone set.
func (v *MonitoredZonesView) Zones() []ids.ZoneCode {
	v.mu.RLock()
	defer v.mu.RUnlock()
	zones := make([]ids.ZoneCode, 0, len(v.zones))
	for z := range v.zones {
		zones = append(zones, z)
	}
	return zones
}

func (v *MonitoredZonesView) Monitored(z ids.ZoneCode) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.zones[z]
	return ok
}

func (v *MonitoredZonesView) apply(e eventlog.Event) {
	var payload registrar.ZonePayload

	v.mu.Lock()
	defer v.mu.Unlock()

	switch e.Type {
	case registrar.EventForecastZoneAdded:
		if json.Unmarshal(e.Payload, &payload) == nil {
			v.zones[payload.Zone] = struct{}{}
		}
	case registrar.EventForecastZoneRemoved:
		if json.Unmarshal(e.Payload, &payload) == nil {
			delete(v.zones, payload.Zone)
		}
	case registrar.EventAllForecastZonesRemoved:
		v.zones = make(map[ids.ZoneCode]struct{})
	}
}

// Run subscribes to the registrar stream and applies every event to the
// view until ctx is canceled. Handlers are idempotent, matching every
// other projection's at-least-once delivery guarantee.
func (v *MonitoredZonesView) Run(ctx context.Context, store eventlog.Store, pollInterval time.Duration) error {
	logger := log.WithComponent("monitored-zones-view")
	err := store.Subscribe(ctx, registrar.Filter, 0, pollInterval, func(e eventlog.Event) error {
		v.apply(e)
		observeApplied("monitored_zones", e)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("monitored zones listener halted")
	}
	return err
}
