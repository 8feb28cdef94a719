package projections

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/ids"
	"github.com/dmrolfs/weather-monitor/pkg/metrics"
	"github.com/dmrolfs/weather-monitor/pkg/weather"
	"github.com/dmrolfs/weather-monitor/pkg/zone"
	"github.com/jmoiron/sqlx"
)

// ZoneWeatherView is one zone's current aggregated weather, the row shape
// of the zone_weather projection table.
type ZoneWeatherView struct {
	Zone          string          `db:"zone"`
	Current       json.RawMessage `db:"current"`
	Forecast      json.RawMessage `db:"forecast"`
	Alert         json.RawMessage `db:"alert"`
	LastUpdatedAt time.Time       `db:"last_updated_at"`
}

// ZoneWeatherProjection maintains one row per zone, upserted within a
// transaction per handled event, checkpointed on the zone event stream's
// sequence number.
type ZoneWeatherProjection struct {
	db *sqlx.DB
}

func NewZoneWeatherProjection(db *sqlx.DB) *ZoneWeatherProjection {
	return &ZoneWeatherProjection{db: db}
}

func (p *ZoneWeatherProjection) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS zone_weather (
			zone TEXT PRIMARY KEY,
			current JSONB,
			forecast JSONB,
			alert JSONB,
			last_updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("projections: ensure zone_weather schema: %w", err)
	}
	return nil
}

// Handle applies one zone-slice event within its own transaction:
// updates are upserts within a transaction per event.
func (p *ZoneWeatherProjection) Handle(ctx context.Context, e eventlog.Event) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("projections: begin zone_weather tx: %w", err)
	}
	defer tx.Rollback()

	switch e.Type {
	case zone.EventObservationUpdated:
		if err := upsertZoneColumn(ctx, tx, e.Zone, "current", e.Payload, e.RecordedAt); err != nil {
			return err
		}
	case zone.EventForecastUpdated:
		if err := upsertZoneColumn(ctx, tx, e.Zone, "forecast", e.Payload, e.RecordedAt); err != nil {
			return err
		}
	case zone.EventAlertActivated:
		if err := upsertZoneColumn(ctx, tx, e.Zone, "alert", e.Payload, e.RecordedAt); err != nil {
			return err
		}
	case zone.EventAlertDeactivated:
		if err := upsertZoneColumn(ctx, tx, e.Zone, "alert", json.RawMessage("null"), e.RecordedAt); err != nil {
			return err
		}
	default:
		return nil
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("projections: commit zone_weather tx: %w", err)
	}
	observeApplied("zone_weather", e)
	return nil
}

func upsertZoneColumn(ctx context.Context, tx *sqlx.Tx, zoneCode, column string, payload json.RawMessage, at time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO zone_weather (zone, %s, last_updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (zone) DO UPDATE SET %s = EXCLUDED.%s, last_updated_at = EXCLUDED.last_updated_at
	`, column, column, column)

	if _, err := tx.ExecContext(ctx, query, zoneCode, payload, at); err != nil {
		return fmt.Errorf("projections: upsert zone_weather.%s: %w", column, err)
	}
	return nil
}

// observeApplied records a listener's progress gauges once an event has
// been durably applied: the checkpoint sequence and how far behind the
// log's wall clock the listener is running.
func observeApplied(projection string, e eventlog.Event) {
	metrics.ProjectionCheckpoint.WithLabelValues(projection).Set(float64(e.Sequence))
	metrics.ProjectionLagSeconds.WithLabelValues(projection).Set(time.Since(e.RecordedAt).Seconds())
}

// FetchZoneWeather reads the current projection row for zone, for the
// fetch_zone_weather command. A zone with no row yet -- never observed --
// returns all-nil rather than an error.
func (p *ZoneWeatherProjection) FetchZoneWeather(ctx context.Context, z ids.ZoneCode) (*weather.Frame, *weather.ZoneForecast, *weather.Alert, error) {
	var row ZoneWeatherView
	err := p.db.GetContext(ctx, &row, `SELECT zone, current, forecast, alert, last_updated_at FROM zone_weather WHERE zone = $1`, string(z))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, nil
		}
		return nil, nil, nil, fmt.Errorf("projections: fetch zone_weather: %w", err)
	}

	var frame *weather.Frame
	if len(row.Current) > 0 {
		var f weather.Frame
		if err := json.Unmarshal(row.Current, &f); err != nil {
			return nil, nil, nil, fmt.Errorf("projections: decode current frame: %w", err)
		}
		frame = &f
	}

	var forecast *weather.ZoneForecast
	if len(row.Forecast) > 0 {
		var fc weather.ZoneForecast
		if err := json.Unmarshal(row.Forecast, &fc); err != nil {
			return nil, nil, nil, fmt.Errorf("projections: decode forecast: %w", err)
		}
		forecast = &fc
	}

	var alert *weather.Alert
	if len(row.Alert) > 0 && string(row.Alert) != "null" {
		var a weather.Alert
		if err := json.Unmarshal(row.Alert, &a); err != nil {
			return nil, nil, nil, fmt.Errorf("projections: decode alert: %w", err)
		}
		alert = &a
	}

	return frame, forecast, alert, nil
}
