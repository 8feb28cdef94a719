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
	"github.com/dmrolfs/weather-monitor/pkg/log"
	"github.com/dmrolfs/weather-monitor/pkg/update"
	"github.com/dmrolfs/weather-monitor/pkg/zone"
	"github.com/jmoiron/sqlx"
)

// UpdateWeatherHistoryRow is the update_weather_history projection table's
// row shape.
type UpdateWeatherHistoryRow struct {
	UpdateID      string          `db:"update_id"`
	State         string          `db:"state"`
	Statuses      json.RawMessage `db:"update_statuses"`
	LastUpdatedAt time.Time       `db:"last_updated_at"`
}

const (
	stateActive   = "active"
	stateFinished = "finished"
)

// UpdateWeatherHistoryProjection maintains one row per update_id, derived
// from the same Status/IsFinished logic the saga aggregate itself uses
//.
type UpdateWeatherHistoryProjection struct {
	db *sqlx.DB
}

func NewUpdateWeatherHistoryProjection(db *sqlx.DB) *UpdateWeatherHistoryProjection {
	return &UpdateWeatherHistoryProjection{db: db}
}

func (p *UpdateWeatherHistoryProjection) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS update_weather_history (
			update_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			update_statuses JSONB,
			last_updated_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("projections: ensure update_weather_history schema: %w", err)
	}
	return nil
}

// Handle applies one update-saga-tagged event: read the current row (a
// missing row is itself meaningful only for UpdateStarted, which logs and
// overwrites on restart; any other event without a row is unexpected and
// logged before a synthetic initial row is created), re-derive Status with
// the aggregate's own Reduce, and upsert.
func (p *UpdateWeatherHistoryProjection) Handle(ctx context.Context, e eventlog.Event) error {
	updateID := ids.UpdateID(e.UpdateID)
	if updateID == "" {
		return nil
	}

	logger := log.WithUpdateID(e.UpdateID)

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("projections: begin update_weather_history tx: %w", err)
	}
	defer tx.Rollback()

	state, existed, err := p.readState(ctx, tx, updateID)
	if err != nil {
		return err
	}

	if e.Type == update.EventUpdateStarted && existed {
		logger.Warn().Msg("update_weather_history row already existed for UpdateStarted -- overwriting")
	}
	if e.Type != update.EventUpdateStarted && !existed {
		logger.Warn().Str("event_type", e.Type).Msg("event arrived with no existing update_weather_history row -- creating synthetic initial row")
	}

	state = update.Reduce(state, e)

	statuses, err := json.Marshal(state.Status)
	if err != nil {
		return fmt.Errorf("projections: marshal update statuses: %w", err)
	}

	stateTag := stateActive
	if state.IsFinished() {
		stateTag = stateFinished
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO update_weather_history (update_id, state, update_statuses, last_updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (update_id) DO UPDATE SET
			state = EXCLUDED.state,
			update_statuses = EXCLUDED.update_statuses,
			last_updated_at = EXCLUDED.last_updated_at
	`, string(updateID), stateTag, statuses, e.RecordedAt)
	if err != nil {
		return fmt.Errorf("projections: upsert update_weather_history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("projections: commit update_weather_history tx: %w", err)
	}
	observeApplied("update_weather_history", e)
	return nil
}

func (p *UpdateWeatherHistoryProjection) readState(ctx context.Context, tx *sqlx.Tx, updateID ids.UpdateID) (update.State, bool, error) {
	var row UpdateWeatherHistoryRow
	err := tx.GetContext(ctx, &row, `SELECT update_id, state, update_statuses, last_updated_at FROM update_weather_history WHERE update_id = $1`, string(updateID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return update.ZeroState(), false, nil
		}
		return update.State{}, false, fmt.Errorf("projections: read update_weather_history: %w", err)
	}

	state := update.ZeroState()
	state.Started = true
	if len(row.Statuses) > 0 {
		if err := json.Unmarshal(row.Statuses, &state.Status); err != nil {
			return update.State{}, true, fmt.Errorf("projections: decode update statuses: %w", err)
		}
	}
	return state, true, nil
}

// FetchStatus reads a saga run's materialized state directly from the
// update_weather_history table, for deployments that maintain this
// projection instead of replaying the event log on every status read. A
// never-started update_id reports found=false rather than an error.
func (p *UpdateWeatherHistoryProjection) FetchStatus(ctx context.Context, updateID ids.UpdateID) (update.State, bool, error) {
	var row UpdateWeatherHistoryRow
	err := p.db.GetContext(ctx, &row, `SELECT update_id, state, update_statuses, last_updated_at FROM update_weather_history WHERE update_id = $1`, string(updateID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return update.State{}, false, nil
		}
		return update.State{}, false, fmt.Errorf("projections: fetch update_weather_history: %w", err)
	}

	state := update.ZeroState()
	state.Started = true
	if len(row.Statuses) > 0 {
		if err := json.Unmarshal(row.Statuses, &state.Status); err != nil {
			return update.State{}, false, fmt.Errorf("projections: decode update statuses: %w", err)
		}
	}
	return state, true, nil
}

// relevantEventTypes is every event type Handle recognizes — the saga's
// own plus the zone-slice events tagged with an update_id.
var relevantEventTypes = []string{
	update.EventUpdateStarted,
	update.EventAlertsReviewed,
	update.EventUpdateLocationFailed,
	zone.EventObservationUpdated,
	zone.EventForecastUpdated,
	zone.EventAlertActivated,
	zone.EventAlertDeactivated,
}

// Filter selects every event this projection cares about, across every
// update_id (the listener dispatches per-update_id state from the event
// itself, not from the filter).
var Filter = eventlog.ByType(relevantEventTypes...)
