package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/weathererr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a Postgres-backed Store: the core treats the relational
// database purely as a transactional key-value + append-log substrate,
// never as a query surface for domain logic. The table layout is
// sequence, event-type tag, tagged-identifier columns, payload.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore wraps an already-configured connection pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureSchema creates the event log table and its stream-filter indices
// if they don't already exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS weather_event_log (
    sequence    BIGSERIAL PRIMARY KEY,
    event_type  TEXT NOT NULL,
    zone        TEXT NOT NULL DEFAULT '',
    update_id   TEXT NOT NULL DEFAULT '',
    payload     JSONB NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS weather_event_log_zone_idx ON weather_event_log (zone, sequence) WHERE zone <> '';
CREATE INDEX IF NOT EXISTS weather_event_log_update_idx ON weather_event_log (update_id, sequence) WHERE update_id <> '';
CREATE INDEX IF NOT EXISTS weather_event_log_type_idx ON weather_event_log (event_type, sequence);
`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("eventlog: ensure schema: %w", err)
	}
	return nil
}

func (s *PgStore) Append(ctx context.Context, filter Filter, expectedVersion int64, newEvents []NewEvent) ([]Event, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("eventlog: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	maxMatched, err := queryMaxMatched(ctx, tx, filter)
	if err != nil {
		return nil, err
	}
	if maxMatched > expectedVersion {
		return nil, weathererr.Conflict
	}

	persisted := make([]Event, 0, len(newEvents))
	for _, ne := range newEvents {
		var seq int64
		var recordedAt time.Time
		err := tx.QueryRow(ctx,
			`INSERT INTO weather_event_log (event_type, zone, update_id, payload)
			 VALUES ($1, $2, $3, $4) RETURNING sequence, recorded_at`,
			ne.Type, ne.Zone, ne.UpdateID, json.RawMessage(ne.Payload),
		).Scan(&seq, &recordedAt)
		if err != nil {
			return nil, fmt.Errorf("eventlog: insert event: %w", err)
		}
		persisted = append(persisted, Event{
			Sequence:   seq,
			Type:       ne.Type,
			Zone:       ne.Zone,
			UpdateID:   ne.UpdateID,
			Payload:    ne.Payload,
			RecordedAt: recordedAt,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("eventlog: commit: %w", err)
	}
	return persisted, nil
}

func queryMaxMatched(ctx context.Context, tx pgx.Tx, filter Filter) (int64, error) {
	query, args := filterWhere(filter, "sequence > 0")
	var max *int64
	err := tx.QueryRow(ctx, `SELECT max(sequence) FROM weather_event_log WHERE `+query, args...).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("eventlog: query max sequence: %w", err)
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// filterWhere renders a Filter into a SQL WHERE fragment plus positional
// args, anchored to baseClause (typically a sequence bound).
func filterWhere(filter Filter, baseClause string) (string, []any) {
	clause := baseClause
	var args []any

	if len(filter.Types) > 0 {
		args = append(args, filter.Types)
		clause += fmt.Sprintf(" AND event_type = ANY($%d)", len(args))
	}
	if filter.Zone != "" {
		args = append(args, filter.Zone)
		clause += fmt.Sprintf(" AND zone = $%d", len(args))
	}
	if filter.UpdateID != "" {
		args = append(args, filter.UpdateID)
		clause += fmt.Sprintf(" AND update_id = $%d", len(args))
	}
	return clause, args
}

func (s *PgStore) Read(ctx context.Context, filter Filter, fromVersion int64) ([]Event, error) {
	baseClause := fmt.Sprintf("sequence > %d", fromVersion)
	where, args := filterWhere(filter, baseClause)

	rows, err := s.pool.Query(ctx,
		`SELECT sequence, event_type, zone, update_id, payload, recorded_at
		 FROM weather_event_log WHERE `+where+` ORDER BY sequence ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("eventlog: read: %w", err)
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Sequence, &e.Type, &e.Zone, &e.UpdateID, &e.Payload, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("eventlog: scan event: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *PgStore) Version(ctx context.Context, filter Filter) (int64, error) {
	where, args := filterWhere(filter, "sequence > 0")
	var max *int64
	err := s.pool.QueryRow(ctx, `SELECT max(sequence) FROM weather_event_log WHERE `+where, args...).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("eventlog: version: %w", err)
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (s *PgStore) Subscribe(ctx context.Context, filter Filter, fromCheckpoint int64, interval time.Duration, handler func(Event) error) error {
	checkpoint := fromCheckpoint
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		events, err := s.Read(ctx, filter, checkpoint)
		if err != nil {
			return err
		}
		for _, e := range events {
			if err := handler(e); err != nil {
				return err
			}
			checkpoint = e.Sequence
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
