// Package eventlog implements the append-only event log substrate:
// per-stream optimistic concurrency on append, filtered replay on
// read, and polling subscriptions for projection listeners.
package eventlog

import (
	"context"
	"encoding/json"
	"time"
)

// Event is one persisted, globally sequenced domain event.
type Event struct {
	Sequence   int64
	Type       string
	Zone       string
	UpdateID   string
	Payload    json.RawMessage
	RecordedAt time.Time
}

// NewEvent is an event about to be appended; Sequence and RecordedAt are
// assigned by the store.
type NewEvent struct {
	Type     string
	Zone     string
	UpdateID string
	Payload  json.RawMessage
}

// Filter is a conjunction over event type (disjunction within Types) and
// the tagged identifier fields. A zero-value Filter matches everything.
type Filter struct {
	Types    []string
	Zone     string
	UpdateID string
}

// Matches reports whether e satisfies the filter.
func (f Filter) Matches(e Event) bool {
	if len(f.Types) > 0 && !containsType(f.Types, e.Type) {
		return false
	}
	if f.Zone != "" && e.Zone != f.Zone {
		return false
	}
	if f.UpdateID != "" && e.UpdateID != f.UpdateID {
		return false
	}
	return true
}

func containsType(types []string, t string) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

// ByType builds a Filter matching any of the given event types.
func ByType(types ...string) Filter { return Filter{Types: types} }

// ForZone narrows a filter to a single zone's tagged events.
func (f Filter) ForZone(zone string) Filter { f.Zone = zone; return f }

// ForUpdate narrows a filter to a single update run's tagged events.
func (f Filter) ForUpdate(updateID string) Filter { f.UpdateID = updateID; return f }

// Store is the contract every event-log backend (in-memory, BoltDB,
// Postgres) implements. Append guarantees serializability between any two
// calls whose filters overlap: the engine must reject an append if any
// event matching filter has been recorded with a sequence greater than
// expectedVersion.
type Store interface {
	// Append persists events atomically iff no event matching filter has
	// been recorded past expectedVersion. Returns weathererr.Conflict otherwise.
	Append(ctx context.Context, filter Filter, expectedVersion int64, events []NewEvent) ([]Event, error)

	// Read returns, in sequence order, every persisted event matching
	// filter with Sequence > fromVersion. It is restartable and finite:
	// it returns once it catches up to the tail.
	Read(ctx context.Context, filter Filter, fromVersion int64) ([]Event, error)

	// Version returns the highest sequence number of any event matching
	// filter, or 0 if none exist yet.
	Version(ctx context.Context, filter Filter) (int64, error)

	// Subscribe polls filter from fromCheckpoint, invoking handler with
	// each event in sequence order and advancing an in-memory checkpoint
	// after every successful handler call. The checkpoint is not persisted:
	// a new Subscribe call starts again from its own fromCheckpoint. A
	// handler error ends the subscription and is returned. Otherwise it
	// blocks until ctx is canceled.
	Subscribe(ctx context.Context, filter Filter, fromCheckpoint int64, interval time.Duration, handler func(Event) error) error
}
