package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/weathererr"
)

// MemStore is an in-process Store, the append-only analogue of the
// teacher's bucket-guarded BoltStore: one mutex protects a single
// monotonically growing slice, and every read is a linear scan filtered
// in place. It backs unit tests and local/dev runs; PgStore backs
// a real deployment against the equivalent persistent schema.
type MemStore struct {
	mu     sync.Mutex
	events []Event
}

// NewMemStore returns an empty in-memory event log.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Append(ctx context.Context, filter Filter, expectedVersion int64, newEvents []NewEvent) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var maxMatched int64
	for _, e := range s.events {
		if filter.Matches(e) && e.Sequence > maxMatched {
			maxMatched = e.Sequence
		}
	}
	if maxMatched > expectedVersion {
		return nil, weathererr.Conflict
	}

	now := time.Now().UTC()
	persisted := make([]Event, 0, len(newEvents))
	for _, ne := range newEvents {
		seq := int64(len(s.events) + 1)
		e := Event{
			Sequence:   seq,
			Type:       ne.Type,
			Zone:       ne.Zone,
			UpdateID:   ne.UpdateID,
			Payload:    ne.Payload,
			RecordedAt: now,
		}
		s.events = append(s.events, e)
		persisted = append(persisted, e)
	}

	return persisted, nil
}

func (s *MemStore) Read(ctx context.Context, filter Filter, fromVersion int64) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []Event
	for _, e := range s.events {
		if e.Sequence > fromVersion && filter.Matches(e) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MemStore) Version(ctx context.Context, filter Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var max int64
	for _, e := range s.events {
		if filter.Matches(e) && e.Sequence > max {
			max = e.Sequence
		}
	}
	return max, nil
}

func (s *MemStore) Subscribe(ctx context.Context, filter Filter, fromCheckpoint int64, interval time.Duration, handler func(Event) error) error {
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
