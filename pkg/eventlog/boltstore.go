package eventlog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/weathererr"
	bolt "go.etcd.io/bbolt"
)

// Bucket names follow a bucket-per-entity convention: one append-only
// bucket keyed by big-endian sequence number, plus secondary index
// buckets so stream-filter reads don't require a full scan of the
// primary bucket.
var (
	bucketEvents   = []byte("events")
	bucketByZone   = []byte("events_by_zone")
	bucketByUpdate = []byte("events_by_update")
)

// BoltStore is an embedded, single-process Store backed by go.etcd.io/bbolt,
// suited to local/standalone deployments that don't need a shared Postgres
// instance: one *bolt.DB, one bucket set created eagerly at open,
// JSON-marshaled records.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if absent) a BoltDB-backed event log at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("eventlog: open bolt store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketEvents, bucketByZone, bucketByUpdate} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("eventlog: create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

func seqKey(seq int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(seq))
	return key
}

func (s *BoltStore) Append(ctx context.Context, filter Filter, expectedVersion int64, newEvents []NewEvent) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var persisted []Event
	err := s.db.Update(func(tx *bolt.Tx) error {
		eventsBucket := tx.Bucket(bucketEvents)

		maxMatched, err := s.maxMatchedLocked(tx, filter)
		if err != nil {
			return err
		}
		if maxMatched > expectedVersion {
			return weathererr.Conflict
		}

		now := time.Now().UTC()

		for _, ne := range newEvents {
			seq, err := eventsBucket.NextSequence()
			if err != nil {
				return fmt.Errorf("eventlog: next sequence: %w", err)
			}

			e := Event{
				Sequence:   int64(seq),
				Type:       ne.Type,
				Zone:       ne.Zone,
				UpdateID:   ne.UpdateID,
				Payload:    ne.Payload,
				RecordedAt: now,
			}

			raw, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("eventlog: marshal event: %w", err)
			}
			if err := eventsBucket.Put(seqKey(e.Sequence), raw); err != nil {
				return fmt.Errorf("eventlog: put event: %w", err)
			}

			if e.Zone != "" {
				if err := indexPut(tx, bucketByZone, e.Zone, e.Sequence); err != nil {
					return err
				}
			}
			if e.UpdateID != "" {
				if err := indexPut(tx, bucketByUpdate, e.UpdateID, e.Sequence); err != nil {
					return err
				}
			}

			persisted = append(persisted, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return persisted, nil
}

// indexPut appends seq to the list of sequence numbers stored under key
// in the given secondary-index bucket.
func indexPut(tx *bolt.Tx, bucketName []byte, key string, seq int64) error {
	bucket := tx.Bucket(bucketName)
	var seqs []int64
	if raw := bucket.Get([]byte(key)); raw != nil {
		if err := json.Unmarshal(raw, &seqs); err != nil {
			return fmt.Errorf("eventlog: unmarshal index %s/%s: %w", bucketName, key, err)
		}
	}
	seqs = append(seqs, seq)
	raw, err := json.Marshal(seqs)
	if err != nil {
		return fmt.Errorf("eventlog: marshal index %s/%s: %w", bucketName, key, err)
	}
	return bucket.Put([]byte(key), raw)
}

// indexGet returns the sequence numbers stored under key in the given
// secondary-index bucket, in the ascending order indexPut appended them.
func indexGet(tx *bolt.Tx, bucketName []byte, key string) ([]int64, error) {
	raw := tx.Bucket(bucketName).Get([]byte(key))
	if raw == nil {
		return nil, nil
	}
	var seqs []int64
	if err := json.Unmarshal(raw, &seqs); err != nil {
		return nil, fmt.Errorf("eventlog: unmarshal index %s/%s: %w", bucketName, key, err)
	}
	return seqs, nil
}

// candidateSequences narrows filter to the sequence numbers its Zone
// and/or UpdateID tag indexes to. The bool reports whether an index
// narrowed it at all -- false means filter carries neither tag and a
// full scan of bucketEvents is the only option.
func candidateSequences(tx *bolt.Tx, filter Filter) ([]int64, bool, error) {
	switch {
	case filter.Zone != "" && filter.UpdateID != "":
		byZone, err := indexGet(tx, bucketByZone, filter.Zone)
		if err != nil {
			return nil, false, err
		}
		byUpdate, err := indexGet(tx, bucketByUpdate, filter.UpdateID)
		if err != nil {
			return nil, false, err
		}
		return intersectSorted(byZone, byUpdate), true, nil
	case filter.Zone != "":
		seqs, err := indexGet(tx, bucketByZone, filter.Zone)
		return seqs, true, err
	case filter.UpdateID != "":
		seqs, err := indexGet(tx, bucketByUpdate, filter.UpdateID)
		return seqs, true, err
	default:
		return nil, false, nil
	}
}

// intersectSorted returns the values common to a and b; both are assumed
// already sorted ascending, as indexPut leaves them.
func intersectSorted(a, b []int64) []int64 {
	set := make(map[int64]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []int64
	for _, v := range a {
		if _, ok := set[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (s *BoltStore) maxMatchedLocked(tx *bolt.Tx, filter Filter) (int64, error) {
	eventsBucket := tx.Bucket(bucketEvents)

	seqs, indexed, err := candidateSequences(tx, filter)
	if err != nil {
		return 0, err
	}

	var max int64
	if indexed {
		for _, seq := range seqs {
			raw := eventsBucket.Get(seqKey(seq))
			if raw == nil {
				continue
			}
			var e Event
			if err := json.Unmarshal(raw, &e); err != nil {
				return 0, fmt.Errorf("eventlog: unmarshal event: %w", err)
			}
			if filter.Matches(e) && e.Sequence > max {
				max = e.Sequence
			}
		}
		return max, nil
	}

	cursor := eventsBucket.Cursor()
	for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
		var e Event
		if err := json.Unmarshal(v, &e); err != nil {
			return 0, fmt.Errorf("eventlog: unmarshal event: %w", err)
		}
		if filter.Matches(e) && e.Sequence > max {
			max = e.Sequence
		}
	}
	return max, nil
}

func (s *BoltStore) Read(ctx context.Context, filter Filter, fromVersion int64) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []Event
	err := s.db.View(func(tx *bolt.Tx) error {
		eventsBucket := tx.Bucket(bucketEvents)

		seqs, indexed, err := candidateSequences(tx, filter)
		if err != nil {
			return err
		}

		if indexed {
			for _, seq := range seqs {
				if seq <= fromVersion {
					continue
				}
				raw := eventsBucket.Get(seqKey(seq))
				if raw == nil {
					continue
				}
				var e Event
				if err := json.Unmarshal(raw, &e); err != nil {
					return fmt.Errorf("eventlog: unmarshal event: %w", err)
				}
				if filter.Matches(e) {
					result = append(result, e)
				}
			}
			return nil
		}

		cursor := eventsBucket.Cursor()
		for k, v := cursor.Seek(seqKey(fromVersion + 1)); k != nil; k, v = cursor.Next() {
			var e Event
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("eventlog: unmarshal event: %w", err)
			}
			if filter.Matches(e) {
				result = append(result, e)
			}
		}
		return nil
	})
	return result, err
}

func (s *BoltStore) Version(ctx context.Context, filter Filter) (int64, error) {
	var max int64
	err := s.db.View(func(tx *bolt.Tx) error {
		v, err := s.maxMatchedLocked(tx, filter)
		max = v
		return err
	})
	return max, err
}

func (s *BoltStore) Subscribe(ctx context.Context, filter Filter, fromCheckpoint int64, interval time.Duration, handler func(Event) error) error {
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
