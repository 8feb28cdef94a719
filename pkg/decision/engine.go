// Package decision implements the Decision Engine: the single
// place every command-to-event translation goes through. A generic
// read-reduce-process-append-retry contract shared by every aggregate
// in this repository.
package decision

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/dmrolfs/weather-monitor/pkg/eventlog"
	"github.com/dmrolfs/weather-monitor/pkg/metrics"
	"github.com/dmrolfs/weather-monitor/pkg/weathererr"
)

// MaxRetries bounds how many attempts Make makes at a command, the first
// included (so at most MaxRetries-1 re-reads and retries after a version
// conflict), before surfacing an infrastructure error.
const MaxRetries = 5

// Reducer folds one persisted event into the aggregate's in-memory state.
// It must be pure and non-blocking.
type Reducer[S any] func(state S, e eventlog.Event) S

// Command bundles the three things the Decision Engine contract needs:
// what slice of history to read (Filter), how to fold it into state
// (Zero + Reduce), and the pure decision (Process). PostCommit,
// if set, runs only after a successful append and receives the persisted
// events with their assigned sequence numbers — it is the only place
// side-effectful orchestration (driving the saga orchestrator) is allowed
// to live.
type Command[S any] struct {
	Filter     eventlog.Filter
	Zero       S
	Reduce     Reducer[S]
	Process    func(state S) ([]eventlog.NewEvent, error)
	PostCommit func(ctx context.Context, persisted []eventlog.Event)
}

// Make executes a command against store: read the filtered slice, reduce
// it to state, ask Process for new events, append them against the
// version just read, and retry from the top on a concurrency conflict.
// Process is never invoked twice against the same derived state across a
// retry — every attempt re-reads and re-reduces first.
func Make[S any](ctx context.Context, store eventlog.Store, cmd Command[S]) ([]eventlog.Event, error) {
	var lastErr error

	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 10 * time.Millisecond
			backoff += time.Duration(rand.Intn(10)) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		events, err := store.Read(ctx, cmd.Filter, 0)
		if err != nil {
			return nil, fmt.Errorf("decision: read state: %w", err)
		}

		version, err := store.Version(ctx, cmd.Filter)
		if err != nil {
			return nil, fmt.Errorf("decision: read version: %w", err)
		}

		state := cmd.Zero
		for _, e := range events {
			state = cmd.Reduce(state, e)
		}

		newEvents, err := cmd.Process(state)
		if err != nil {
			// domain error: never retried, surfaced directly.
			return nil, err
		}

		if len(newEvents) == 0 {
			return nil, nil
		}

		timer := metrics.NewTimer()
		persisted, err := store.Append(ctx, cmd.Filter, version, newEvents)
		timer.ObserveDuration(metrics.AppendDuration)
		if err != nil {
			if errors.Is(err, weathererr.Conflict) {
				metrics.AppendConflictsTotal.Inc()
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("decision: append: %w", err)
		}

		for _, e := range persisted {
			metrics.EventsAppendedTotal.WithLabelValues(e.Type).Inc()
		}

		if cmd.PostCommit != nil {
			cmd.PostCommit(ctx, persisted)
		}
		return persisted, nil
	}

	return nil, weathererr.New(weathererr.KindInfrastructure, "RetriesExhausted", lastErr)
}
