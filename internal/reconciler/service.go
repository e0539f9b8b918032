package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/Minglarn/trafikinfo-sub001/internal/event"
	"github.com/Minglarn/trafikinfo-sub001/internal/logger"
	"github.com/Minglarn/trafikinfo-sub001/pkg/metrics"
	"github.com/Minglarn/trafikinfo-sub001/pkg/tracing"
)

// Outcome classifies what ApplyDelta did with an incremental update.
type Outcome string

const (
	// OutcomeUpdated means the delta matched an existing entry, which was
	// merged in place.
	OutcomeUpdated Outcome = "updated"
	// OutcomeAdmitted means the delta passed admission control and was
	// prepended as a new entry.
	OutcomeAdmitted Outcome = "admitted"
	// OutcomeDiscarded means the delta failed the county admission test.
	// Routine filtering, not an error.
	OutcomeDiscarded Outcome = "discarded"
	// OutcomeRejected means the delta carried no usable identity.
	OutcomeRejected Outcome = "rejected"
)

// Service maintains the canonical ordered collection of active traffic
// events, merging the periodic bulk snapshot with the incremental push
// stream. All state lives behind one mutex so seeds, deltas and views
// serialize; readers never observe a partially applied mutation.
//
// Invariant: no two entries share an identity (event.SameIdentity).
// Ordering contract: a snapshot keeps its upstream order, updates keep their
// position, newly admitted deltas go to the front.
type Service struct {
	mu           sync.Mutex
	events       []event.Event
	monitored    map[int]struct{}
	generation   uint64
	lastFetchErr error
	logger       logger.Logger
}

func New(monitoredCounties []int, log logger.Logger) *Service {
	return &Service{
		monitored: toSet(monitoredCounties),
		logger:    log,
	}
}

// Generation returns the current snapshot fence. A fetch reads it before
// requesting a snapshot and passes it back to Seed; a preference change in
// between invalidates the fetch.
func (s *Service) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// SetMonitoredCounties replaces the admission set and bumps the generation
// so an in-flight snapshot for the old filter cannot seed stale data.
// Returns the new generation.
func (s *Service) SetMonitoredCounties(counties []int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.monitored = toSet(counties)
	s.generation++
	return s.generation
}

// MonitoredCounties returns the current admission set.
func (s *Service) MonitoredCounties() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counties := make([]int, 0, len(s.monitored))
	for c := range s.monitored {
		counties = append(counties, c)
	}
	return counties
}

// Seed replaces the canonical collection wholesale with a fresh snapshot,
// preserving the snapshot's order. This is the only operation that removes
// entries: an event absent from the snapshot is expired. Between refreshes
// entries are never aged out individually.
//
// A seed whose generation no longer matches is discarded and Seed reports
// false; the snapshot was fetched under a filter the user has since changed.
func (s *Service) Seed(generation uint64, events []event.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		metrics.SnapshotFetchesTotal.WithLabelValues("discarded_stale").Inc()
		s.logger.Infow("Discarding snapshot for outdated filter",
			"snapshot_generation", generation,
			"current_generation", s.generation,
			"events", len(events),
		)
		return false
	}

	s.events = dedupe(events)
	s.lastFetchErr = nil

	metrics.SetSnapshotEvents(len(s.events))
	metrics.SetCanonicalEvents(len(s.events))
	s.logger.Infow("Seeded canonical collection",
		"events", len(s.events),
	)
	return true
}

// ApplyDelta merges one incremental update into the canonical collection.
// A delta matching an existing entry always updates it in place, even when
// its county is not monitored; admission control applies only to new
// entries.
func (s *Service) ApplyDelta(ctx context.Context, ev event.Event) Outcome {
	ctx, span := tracing.GetTracer("reconciler").Start(ctx, "reconciler.apply_delta")
	defer span.End()

	start := time.Now()
	outcome := s.applyDelta(ctx, ev)

	metrics.DeltasTotal.WithLabelValues(string(outcome)).Inc()
	metrics.ObserveDeltaDuration(time.Since(start), string(outcome))
	return outcome
}

func (s *Service) applyDelta(ctx context.Context, ev event.Event) Outcome {
	if !ev.HasIdentity() {
		s.logger.WarnwCtx(ctx, "Delta carries no identifier, dropped",
			"title", ev.Title,
		)
		return OutcomeRejected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].SameIdentity(ev) {
			s.events[i] = event.Merge(s.events[i], ev)
			return OutcomeUpdated
		}
	}

	if !s.admits(ev) {
		s.logger.DebugwCtx(ctx, "Delta outside monitored counties, discarded",
			"county_id", ev.CountyID,
		)
		return OutcomeDiscarded
	}

	// Newest first for the map feed.
	s.events = append([]event.Event{ev}, s.events...)
	metrics.SetCanonicalEvents(len(s.events))
	return OutcomeAdmitted
}

// MarkForwarded flags the entry matching ev's identity as relayed to the
// downstream sink. Unlike ApplyDelta it never admits: when the entry was
// expired by a snapshot while the relay was in flight there is nothing
// left to flag, and MarkForwarded reports false.
func (s *Service) MarkForwarded(ev event.Event) bool {
	if !ev.HasIdentity() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].SameIdentity(ev) {
			s.events[i].Forwarded = true
			return true
		}
	}
	return false
}

// admits applies the geographic admission test. Nationwide events always
// pass; an empty monitored set means no restriction.
func (s *Service) admits(ev event.Event) bool {
	if ev.CountyID == event.CountyNational {
		return true
	}
	if len(s.monitored) == 0 {
		return true
	}
	_, ok := s.monitored[ev.CountyID]
	return ok
}

// Events returns a copy of the canonical collection in display order.
func (s *Service) Events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// RecordFetchError notes a failed snapshot fetch. The canonical collection
// is left untouched; the error surfaces as a transient notice until the
// next successful seed clears it.
func (s *Service) RecordFetchError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetchErr = err
}

func (s *Service) LastFetchError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFetchErr
}

// dedupe drops later occurrences of the same identity so a malformed
// snapshot cannot break the collection invariant. Events without any
// identity are kept as-is; they can never collide.
func dedupe(events []event.Event) []event.Event {
	out := make([]event.Event, 0, len(events))
	for _, ev := range events {
		dup := false
		if ev.HasIdentity() {
			for _, kept := range out {
				if kept.SameIdentity(ev) {
					dup = true
					break
				}
			}
		}
		if !dup {
			out = append(out, ev)
		}
	}
	return out
}

func toSet(counties []int) map[int]struct{} {
	set := make(map[int]struct{}, len(counties))
	for _, c := range counties {
		set[c] = struct{}{}
	}
	return set
}
