package reconciler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Minglarn/trafikinfo-sub001/internal/event"
	"github.com/Minglarn/trafikinfo-sub001/internal/logger"
)

func newService(counties ...int) *Service {
	return New(counties, logger.NopLogger())
}

func TestSeedReplacesWholesale(t *testing.T) {
	s := newService()

	ok := s.Seed(s.Generation(), []event.Event{
		{ID: 1, Title: "first"},
		{ID: 2, Title: "second"},
	})
	require.True(t, ok)
	require.Equal(t, 2, s.Len())

	// A later snapshot omitting an entry expires it.
	ok = s.Seed(s.Generation(), []event.Event{
		{ID: 2, Title: "second"},
		{ID: 3, Title: "third"},
	})
	require.True(t, ok)

	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].ID)
	assert.Equal(t, int64(3), events[1].ID)
}

func TestSeedPreservesSnapshotOrder(t *testing.T) {
	s := newService()

	snapshot := []event.Event{
		{ID: 3, Title: "c"},
		{ID: 1, Title: "a"},
		{ID: 2, Title: "b"},
	}
	require.True(t, s.Seed(s.Generation(), snapshot))
	assert.Equal(t, snapshot, s.Events())
}

func TestSeedDeduplicatesInput(t *testing.T) {
	s := newService()

	require.True(t, s.Seed(s.Generation(), []event.Event{
		{ID: 1, Title: "kept"},
		{ID: 1, Title: "dropped duplicate"},
		{ExternalID: "A1", Title: "kept too"},
		{ExternalID: "A1", Title: "dropped too"},
	}))

	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "kept", events[0].Title)
	assert.Equal(t, "kept too", events[1].Title)
}

func TestSeedWithStaleGenerationDiscarded(t *testing.T) {
	s := newService()
	require.True(t, s.Seed(s.Generation(), []event.Event{{ID: 1}}))

	// Fetch starts, user changes counties while it is in flight.
	staleGen := s.Generation()
	s.SetMonitoredCounties([]int{5})

	ok := s.Seed(staleGen, []event.Event{{ID: 99}})
	assert.False(t, ok, "snapshot fetched under the old filter must be discarded")

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].ID)
}

func TestApplyDeltaUpdatesInPlace(t *testing.T) {
	s := newService()
	require.True(t, s.Seed(s.Generation(), []event.Event{
		{ID: 1, Title: "one"},
		{ID: 2, Title: "two", Description: "kept"},
		{ID: 3, Title: "three"},
	}))

	outcome := s.ApplyDelta(context.Background(), event.Event{ID: 2, Title: "two updated"})
	assert.Equal(t, OutcomeUpdated, outcome)

	events := s.Events()
	require.Len(t, events, 3)
	// Position unchanged, fields merged.
	assert.Equal(t, int64(2), events[1].ID)
	assert.Equal(t, "two updated", events[1].Title)
	assert.Equal(t, "kept", events[1].Description)
}

func TestApplyDeltaIdempotent(t *testing.T) {
	s := newService(5)
	require.True(t, s.Seed(s.Generation(), []event.Event{{ID: 1, ExternalID: "A1", CountyID: 5}}))

	delta := event.Event{ExternalID: "A1", Title: "updated", Severity: "high"}
	s.ApplyDelta(context.Background(), delta)
	once := s.Events()

	s.ApplyDelta(context.Background(), delta)
	twice := s.Events()

	assert.Equal(t, once, twice)
}

func TestApplyDeltaAdmission(t *testing.T) {
	tests := []struct {
		name      string
		monitored []int
		delta     event.Event
		want      Outcome
	}{
		{
			name:      "nationwide always admitted",
			monitored: []int{5},
			delta:     event.Event{ID: 10, CountyID: event.CountyNational},
			want:      OutcomeAdmitted,
		},
		{
			name:      "monitored county admitted",
			monitored: []int{5},
			delta:     event.Event{ID: 10, CountyID: 5},
			want:      OutcomeAdmitted,
		},
		{
			name:      "unmonitored county discarded",
			monitored: []int{5},
			delta:     event.Event{ID: 10, CountyID: 9},
			want:      OutcomeDiscarded,
		},
		{
			name:      "empty set admits everything",
			monitored: nil,
			delta:     event.Event{ID: 10, CountyID: 9},
			want:      OutcomeAdmitted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newService(tt.monitored...)
			outcome := s.ApplyDelta(context.Background(), tt.delta)
			assert.Equal(t, tt.want, outcome)
		})
	}
}

func TestApplyDeltaUnmonitoredStillUpdatesExisting(t *testing.T) {
	s := newService(5)
	require.True(t, s.Seed(s.Generation(), []event.Event{{ID: 1, CountyID: 9, Title: "old"}}))

	outcome := s.ApplyDelta(context.Background(), event.Event{ID: 1, CountyID: 9, Title: "new"})
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, "new", s.Events()[0].Title)
}

func TestApplyDeltaPrependsNewEntries(t *testing.T) {
	s := newService()
	require.True(t, s.Seed(s.Generation(), []event.Event{{ID: 1}, {ID: 2}}))

	s.ApplyDelta(context.Background(), event.Event{ID: 3})

	events := s.Events()
	require.Len(t, events, 3)
	assert.Equal(t, int64(3), events[0].ID, "new admissions go to the front")
}

func TestApplyDeltaWithoutIdentityRejected(t *testing.T) {
	s := newService()
	outcome := s.ApplyDelta(context.Background(), event.Event{Title: "anonymous"})
	assert.Equal(t, OutcomeRejected, outcome)
	assert.Equal(t, 0, s.Len())
}

func TestApplyDeltaWithoutGeometryAdmitted(t *testing.T) {
	s := newService()
	outcome := s.ApplyDelta(context.Background(), event.Event{ExternalID: "A1", Title: "no coords"})
	assert.Equal(t, OutcomeAdmitted, outcome)
	assert.False(t, s.Events()[0].HasPosition())
}

func TestDedupInvariantUnderMixedOperations(t *testing.T) {
	s := newService()
	ctx := context.Background()

	require.True(t, s.Seed(s.Generation(), []event.Event{
		{ID: 1, ExternalID: "A1"},
		{ID: 2},
		{ExternalID: "B2"},
	}))

	deltas := []event.Event{
		{ID: 1},
		{ExternalID: "A1"},
		{ID: 2, ExternalID: "C3"},
		{ExternalID: "B2", Title: "x"},
		{ID: 4},
		{ID: 4, Title: "again"},
	}
	for _, d := range deltas {
		s.ApplyDelta(ctx, d)
	}

	events := s.Events()
	for i := range events {
		for j := i + 1; j < len(events); j++ {
			assert.False(t, events[i].SameIdentity(events[j]),
				"entries %d and %d share an identity", i, j)
		}
	}
}

// The end-to-end scenario from the design review: seed one monitored event,
// update it via external id, reject a foreign-county delta, admit a
// nationwide one.
func TestReconcileScenario(t *testing.T) {
	ctx := context.Background()
	s := newService(5)

	require.True(t, s.Seed(s.Generation(), []event.Event{
		{ID: 1, ExternalID: "A1", CountyID: 5},
	}))

	outcome := s.ApplyDelta(ctx, event.Event{ExternalID: "A1", Title: "updated"})
	assert.Equal(t, OutcomeUpdated, outcome)
	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, "updated", events[0].Title)

	outcome = s.ApplyDelta(ctx, event.Event{ID: 2, CountyID: 9})
	assert.Equal(t, OutcomeDiscarded, outcome)
	assert.Equal(t, 1, s.Len())

	outcome = s.ApplyDelta(ctx, event.Event{ID: 3, CountyID: 0})
	assert.Equal(t, OutcomeAdmitted, outcome)
	events = s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, int64(3), events[0].ID)
}

func TestMarkForwarded(t *testing.T) {
	s := newService()
	require.True(t, s.Seed(s.Generation(), []event.Event{
		{ID: 1, ExternalID: "A1"},
		{ExternalID: "B2"},
	}))

	assert.True(t, s.MarkForwarded(event.Event{ID: 1}))
	assert.True(t, s.MarkForwarded(event.Event{ExternalID: "B2"}))

	events := s.Events()
	assert.True(t, events[0].Forwarded)
	assert.True(t, events[1].Forwarded)
}

func TestMarkForwardedNeverAdmits(t *testing.T) {
	s := newService(5)

	// County 0 would pass admission through ApplyDelta; the flag path must
	// not create entries at all.
	assert.False(t, s.MarkForwarded(event.Event{ID: 7, ExternalID: "X7", CountyID: 0, Forwarded: true}))
	assert.Equal(t, 0, s.Len())

	assert.False(t, s.MarkForwarded(event.Event{}))
	assert.Equal(t, 0, s.Len())
}

func TestFetchErrorStateClearedBySeed(t *testing.T) {
	s := newService()
	require.True(t, s.Seed(s.Generation(), []event.Event{{ID: 1}}))

	s.RecordFetchError(assert.AnError)
	assert.Error(t, s.LastFetchError())
	assert.Equal(t, 1, s.Len(), "failed fetch leaves the collection untouched")

	require.True(t, s.Seed(s.Generation(), []event.Event{{ID: 1}}))
	assert.NoError(t, s.LastFetchError())
}
