package fetcher

import (
	"context"
	"time"

	"github.com/Minglarn/trafikinfo-sub001/internal/config"
	"github.com/Minglarn/trafikinfo-sub001/internal/logger"
	"github.com/Minglarn/trafikinfo-sub001/internal/reconciler"
	"github.com/Minglarn/trafikinfo-sub001/pkg/metrics"
)

// Refresher owns the periodic snapshot loop. Each cycle reads the
// reconciler's generation and monitored counties, fetches a fresh snapshot
// and seeds it back under that generation. A preference change while the
// fetch is in flight bumps the generation, so the stale result is rejected
// at seed time; Kick schedules the follow-up fetch for the new filter.
//
// Incremental deltas keep flowing against the previous collection while a
// fetch is suspended on network I/O. That staleness window is accepted.
type Refresher struct {
	client Client
	rec    *reconciler.Service
	cfg    config.ReconcilerConfig
	logger logger.Logger
	kick   chan struct{}
}

func NewRefresher(client Client, rec *reconciler.Service, cfg config.ReconcilerConfig, log logger.Logger) *Refresher {
	return &Refresher{
		client: client,
		rec:    rec,
		cfg:    cfg,
		logger: log,
		kick:   make(chan struct{}, 1),
	}
}

// Kick requests an immediate refresh. Coalesces when one is already
// pending.
func (r *Refresher) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run drives the loop until ctx is done: one refresh up front, then one per
// tick or kick. A failed refresh is logged and surfaced through the
// reconciler's error state; the next tick retries. No exponential backoff
// here: the tick interval is the retry policy.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.RefreshInterval)
	defer ticker.Stop()

	r.refresh(ctx)

	for {
		select {
		case <-ticker.C:
			r.refresh(ctx)
		case <-r.kick:
			r.refresh(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	generation := r.rec.Generation()
	counties := r.rec.MonitoredCounties()

	start := time.Now()
	events, err := r.client.FetchSnapshot(ctx, Query{
		Counties:    counties,
		MessageType: r.cfg.MessageType,
		Limit:       r.cfg.SnapshotLimit,
	})
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.SnapshotFetchesTotal.WithLabelValues("error").Inc()
		metrics.ObserveSnapshotFetchDuration(duration, "error")
		r.rec.RecordFetchError(err)
		r.logger.ErrorwCtx(ctx, "Snapshot fetch failed, keeping previous collection",
			"error", err,
			"counties", counties,
		)
		return
	}

	if !r.rec.Seed(generation, events) {
		// Filter changed mid-fetch; the kick for the new filter is already
		// queued.
		return
	}

	metrics.SnapshotFetchesTotal.WithLabelValues("ok").Inc()
	metrics.ObserveSnapshotFetchDuration(duration, "ok")
	r.logger.InfowCtx(ctx, "Snapshot refreshed",
		"events", len(events),
		"counties", counties,
		"duration", duration,
	)
}
