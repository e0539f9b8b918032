package receiver

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Minglarn/trafikinfo-sub001/internal/broker"
	"github.com/Minglarn/trafikinfo-sub001/internal/config"
	"github.com/Minglarn/trafikinfo-sub001/internal/event"
	"github.com/Minglarn/trafikinfo-sub001/internal/logger"
	"github.com/Minglarn/trafikinfo-sub001/internal/reconciler"
	"github.com/Minglarn/trafikinfo-sub001/pkg/logging"
	"github.com/Minglarn/trafikinfo-sub001/pkg/metrics"
	"github.com/Minglarn/trafikinfo-sub001/pkg/retry"
)

// Receiver subscribes to the delta topic and hands every incoming event to
// the reconciler as-is: no buffering, no batching, no reorder correction.
// Arrival order is whatever the transport delivers; the reconciler's merge
// semantics absorb out-of-order updates.
//
// The subscription is scoped: Run holds it for the lifetime of ctx and
// Close releases the underlying consumer.
type Receiver struct {
	consumer broker.Consumer
	producer broker.Producer
	rec      *reconciler.Service
	cfg      config.KafkaConfig
	logger   logger.Logger
}

func New(consumer broker.Consumer, producer broker.Producer, rec *reconciler.Service, cfg config.KafkaConfig, log logger.Logger) *Receiver {
	return &Receiver{
		consumer: consumer,
		producer: producer,
		rec:      rec,
		cfg:      cfg,
		logger:   log,
	}
}

// Run consumes the delta topic until ctx is done.
func (r *Receiver) Run(ctx context.Context) error {
	return r.consumer.Consume(ctx, r.cfg.DeltaTopic, r.handle)
}

// Close tears down the subscription. A message published while
// unsubscribed is gone; the next snapshot recovers it.
func (r *Receiver) Close() error {
	return r.consumer.Close()
}

func (r *Receiver) handle(ctx context.Context, env broker.Envelope) error {
	ev := env.Event
	ctx = logging.WithEventKey(ctx, eventKey(ev))

	outcome := r.rec.ApplyDelta(ctx, ev)

	switch outcome {
	case reconciler.OutcomeAdmitted:
		r.logger.InfowCtx(ctx, "Delta admitted",
			"county_id", ev.CountyID,
			"title", ev.Title,
		)
		r.forward(ctx, ev)
	case reconciler.OutcomeUpdated:
		r.logger.DebugwCtx(ctx, "Delta merged into existing entry")
	case reconciler.OutcomeDiscarded:
		// Routine geographic filtering, nothing to do.
	case reconciler.OutcomeRejected:
		r.logger.WarnwCtx(ctx, "Delta without identifiers dropped",
			"source", env.Source,
		)
	}

	return nil
}

// forward relays a newly admitted event to the downstream sink topic and
// flags the canonical entry. Best effort: a failed forward is logged and
// the flag stays unset, so the entry is recognizable as not yet relayed.
func (r *Receiver) forward(ctx context.Context, ev event.Event) {
	if r.producer == nil || r.cfg.SinkTopic == "" {
		return
	}

	ev.Forwarded = true
	env := broker.Envelope{
		ID:        uuid.NewString(),
		Source:    "trafikinfo",
		Timestamp: time.Now(),
		Event:     ev,
	}

	err := retry.Retry(ctx, r.retryPolicy(), func() error {
		if err := r.producer.Publish(ctx, r.cfg.SinkTopic, env); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return retry.NewFatalError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		metrics.SinkForwardsTotal.WithLabelValues("error").Inc()
		r.logger.ErrorwCtx(ctx, "Failed to forward event to sink",
			"error", err,
			"topic", r.cfg.SinkTopic,
		)
		return
	}

	metrics.SinkForwardsTotal.WithLabelValues("ok").Inc()

	if !r.rec.MarkForwarded(ev) {
		r.logger.DebugwCtx(ctx, "Entry expired before the relay completed")
	}
}

// retryPolicy derives the sink publish policy from config, falling back to
// the package default per field.
func (r *Receiver) retryPolicy() retry.Policy {
	policy := retry.DefaultPolicy()
	cfg := r.cfg.Retry
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		policy.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = cfg.MaxElapsedTime
	}
	return policy
}

func eventKey(ev event.Event) string {
	if ev.ID != 0 {
		return "id:" + strconv.FormatInt(ev.ID, 10)
	}
	if ev.ExternalID != "" {
		return "ext:" + ev.ExternalID
	}
	return ""
}
