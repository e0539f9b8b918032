package fetcher

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/Minglarn/trafikinfo-sub001/internal/config"
	"github.com/Minglarn/trafikinfo-sub001/internal/event"
	"github.com/Minglarn/trafikinfo-sub001/pkg/circuitbreaker"
	apperrors "github.com/Minglarn/trafikinfo-sub001/pkg/errors"
)

// BreakerClient decorates a Client with a circuit breaker so a flapping
// upstream does not eat a request timeout on every refresh tick. An open
// breaker reports as a transport error like any other fetch failure.
type BreakerClient struct {
	inner Client
	cb    *circuitbreaker.Wrapper
}

func NewBreakerClient(inner Client, cfg config.CircuitBreakerConfig) *BreakerClient {
	bcfg := circuitbreaker.DefaultConfig("snapshot-fetch")
	if cfg.MaxRequests > 0 {
		bcfg.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		bcfg.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		bcfg.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		bcfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && ratio >= cfg.FailureRatio
		}
	}

	return &BreakerClient{
		inner: inner,
		cb:    circuitbreaker.NewWrapper(bcfg),
	}
}

func (c *BreakerClient) FetchSnapshot(ctx context.Context, q Query) ([]event.Event, error) {
	result, err := c.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return c.inner.FetchSnapshot(ctx, q)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperrors.Wrap(err, apperrors.ErrTransport)
		}
		return nil, err
	}
	return result.([]event.Event), nil
}
