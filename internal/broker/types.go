package broker

import (
	"context"
	"time"

	"github.com/Minglarn/trafikinfo-sub001/internal/event"
)

// Envelope is the wire format on the push channel: one event per message.
type Envelope struct {
	ID        string      `json:"id"`
	Source    string      `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	Event     event.Event `json:"event"`
}

type Producer interface {
	Publish(ctx context.Context, topic string, env Envelope) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, env Envelope) error
