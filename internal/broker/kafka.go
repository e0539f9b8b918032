package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Minglarn/trafikinfo-sub001/internal/config"
	"github.com/Minglarn/trafikinfo-sub001/internal/constants"
	"github.com/Minglarn/trafikinfo-sub001/internal/logger"
	apperrors "github.com/Minglarn/trafikinfo-sub001/pkg/errors"
	"github.com/Minglarn/trafikinfo-sub001/pkg/logging"
	"github.com/Minglarn/trafikinfo-sub001/pkg/metrics"
	"github.com/Minglarn/trafikinfo-sub001/pkg/retry"
	"github.com/Minglarn/trafikinfo-sub001/pkg/tracing"
)

type KafkaProducer struct {
	writer      *kafka.Writer
	logger      logger.Logger
	serviceName string
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaProducer{writer: w, logger: log, serviceName: "trafikinfo"}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	headers := []kafka.Header{}
	headers = tracing.InjectTraceContext(ctx, headers)

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic:   topic,
			Key:     []byte(env.ID),
			Value:   body,
			Headers: headers,
			Time:    time.Now(),
		},
	)

	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.KafkaMessagesWrittenTotal.WithLabelValues(p.serviceName, topic).Inc()
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer subscribes to a topic and hands each decoded envelope to the
// handler. The push channel carries no acknowledgement or replay semantics:
// every fetched message is committed whether or not it could be used, and a
// missed or undecodable delta is recovered by the next snapshot, not by the
// broker.
type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	reader      *kafka.Reader
	logger      logger.Logger
	serviceName string
}

func NewKafkaConsumer(cfg config.KafkaConfig, log logger.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		serviceName: "trafikinfo",
	}
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
		"service_name", c.serviceName,
	)

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		consumeCtx := logging.WithServiceName(ctx, c.serviceName)
		c.logger.InfowCtx(consumeCtx, "Started consuming",
			"topic", topic,
		)

		fetchFailures := 0
		for {
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.InfowCtx(consumeCtx, "Stopped consuming",
						"topic", topic,
						"reason", "context canceled",
					)
					return
				}
				delay := retry.CalculateBackoffDuration(fetchFailures, time.Second, 2.0, 30*time.Second)
				fetchFailures++
				c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message",
					"error", err,
					"topic", topic,
					"retry_in", delay,
				)
				time.Sleep(delay)
				continue
			}
			fetchFailures = 0

			metrics.KafkaMessagesReadTotal.WithLabelValues(c.serviceName, topic).Inc()

			var env Envelope
			if err := json.Unmarshal(m.Value, &env); err != nil {
				c.logger.WarnwCtx(consumeCtx, "Discarding undecodable message",
					"error", err,
					"topic", topic,
				)
				_ = c.reader.CommitMessages(ctx, m)
				continue
			}

			msgCtx, span := tracing.StartSpanFromKafkaMessage(ctx, "kafka.consume", m.Headers)
			msgCtx = logging.WithServiceName(msgCtx, c.serviceName)
			if env.ID != "" {
				msgCtx = logging.WithTraceID(msgCtx, env.ID)
			}

			if err := c.safeHandle(msgCtx, handler, env); err != nil {
				c.logger.ErrorwCtx(msgCtx, "Handler failed, message dropped",
					"error", err,
					"topic", topic,
				)
			}
			span.End()

			if err := c.reader.CommitMessages(ctx, m); err != nil {
				c.logger.ErrorwCtx(msgCtx, "Failed to commit message",
					"error", err,
					"topic", topic,
				)
			}
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

// safeHandle shields the consume loop from a panicking handler; the message
// is still committed, like any other handler failure.
func (c *KafkaConsumer) safeHandle(ctx context.Context, handler HandlerFunc, env Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.RecoverPanic(r)
		}
	}()
	return handler(ctx, env)
}

func (c *KafkaConsumer) Close() error {
	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	c.wg.Wait()
	return err
}
