package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/enzopoeta/i2a2-final/internal/contracts"
	"github.com/enzopoeta/i2a2-final/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler runs the stage side effect for one parsed document. Any returned
// error is retried unless it wraps domain.ErrMalformedPayload or the consumer
// context was cancelled while it ran.
type Handler func(ctx context.Context, doc domain.Document) error

type Outcome string

const (
	OutcomeAcknowledged Outcome = "acknowledged"
	OutcomeRequeued     Outcome = "requeued"
	OutcomeDeadLettered Outcome = "dead_lettered"
	// OutcomeRedelivered means the original went back to the broker untouched
	// because the republish or dead-letter publish failed, or the consumer was
	// shutting down.
	OutcomeRedelivered Outcome = "redelivered"
)

const (
	KindDependencyUnavailable = "DependencyUnavailable"
	KindStorageUnavailable    = "StorageUnavailable"
	KindTimeout               = "Timeout"
	KindProcessingError       = "ProcessingError"
)

var errDeliveriesClosed = errors.New("delivery channel closed")

type ConsumerConfig struct {
	Name           string
	Queue          string
	DLQ            string
	MaxRetries     int
	ReconnectDelay time.Duration
}

// RetryingConsumer processes one message at a time with manual acks. Failed
// messages are republished with an incremented x-retry-count until the
// ceiling, then moved to the DLQ with a reason.
type RetryingConsumer struct {
	logger  *slog.Logger
	open    Opener
	cfg     ConsumerConfig
	handler Handler
}

func NewRetryingConsumer(logger *slog.Logger, open Opener, cfg ConsumerConfig, handler Handler) *RetryingConsumer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.DLQ == "" {
		cfg.DLQ = contracts.DLQName(cfg.Queue)
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Queue
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	return &RetryingConsumer{logger: logger, open: open, cfg: cfg, handler: handler}
}

// Run consumes until ctx is cancelled. A lost channel is reopened; failing to
// open one at all is returned to the caller as fatal.
func (c *RetryingConsumer) Run(ctx context.Context) error {
	for {
		ch, err := c.open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("start %s consumer: %w", c.cfg.Name, err)
		}
		err = c.consume(ctx, ch)
		_ = ch.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WarnContext(ctx, "consumer channel lost, reconnecting",
			"module", "events.retry_consumer",
			"layer", "adapter",
			"operation", "run",
			"outcome", "retry",
			"queue", c.cfg.Queue,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *RetryingConsumer) consume(ctx context.Context, ch Channel) error {
	if err := DeclareQueues(ch, c.cfg.Queue, c.cfg.DLQ); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	deliveries, err := ch.Consume(c.cfg.Queue, c.cfg.Name, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.cfg.Queue, err)
	}
	c.logger.InfoContext(ctx, "consumer started",
		"module", "events.retry_consumer",
		"layer", "adapter",
		"operation", "consume",
		"outcome", "success",
		"queue", c.cfg.Queue,
		"dlq", c.cfg.DLQ,
		"max_retries", c.cfg.MaxRetries,
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			c.Handle(ctx, ch, d)
		}
	}
}

// Handle drives one delivery to a terminal outcome.
func (c *RetryingConsumer) Handle(ctx context.Context, ch Channel, d amqp.Delivery) Outcome {
	retryCount := contracts.RetryCountFrom(d.Headers)
	c.logger.InfoContext(ctx, "message received",
		"module", "events.retry_consumer",
		"layer", "adapter",
		"operation", "handle",
		"outcome", "received",
		"queue", c.cfg.Queue,
		"retry_count", retryCount,
		"message_id", d.MessageId,
	)

	doc, err := contracts.ParseEnvelope(d.Body)
	if err != nil {
		return c.deadLetter(ctx, ch, d, retryCount, contracts.ReasonMalformedPayload, "", err)
	}

	err = c.handler(ctx, doc)
	if err == nil {
		c.ack(ctx, d, doc.AccessKey())
		c.logger.InfoContext(ctx, "message processed",
			"module", "events.retry_consumer",
			"layer", "adapter",
			"operation", "handle",
			"outcome", string(OutcomeAcknowledged),
			"queue", c.cfg.Queue,
			"chave_acesso", doc.AccessKey(),
			"retry_count", retryCount,
		)
		return OutcomeAcknowledged
	}
	if errors.Is(err, domain.ErrMalformedPayload) {
		return c.deadLetter(ctx, ch, d, retryCount, contracts.ReasonMalformedPayload, doc.AccessKey(), err)
	}
	// A failure caused by our own shutdown does not count against the message.
	if ctx.Err() != nil {
		return c.redeliver(ctx, d, doc.AccessKey(), "shutdown", err)
	}
	if retryCount >= c.cfg.MaxRetries {
		reason := contracts.MaxRetriesReason(ErrorKind(err), err)
		return c.deadLetter(ctx, ch, d, retryCount, reason, doc.AccessKey(), err)
	}
	return c.requeue(ctx, ch, d, retryCount, doc.AccessKey(), err)
}

func (c *RetryingConsumer) requeue(ctx context.Context, ch Channel, d amqp.Delivery, retryCount int, key string, cause error) Outcome {
	next := retryCount + 1
	headers := cloneHeaders(d.Headers)
	headers[contracts.HeaderRetryCount] = int32(next)

	if err := ch.PublishWithContext(ctx, "", c.cfg.Queue, false, false, republished(d, headers)); err != nil {
		return c.redeliver(ctx, d, key, "requeue", err)
	}
	c.ack(ctx, d, key)
	c.logger.WarnContext(ctx, "message requeued",
		"module", "events.retry_consumer",
		"layer", "adapter",
		"operation", "handle",
		"outcome", string(OutcomeRequeued),
		"queue", c.cfg.Queue,
		"chave_acesso", key,
		"retry_count", next,
		"max_retries", c.cfg.MaxRetries,
		"error", cause,
	)
	return OutcomeRequeued
}

func (c *RetryingConsumer) deadLetter(ctx context.Context, ch Channel, d amqp.Delivery, retryCount int, reason, key string, cause error) Outcome {
	headers := cloneHeaders(d.Headers)
	headers[contracts.HeaderRetryCount] = int32(retryCount)
	headers[contracts.HeaderDeathReason] = reason

	if err := ch.PublishWithContext(ctx, "", c.cfg.DLQ, false, false, republished(d, headers)); err != nil {
		return c.redeliver(ctx, d, key, "dead_letter", err)
	}
	c.ack(ctx, d, key)
	c.logger.ErrorContext(ctx, "message dead-lettered",
		"module", "events.retry_consumer",
		"layer", "adapter",
		"operation", "handle",
		"outcome", string(OutcomeDeadLettered),
		"queue", c.cfg.Queue,
		"dlq", c.cfg.DLQ,
		"chave_acesso", key,
		"retry_count", retryCount,
		"reason", reason,
		"error", cause,
	)
	return OutcomeDeadLettered
}

func (c *RetryingConsumer) redeliver(ctx context.Context, d amqp.Delivery, key, stage string, err error) Outcome {
	if nackErr := d.Nack(false, true); nackErr != nil {
		err = errors.Join(err, nackErr)
	}
	c.logger.ErrorContext(ctx, "message returned to broker",
		"module", "events.retry_consumer",
		"layer", "adapter",
		"operation", stage,
		"outcome", string(OutcomeRedelivered),
		"queue", c.cfg.Queue,
		"chave_acesso", key,
		"error", err,
	)
	return OutcomeRedelivered
}

func (c *RetryingConsumer) ack(ctx context.Context, d amqp.Delivery, key string) {
	if err := d.Ack(false); err != nil {
		c.logger.ErrorContext(ctx, "message ack failed",
			"module", "events.retry_consumer",
			"layer", "adapter",
			"operation", "ack",
			"outcome", "failure",
			"queue", c.cfg.Queue,
			"chave_acesso", key,
			"error", err,
		)
	}
}

// ErrorKind names the failure class recorded in a dead-letter reason.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return KindDependencyUnavailable
	case errors.Is(err, domain.ErrStorageUnavailable):
		return KindStorageUnavailable
	default:
		return KindProcessingError
	}
}

func cloneHeaders(in amqp.Table) amqp.Table {
	out := make(amqp.Table, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func republished(d amqp.Delivery, headers amqp.Table) amqp.Publishing {
	contentType := d.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	return amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    d.MessageId,
		Timestamp:    d.Timestamp,
		Headers:      headers,
		Body:         d.Body,
	}
}
