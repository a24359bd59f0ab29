package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/enzopoeta/i2a2-final/internal/contracts"
	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// QueuePublisher publishes document envelopes onto one work queue. The
// channel is opened lazily and dropped after any transport failure so the
// next call reconnects.
type QueuePublisher struct {
	logger *slog.Logger
	open   Opener
	queue  string
	nowFn  func() time.Time

	mu sync.Mutex
	ch Channel
}

var _ ports.DocumentPublisher = (*QueuePublisher)(nil)

func NewQueuePublisher(logger *slog.Logger, open Opener, queue string) *QueuePublisher {
	return &QueuePublisher{
		logger: logger,
		open:   open,
		queue:  queue,
		nowFn:  time.Now,
	}
}

func (p *QueuePublisher) Publish(ctx context.Context, doc domain.Document) bool {
	body, err := contracts.MarshalEnvelope(doc)
	if err != nil {
		p.logFailure(ctx, doc.AccessKey(), "encode", err)
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		ch, err := p.open(ctx)
		if err != nil {
			p.logFailure(ctx, doc.AccessKey(), "connect", err)
			return false
		}
		p.ch = ch
	}
	if err := DeclareQueues(p.ch, p.queue); err != nil {
		p.reset()
		p.logFailure(ctx, doc.AccessKey(), "declare", err)
		return false
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    p.nowFn().UTC(),
		Headers:      amqp.Table{contracts.HeaderRetryCount: int32(0)},
		Body:         body,
	})
	if err != nil {
		p.reset()
		p.logFailure(ctx, doc.AccessKey(), "publish", err)
		return false
	}

	p.logger.InfoContext(ctx, "document published",
		"module", "events.queue_publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"queue", p.queue,
		"chave_acesso", doc.AccessKey(),
		"items", len(doc.Items),
	)
	return true
}

func (p *QueuePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}

func (p *QueuePublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
}

func (p *QueuePublisher) logFailure(ctx context.Context, key, stage string, err error) {
	p.logger.ErrorContext(ctx, "document publish failed",
		"module", "events.queue_publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "failure",
		"stage", stage,
		"queue", p.queue,
		"chave_acesso", key,
		"error", err,
	)
}
