package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/enzopoeta/i2a2-final/internal/contracts"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tidwall/gjson"
)

// DLQInspector lets operators look at and replay dead-lettered messages.
type DLQInspector struct {
	logger *slog.Logger
	ch     Channel
}

func NewDLQInspector(logger *slog.Logger, ch Channel) *DLQInspector {
	return &DLQInspector{logger: logger, ch: ch}
}

// Peek reads up to limit messages and hands them all back to the broker.
// Deliveries are held until the end so the same message is not read twice.
func (i *DLQInspector) Peek(ctx context.Context, dlq string, limit int) ([]contracts.DLQRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if err := DeclareQueues(i.ch, dlq); err != nil {
		return nil, err
	}
	held := make([]amqp.Delivery, 0, limit)
	defer func() {
		for _, d := range held {
			_ = d.Nack(false, true)
		}
	}()

	records := make([]contracts.DLQRecord, 0, limit)
	for len(records) < limit {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		d, ok, err := i.ch.Get(dlq, false)
		if err != nil {
			return records, fmt.Errorf("get from %s: %w", dlq, err)
		}
		if !ok {
			break
		}
		held = append(held, d)
		records = append(records, recordOf(dlq, d))
	}
	return records, nil
}

// Replay moves up to limit messages from dlq back onto target with a fresh
// retry counter. It stops at the first publish failure.
func (i *DLQInspector) Replay(ctx context.Context, dlq, target string, limit int) (int, error) {
	if limit <= 0 {
		limit = 10
	}
	if err := DeclareQueues(i.ch, dlq, target); err != nil {
		return 0, err
	}
	replayed := 0
	for replayed < limit {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}
		d, ok, err := i.ch.Get(dlq, false)
		if err != nil {
			return replayed, fmt.Errorf("get from %s: %w", dlq, err)
		}
		if !ok {
			break
		}
		headers := cloneHeaders(d.Headers)
		delete(headers, contracts.HeaderDeathReason)
		headers[contracts.HeaderRetryCount] = int32(0)
		if err := i.ch.PublishWithContext(ctx, "", target, false, false, republished(d, headers)); err != nil {
			_ = d.Nack(false, true)
			return replayed, fmt.Errorf("republish to %s: %w", target, err)
		}
		if err := d.Ack(false); err != nil {
			return replayed, fmt.Errorf("ack %s message: %w", dlq, err)
		}
		replayed++
		i.logger.InfoContext(ctx, "dead letter replayed",
			"module", "events.dlq_inspector",
			"layer", "adapter",
			"operation", "replay",
			"outcome", "success",
			"dlq", dlq,
			"queue", target,
			"message_id", d.MessageId,
		)
	}
	return replayed, nil
}

func recordOf(queue string, d amqp.Delivery) contracts.DLQRecord {
	return contracts.DLQRecord{
		Queue:      queue,
		MessageID:  d.MessageId,
		Reason:     contracts.DeathReasonFrom(d.Headers),
		RetryCount: contracts.RetryCountFrom(d.Headers),
		AccessKey:  gjson.GetBytes(d.Body, "nota_fiscal.chave_acesso").String(),
		BodyBytes:  len(d.Body),
	}
}
