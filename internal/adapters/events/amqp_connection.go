package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel the pipeline relies on.
type Channel interface {
	Qos(prefetchCount, prefetchSize int, global bool) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Get(queue string, autoAck bool) (amqp.Delivery, bool, error)
	Close() error
}

// Opener returns a ready channel. Closing the channel releases everything
// the opener acquired.
type Opener func(ctx context.Context) (Channel, error)

type AMQPConfig struct {
	URL             string
	ConnectAttempts uint
	ConnectDelay    time.Duration
}

// session owns the connection behind a channel.
type session struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (s *session) Close() error {
	_ = s.Channel.Close()
	return s.conn.Close()
}

// Dial connects with a bounded number of attempts spaced by a fixed delay.
func Dial(ctx context.Context, logger *slog.Logger, cfg AMQPConfig) (*amqp.Connection, error) {
	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = 5
	}
	delay := cfg.ConnectDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	var conn *amqp.Connection
	err := retry.Do(
		func() error {
			c, err := amqp.Dial(cfg.URL)
			if err != nil {
				return err
			}
			conn = c
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "broker connection attempt failed",
				"module", "events.amqp",
				"layer", "adapter",
				"operation", "dial",
				"outcome", "retry",
				"attempt", n+1,
				"max_attempts", attempts,
				"error", err,
			)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to broker after %d attempts: %w", attempts, err)
	}
	return conn, nil
}

// NewOpener dials the broker and opens a channel on every call.
func NewOpener(logger *slog.Logger, cfg AMQPConfig) Opener {
	return func(ctx context.Context) (Channel, error) {
		conn, err := Dial(ctx, logger, cfg)
		if err != nil {
			return nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open channel: %w", err)
		}
		return &session{Channel: ch, conn: conn}, nil
	}
}

// DeclareQueues declares durable queues. Declaring an existing queue with the
// same arguments is a no-op on the broker.
func DeclareQueues(ch Channel, queues ...string) error {
	for _, q := range queues {
		if q == "" {
			continue
		}
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	return nil
}
