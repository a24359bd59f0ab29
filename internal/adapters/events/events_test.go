package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/enzopoeta/i2a2-final/internal/contracts"
	"github.com/enzopoeta/i2a2-final/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "35250512345678000199550010000000011234567890"

type publishedMessage struct {
	queue string
	msg   amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	published  []publishedMessage
	publishErr error
	declared   []string
	prefetch   int
	deliveries chan amqp.Delivery
	queues     map[string][]amqp.Delivery
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{queues: map[string][]amqp.Delivery{}}
}

func (f *fakeChannel) Qos(prefetchCount, _ int, _ bool) error {
	f.prefetch = prefetchCount
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{queue: key, msg: msg})
	return nil
}

func (f *fakeChannel) Get(queue string, _ bool) (amqp.Delivery, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pending := f.queues[queue]
	if len(pending) == 0 {
		return amqp.Delivery{}, false, nil
	}
	f.queues[queue] = pending[1:]
	return pending[0], true, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func (f *fakeChannel) publishedTo(queue string) []amqp.Publishing {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []amqp.Publishing
	for _, p := range f.published {
		if p.queue == queue {
			out = append(out, p.msg)
		}
	}
	return out
}

type fakeAcker struct {
	mu       sync.Mutex
	acks     int
	nacks    int
	requeued int
}

func (a *fakeAcker) Ack(uint64, bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks++
	return nil
}

func (a *fakeAcker) Nack(_ uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks++
	if requeue {
		a.requeued++
	}
	return nil
}

func (a *fakeAcker) Reject(_ uint64, requeue bool) error {
	return a.Nack(0, false, requeue)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func envelope(t *testing.T, key string) []byte {
	t.Helper()
	body, err := contracts.MarshalEnvelope(domain.Document{
		NotaFiscal: domain.FiscalDocument{ChaveAcesso: key},
		Items:      []domain.LineItem{{NumeroProduto: 1}},
	})
	require.NoError(t, err)
	return body
}

func delivery(acker amqp.Acknowledger, body []byte, headers amqp.Table) amqp.Delivery {
	return amqp.Delivery{Acknowledger: acker, Body: body, Headers: headers, ContentType: "application/json"}
}

func newConsumer(handler Handler) *RetryingConsumer {
	return NewRetryingConsumer(discardLogger(), nil, ConsumerConfig{Queue: "notas_fiscais", MaxRetries: 3}, handler)
}

func TestRetryingConsumerAcknowledgesSuccess(t *testing.T) {
	t.Parallel()

	ch := newFakeChannel()
	acker := &fakeAcker{}
	var seen string
	consumer := newConsumer(func(_ context.Context, doc domain.Document) error {
		seen = doc.AccessKey()
		return nil
	})

	outcome := consumer.Handle(context.Background(), ch, delivery(acker, envelope(t, testKey), nil))
	assert.Equal(t, OutcomeAcknowledged, outcome)
	assert.Equal(t, testKey, seen)
	assert.Equal(t, 1, acker.acks)
	assert.Empty(t, ch.published)
}

func TestRetryingConsumerRetryCeiling(t *testing.T) {
	t.Parallel()

	ch := newFakeChannel()
	acker := &fakeAcker{}
	calls := 0
	consumer := newConsumer(func(context.Context, domain.Document) error {
		calls++
		return fmt.Errorf("classify: %w", domain.ErrDependencyUnavailable)
	})

	d := delivery(acker, envelope(t, testKey), nil)
	requeues := 0
	for {
		outcome := consumer.Handle(context.Background(), ch, d)
		if outcome != OutcomeRequeued {
			require.Equal(t, OutcomeDeadLettered, outcome)
			break
		}
		requeues++
		republishedMsgs := ch.publishedTo("notas_fiscais")
		require.Len(t, republishedMsgs, requeues)
		last := republishedMsgs[len(republishedMsgs)-1]
		assert.Equal(t, int32(requeues), last.Headers[contracts.HeaderRetryCount])
		assert.Equal(t, amqp.Persistent, last.DeliveryMode)
		d = delivery(acker, last.Body, last.Headers)
	}

	assert.Equal(t, 3, requeues)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, acker.acks)
	assert.Zero(t, acker.nacks)

	dead := ch.publishedTo("notas_fiscais_dlq")
	require.Len(t, dead, 1)
	assert.Equal(t, 3, contracts.RetryCountFrom(dead[0].Headers))
	reason := contracts.DeathReasonFrom(dead[0].Headers)
	assert.True(t, strings.HasPrefix(reason, "Max retries exceeded - DependencyUnavailable: "), reason)
	assert.Equal(t, envelope(t, testKey), dead[0].Body)
}

func TestRetryingConsumerMalformedPayloadSkipsRetries(t *testing.T) {
	t.Parallel()

	ch := newFakeChannel()
	acker := &fakeAcker{}
	called := false
	consumer := newConsumer(func(context.Context, domain.Document) error {
		called = true
		return nil
	})

	outcome := consumer.Handle(context.Background(), ch, delivery(acker, []byte("{not json"), nil))
	assert.Equal(t, OutcomeDeadLettered, outcome)
	assert.False(t, called)
	assert.Equal(t, 1, acker.acks)
	assert.Empty(t, ch.publishedTo("notas_fiscais"))

	dead := ch.publishedTo("notas_fiscais_dlq")
	require.Len(t, dead, 1)
	assert.Equal(t, contracts.ReasonMalformedPayload, contracts.DeathReasonFrom(dead[0].Headers))
	assert.Equal(t, 0, contracts.RetryCountFrom(dead[0].Headers))
	assert.Equal(t, []byte("{not json"), dead[0].Body)
}

func TestRetryingConsumerReturnsMessageWhenRepublishFails(t *testing.T) {
	t.Parallel()

	ch := newFakeChannel()
	ch.publishErr = errors.New("channel closed")
	acker := &fakeAcker{}
	consumer := newConsumer(func(context.Context, domain.Document) error {
		return fmt.Errorf("persist: %w", domain.ErrStorageUnavailable)
	})

	outcome := consumer.Handle(context.Background(), ch, delivery(acker, envelope(t, testKey), amqp.Table{contracts.HeaderRetryCount: int32(1)}))
	assert.Equal(t, OutcomeRedelivered, outcome)
	assert.Zero(t, acker.acks)
	assert.Equal(t, 1, acker.requeued)
}

func TestRetryingConsumerShutdownDoesNotSpendRetries(t *testing.T) {
	t.Parallel()

	for name, headers := range map[string]amqp.Table{
		"fresh message":   nil,
		"at the ceiling":  {contracts.HeaderRetryCount: int32(3)},
		"mid retry cycle": {contracts.HeaderRetryCount: int32(1)},
	} {
		name, headers := name, headers
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			ch := newFakeChannel()
			acker := &fakeAcker{}
			consumer := newConsumer(func(ctx context.Context, _ domain.Document) error {
				cancel()
				return fmt.Errorf("%w: classification request: %w", domain.ErrDependencyUnavailable, ctx.Err())
			})

			d := delivery(acker, envelope(t, testKey), headers)
			outcome := consumer.Handle(ctx, ch, d)
			assert.Equal(t, OutcomeRedelivered, outcome)
			assert.Zero(t, acker.acks)
			assert.Equal(t, 1, acker.requeued)
			assert.Empty(t, ch.publishedTo("notas_fiscais"))
			assert.Empty(t, ch.publishedTo("notas_fiscais_dlq"))
			assert.Equal(t, contracts.RetryCountFrom(headers), contracts.RetryCountFrom(d.Headers))
		})
	}
}

func TestRetryingConsumerProcessesInDeliveryOrder(t *testing.T) {
	t.Parallel()

	keys := []string{
		"35250512345678000199550010000000011234567891",
		"35250512345678000199550010000000011234567892",
		"35250512345678000199550010000000011234567893",
	}
	ch := newFakeChannel()
	ch.deliveries = make(chan amqp.Delivery, len(keys))
	acker := &fakeAcker{}
	for _, key := range keys {
		ch.deliveries <- delivery(acker, envelope(t, key), nil)
	}
	close(ch.deliveries)

	var order []string
	consumer := newConsumer(func(_ context.Context, doc domain.Document) error {
		order = append(order, doc.AccessKey())
		return nil
	})

	err := consumer.consume(context.Background(), ch)
	require.ErrorIs(t, err, errDeliveriesClosed)
	assert.Equal(t, keys, order)
	assert.Equal(t, 1, ch.prefetch)
	assert.Equal(t, []string{"notas_fiscais", "notas_fiscais_dlq"}, ch.declared)
	assert.Equal(t, 3, acker.acks)
}

func TestRetryingConsumerRunFailsWhenBrokerUnreachable(t *testing.T) {
	t.Parallel()

	open := func(context.Context) (Channel, error) { return nil, errors.New("connection refused") }
	consumer := NewRetryingConsumer(discardLogger(), open, ConsumerConfig{Queue: "tax-calculation"}, nil)
	err := consumer.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindTimeout, ErrorKind(fmt.Errorf("%w: %w", domain.ErrDependencyUnavailable, context.DeadlineExceeded)))
	assert.Equal(t, KindDependencyUnavailable, ErrorKind(fmt.Errorf("x: %w", domain.ErrDependencyUnavailable)))
	assert.Equal(t, KindStorageUnavailable, ErrorKind(fmt.Errorf("x: %w", domain.ErrStorageUnavailable)))
	assert.Equal(t, KindProcessingError, ErrorKind(errors.New("boom")))
}

func TestDLQInspectorPeekAndReplay(t *testing.T) {
	t.Parallel()

	ch := newFakeChannel()
	acker := &fakeAcker{}
	dead := func() []amqp.Delivery {
		return []amqp.Delivery{
			{Acknowledger: acker, MessageId: "m1", Body: envelope(t, testKey), Headers: amqp.Table{
				contracts.HeaderRetryCount: int32(3), contracts.HeaderDeathReason: "Max retries exceeded - Timeout: deadline",
			}},
			{Acknowledger: acker, MessageId: "m2", Body: []byte("junk"), Headers: amqp.Table{
				contracts.HeaderRetryCount: int32(0), contracts.HeaderDeathReason: contracts.ReasonMalformedPayload,
			}},
		}
	}
	ch.queues["notas_fiscais_dlq"] = dead()
	inspector := NewDLQInspector(discardLogger(), ch)

	records, err := inspector.Peek(context.Background(), "notas_fiscais_dlq", 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, testKey, records[0].AccessKey)
	assert.Equal(t, 3, records[0].RetryCount)
	assert.Equal(t, contracts.ReasonMalformedPayload, records[1].Reason)
	assert.Equal(t, 2, acker.requeued)
	assert.Zero(t, acker.acks)

	ch.queues["notas_fiscais_dlq"] = dead()
	replayed, err := inspector.Replay(context.Background(), "notas_fiscais_dlq", "notas_fiscais", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, replayed)
	assert.Equal(t, 1, acker.acks)

	moved := ch.publishedTo("notas_fiscais")
	require.Len(t, moved, 1)
	assert.Equal(t, int32(0), moved[0].Headers[contracts.HeaderRetryCount])
	_, hasReason := moved[0].Headers[contracts.HeaderDeathReason]
	assert.False(t, hasReason)
}

func TestQueuePublisher(t *testing.T) {
	t.Parallel()

	ch := newFakeChannel()
	opens := 0
	publisher := NewQueuePublisher(discardLogger(), func(context.Context) (Channel, error) {
		opens++
		return ch, nil
	}, "notas_fiscais")

	doc := domain.Document{NotaFiscal: domain.FiscalDocument{ChaveAcesso: testKey}}
	require.True(t, publisher.Publish(context.Background(), doc))
	require.True(t, publisher.Publish(context.Background(), doc))
	assert.Equal(t, 1, opens)

	sent := ch.publishedTo("notas_fiscais")
	require.Len(t, sent, 2)
	assert.Equal(t, amqp.Persistent, sent[0].DeliveryMode)
	assert.Equal(t, int32(0), sent[0].Headers[contracts.HeaderRetryCount])
	parsed, err := contracts.ParseEnvelope(sent[0].Body)
	require.NoError(t, err)
	assert.Equal(t, testKey, parsed.AccessKey())

	assert.False(t, publisher.Publish(context.Background(), domain.Document{}))

	ch.publishErr = errors.New("broker gone")
	assert.False(t, publisher.Publish(context.Background(), doc))
	assert.True(t, ch.closed)

	failing := NewQueuePublisher(discardLogger(), func(context.Context) (Channel, error) {
		return nil, errors.New("dial failed")
	}, "notas_fiscais")
	assert.False(t, failing.Publish(context.Background(), doc))
}
