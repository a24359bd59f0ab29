//go:build integration

package events_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/enzopoeta/i2a2-final/internal/adapters/events"
	"github.com/enzopoeta/i2a2-final/internal/contracts"
	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testKey = "35250512345678000199550010000000011234567890"

func TestRetryCeilingIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test disabled in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	open := events.NewOpener(logger, events.AMQPConfig{URL: startRabbit(t, ctx), ConnectAttempts: 10, ConnectDelay: time.Second})
	queue := fmt.Sprintf("notas_fiscais_%d", time.Now().UnixNano())
	dlq := queue + "_dlq"

	publisher := events.NewQueuePublisher(logger, open, queue)
	defer publisher.Close()
	require.True(t, publisher.Publish(ctx, domain.Document{
		NotaFiscal: domain.FiscalDocument{ChaveAcesso: testKey, ValorNotaFiscal: decimal.RequireFromString("10")},
		Items:      []domain.LineItem{{NumeroProduto: 1}},
	}))

	var attempts atomic.Int32
	consumer := events.NewRetryingConsumer(logger, open, events.ConsumerConfig{Queue: queue, DLQ: dlq, MaxRetries: 2},
		func(context.Context, domain.Document) error {
			attempts.Add(1)
			return fmt.Errorf("%w: classifier down", domain.ErrDependencyUnavailable)
		})
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- consumer.Run(consumerCtx) }()

	ch, err := open(ctx)
	require.NoError(t, err)
	defer ch.Close()
	inspector := events.NewDLQInspector(logger, ch)

	var records []contracts.DLQRecord
	require.Eventually(t, func() bool {
		records, err = inspector.Peek(ctx, dlq, 10)
		return err == nil && len(records) > 0
	}, time.Minute, 200*time.Millisecond)
	stopConsumer()
	<-done
	// One first delivery plus two retries.
	require.Equal(t, int32(3), attempts.Load())

	require.Len(t, records, 1)
	require.Equal(t, 2, records[0].RetryCount)
	require.Equal(t, testKey, records[0].AccessKey)
	require.Contains(t, records[0].Reason, "Max retries exceeded - DependencyUnavailable")

	replayed, err := inspector.Replay(ctx, dlq, queue, 10)
	require.NoError(t, err)
	require.Equal(t, 1, replayed)
}

func startRabbit(t *testing.T, ctx context.Context) string {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(2 * time.Minute),
			Env: map[string]string{
				"RABBITMQ_DEFAULT_USER": "nfe",
				"RABBITMQ_DEFAULT_PASS": "nfe",
			},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://nfe:nfe@%s:%s/", host, port.Port())
}
