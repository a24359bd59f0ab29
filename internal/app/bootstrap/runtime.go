package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/enzopoeta/i2a2-final/internal/adapters/cache"
	"github.com/enzopoeta/i2a2-final/internal/adapters/classification"
	eventadapter "github.com/enzopoeta/i2a2-final/internal/adapters/events"
	"github.com/enzopoeta/i2a2-final/internal/adapters/extract"
	httpadapter "github.com/enzopoeta/i2a2-final/internal/adapters/http"
	"github.com/enzopoeta/i2a2-final/internal/adapters/postgres"
	"github.com/enzopoeta/i2a2-final/internal/adapters/webhook"
	"github.com/enzopoeta/i2a2-final/internal/application"
	"github.com/enzopoeta/i2a2-final/internal/contracts"
	"github.com/enzopoeta/i2a2-final/internal/ports"
)

type Runtime struct {
	cfg       Config
	logger    *slog.Logger
	service   *application.Service
	opener    eventadapter.Opener
	cleanupFn func(context.Context)
}

// NewRuntime wires every adapter behind the application service. Optional
// dependencies (redis, kafka, the taxes webhook) degrade to no-op variants
// when unconfigured.
func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)
	logger.Info("bootstrapping nfe load service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	repos := postgres.NewRepositories(db)

	closers := []func() error{sqlDB.Close}

	var cache ports.Cache = cacheadapter.NoopCache{}
	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, statistics cache disabled", "error", err)
		} else {
			cache = cacheadapter.NewRedisCache(redisClient, "nfe:")
			closers = append(closers, redisClient.Close)
		}
	}

	var events ports.EventPublisher = eventadapter.NewLoggingPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			contracts.EventDocumentPersisted: cfg.KafkaTopicDocumentPersisted,
			contracts.EventTaxesCalculated:   cfg.KafkaTopicTaxesCalculated,
		})
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		events = kafkaPublisher
		closers = append(closers, kafkaPublisher.Close)
	}

	opener := eventadapter.NewOpener(logger, eventadapter.AMQPConfig{
		URL:             cfg.RabbitURL,
		ConnectAttempts: cfg.BrokerConnectAttempts,
		ConnectDelay:    cfg.BrokerConnectDelay,
	})
	queue := eventadapter.NewQueuePublisher(logger, opener, cfg.Queue)
	taxesQueue := eventadapter.NewQueuePublisher(logger, opener, cfg.TaxesQueue)
	closers = append(closers, queue.Close, taxesQueue.Close)

	var notifier *webhook.TaxesNotifier
	var taxesNotifier ports.TaxesNotifier
	if cfg.TaxesWebhookURL != "" {
		notifier = webhook.NewTaxesNotifier(logger, webhook.Config{URL: cfg.TaxesWebhookURL, Timeout: cfg.TaxesWebhookTimeout})
		taxesNotifier = notifier
	}

	icmsRate := decimal.Zero
	if cfg.ICMSRate != "" {
		icmsRate, err = decimal.NewFromString(cfg.ICMSRate)
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("parse icms rate %q: %w", cfg.ICMSRate, err)
		}
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:   cfg.ServiceID,
			Version:       cfg.Version,
			StatsCacheTTL: cfg.StatsCacheTTL,
			ICMSRate:      icmsRate,
		},
		Logger:     logger,
		Extractor:  extract.Extractor{},
		Documents:  repos.Documents,
		Reads:      repos.Reads,
		Admin:      repos.Admin,
		Analyses:   repos.Analyses,
		Queue:      queue,
		TaxesQueue: taxesQueue,
		Classifier: classification.NewHTTPClassifier(classification.Config{URL: cfg.ClassificationURL, Timeout: cfg.ClassificationTimeout}),
		Notifier:   taxesNotifier,
		Cache:      cache,
		Events:     events,
	})

	return &Runtime{
		cfg:     cfg,
		logger:  logger,
		service: svc,
		opener:  opener,
		cleanupFn: func(ctx context.Context) {
			if notifier != nil {
				notifier.Wait(ctx)
			}
			closeAll(closers)
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := httpadapter.NewHandler(r.service, r.logger, r.cfg.MaxUploadBytes)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", r.cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(ctx)
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		r.logger.Error("server failure", "error", runErr)
	}

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return runErr
}

// RunWorker consumes the onboarding queue: classify, then persist.
func (r *Runtime) RunWorker(ctx context.Context) error {
	return r.runConsumer(ctx, eventadapter.ConsumerConfig{
		Name:       "nfe-onboarding-worker",
		Queue:      r.cfg.Queue,
		DLQ:        r.cfg.DLQ,
		MaxRetries: r.cfg.MaxRetries,
	}, r.service.ProcessDocument)
}

// RunTaxesWorker consumes the taxes queue.
func (r *Runtime) RunTaxesWorker(ctx context.Context) error {
	return r.runConsumer(ctx, eventadapter.ConsumerConfig{
		Name:       "nfe-taxes-worker",
		Queue:      r.cfg.TaxesQueue,
		DLQ:        r.cfg.TaxesDLQ,
		MaxRetries: r.cfg.MaxRetries,
	}, r.service.ProcessTaxes)
}

func (r *Runtime) runConsumer(ctx context.Context, cfg eventadapter.ConsumerConfig, handler eventadapter.Handler) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("consumer worker started", "consumer", cfg.Name, "queue", cfg.Queue, "dlq", cfg.DLQ)
	consumer := eventadapter.NewRetryingConsumer(r.logger, r.opener, cfg, handler)
	err := consumer.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func closeAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i]()
	}
}
