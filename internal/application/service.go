package application

import (
	"log/slog"
	"time"

	"github.com/enzopoeta/i2a2-final/internal/ports"
)

type Service struct {
	cfg        Config
	logger     *slog.Logger
	extractor  ports.Extractor
	documents  ports.DocumentRepository
	reads      ports.ReadRepository
	admin      ports.AdminRepository
	analyses   ports.FiscalAnalysisRepository
	queue      ports.DocumentPublisher
	taxesQueue ports.DocumentPublisher
	classifier ports.Classifier
	notifier   ports.TaxesNotifier
	cache      ports.Cache
	events     ports.EventPublisher
	nowFn      func() time.Time
}

type Dependencies struct {
	Config     Config
	Logger     *slog.Logger
	Extractor  ports.Extractor
	Documents  ports.DocumentRepository
	Reads      ports.ReadRepository
	Admin      ports.AdminRepository
	Analyses   ports.FiscalAnalysisRepository
	Queue      ports.DocumentPublisher
	TaxesQueue ports.DocumentPublisher
	Classifier ports.Classifier
	Notifier   ports.TaxesNotifier
	Cache      ports.Cache
	Events     ports.EventPublisher
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "nfe-load-service"
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = 30 * time.Second
	}
	if cfg.ICMSRate.IsZero() {
		cfg.ICMSRate = defaultICMSRate
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:        cfg,
		logger:     logger,
		extractor:  deps.Extractor,
		documents:  deps.Documents,
		reads:      deps.Reads,
		admin:      deps.Admin,
		analyses:   deps.Analyses,
		queue:      deps.Queue,
		taxesQueue: deps.TaxesQueue,
		classifier: deps.Classifier,
		notifier:   deps.Notifier,
		cache:      deps.Cache,
		events:     deps.Events,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ServiceName() string {
	return s.cfg.ServiceName
}
