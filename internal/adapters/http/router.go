package http

import (
	"log/slog"
	"net/http"

	"github.com/enzopoeta/i2a2-final/internal/application"
	"github.com/go-chi/chi/v5"
)

const defaultMaxUploadBytes = 50 << 20

type Handler struct {
	service        *application.Service
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewHandler(service *application.Service, logger *slog.Logger, maxUploadBytes int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{service: service, logger: logger, maxUploadBytes: maxUploadBytes}
}

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(handler.logger))
	r.Use(loggingMiddleware(handler.logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })
	r.Get("/readyz", handler.ready)
	r.Get("/health", handler.health)
	r.Get("/status", handler.status)

	r.Post("/upload-nfe-zip/", handler.uploadArchive)
	r.Post("/upload-nfe-xml/", handler.uploadXML)
	r.Post("/insert-nota-fiscal/", handler.insertDocument)
	r.Post("/calculate-taxes/", handler.calculateTaxes)

	r.Post("/analise_fiscal", handler.saveAnalysis)
	r.Put("/analise_fiscal/processamento", handler.setAnalysisProcessing)
	r.Get("/analise_fiscal/{chave}", handler.getAnalysis)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handler.health)
		r.Get("/status", handler.status)
		r.Post("/upload-nfe-zip/", handler.uploadArchive)
		r.Post("/upload-nfe-xml/", handler.uploadXML)
		r.Post("/insert-nota-fiscal/", handler.insertDocument)

		r.Get("/notas", handler.listDocuments)
		r.Get("/notas/{chave}", handler.getDocument)
		r.Get("/statistics", handler.statistics)

		r.Route("/impostos", func(r chi.Router) {
			r.Get("/nota/{chave}", handler.getTaxTotals)
			r.Get("/itens/{chave}", handler.listItemTaxes)
			r.Get("/completo/{chave}", handler.getCompleteTaxes)
		})

		r.Delete("/clear-all-data", handler.clearAll)
		r.Post("/ensure-tables", handler.ensureTables)
	})
	return r
}
