package application

import (
	"context"
	"fmt"
	"time"

	"github.com/enzopoeta/i2a2-final/internal/contracts"
	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/shopspring/decimal"
)

type documentPersistedEventData struct {
	ChaveAcesso     string          `json:"chave_acesso"`
	NumeroNF        string          `json:"numero_nf"`
	Classificacao   *string         `json:"classificacao"`
	ItemsCount      int             `json:"items_count"`
	ValorNotaFiscal decimal.Decimal `json:"valor_nota_fiscal"`
	PersistedAt     string          `json:"persisted_at"`
}

// ProcessDocument is the onboarding stage: classify, then persist. Errors
// keep their sentinel so the consumer can name the failing collaborator.
func (s *Service) ProcessDocument(ctx context.Context, doc domain.Document) error {
	key := doc.AccessKey()
	classified, err := s.classifier.Classify(ctx, doc)
	if err != nil {
		return fmt.Errorf("classify %s: %w", key, err)
	}
	if err := s.documents.UpsertDocument(ctx, classified); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	s.invalidateStats(ctx)

	now := s.nowFn()
	s.emit(ctx, contracts.EventDocumentPersisted, key, documentPersistedEventData{
		ChaveAcesso:     key,
		NumeroNF:        classified.NotaFiscal.NumeroNF,
		Classificacao:   classified.NotaFiscal.Classificacao,
		ItemsCount:      len(classified.Items),
		ValorNotaFiscal: classified.NotaFiscal.ValorNotaFiscal,
		PersistedAt:     now.Format(time.RFC3339),
	})
	s.logger.InfoContext(ctx, "document persisted",
		"module", "application",
		"layer", "onboarding",
		"operation", "process_document",
		"outcome", "success",
		"chave_acesso", key,
		"classificacao", derefString(classified.NotaFiscal.Classificacao),
		"items", len(classified.Items),
	)
	return nil
}

// InsertDocument persists an uploaded message envelope as-is, without the
// queue or classification. A classificacao already on the envelope is kept.
func (s *Service) InsertDocument(ctx context.Context, data []byte) (InsertDocumentResult, error) {
	doc, err := contracts.ParseEnvelope(data)
	if err != nil {
		return InsertDocumentResult{}, fmt.Errorf("%w: invalid nota fiscal envelope: %v", domain.ErrInvalidInput, err)
	}
	key := doc.AccessKey()
	if err := s.documents.UpsertDocument(ctx, doc); err != nil {
		return InsertDocumentResult{}, fmt.Errorf("persist %s: %w", key, err)
	}
	s.invalidateStats(ctx)
	s.emit(ctx, contracts.EventDocumentPersisted, key, documentPersistedEventData{
		ChaveAcesso:     key,
		NumeroNF:        doc.NotaFiscal.NumeroNF,
		Classificacao:   doc.NotaFiscal.Classificacao,
		ItemsCount:      len(doc.Items),
		ValorNotaFiscal: doc.NotaFiscal.ValorNotaFiscal,
		PersistedAt:     s.nowFn().Format(time.RFC3339),
	})
	s.logger.InfoContext(ctx, "document inserted",
		"module", "application",
		"layer", "onboarding",
		"operation", "insert_document",
		"outcome", "success",
		"chave_acesso", key,
		"items", len(doc.Items),
	)
	return InsertDocumentResult{
		Message:       "Nota fiscal inserted successfully",
		ChaveAcesso:   key,
		NumeroNF:      doc.NotaFiscal.NumeroNF,
		ItemsCount:    len(doc.Items),
		ValorTotal:    doc.NotaFiscal.ValorNotaFiscal,
		Classificacao: doc.NotaFiscal.Classificacao,
	}, nil
}
