package application

import (
	"context"
	"fmt"

	"github.com/enzopoeta/i2a2-final/internal/domain"
)

// IngestArchive extracts every document of a paired CSV export and hands
// each one to the onboarding queue. One failed publish never aborts the batch.
func (s *Service) IngestArchive(ctx context.Context, data []byte) (ArchiveIngestResult, error) {
	if len(data) == 0 {
		return ArchiveIngestResult{}, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	batch, err := s.extractor.ExtractArchive(data)
	if err != nil {
		return ArchiveIngestResult{}, err
	}

	out := ArchiveIngestResult{
		NotasFiscaisProcessed: len(batch.Documents),
		SkippedRows:           batch.SkippedRows,
	}
	for _, doc := range batch.Documents {
		if s.queue.Publish(ctx, doc) {
			out.PublishedToQueue++
			continue
		}
		out.Failed++
	}
	out.Message = fmt.Sprintf("Processed %d notas fiscais: %d published to queue, %d failed",
		out.NotasFiscaisProcessed, out.PublishedToQueue, out.Failed)

	s.logger.InfoContext(ctx, "archive ingested",
		"module", "application",
		"layer", "ingest",
		"operation", "ingest_archive",
		"outcome", ingestOutcome(out.Failed),
		"documents", out.NotasFiscaisProcessed,
		"published", out.PublishedToQueue,
		"failed", out.Failed,
		"skipped_rows", out.SkippedRows,
	)
	return out, nil
}

// IngestXML extracts a single NFe XML and queues it. A failed publish is an
// error here since there is no batch to report a partial tally for.
func (s *Service) IngestXML(ctx context.Context, data []byte) (XMLIngestResult, error) {
	if len(data) == 0 {
		return XMLIngestResult{}, fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	doc, err := s.extractor.ExtractXML(data)
	if err != nil {
		return XMLIngestResult{}, err
	}
	if !s.queue.Publish(ctx, doc) {
		s.logger.ErrorContext(ctx, "xml publish failed",
			"module", "application",
			"layer", "ingest",
			"operation", "ingest_xml",
			"outcome", "failure",
			"chave_acesso", doc.AccessKey(),
		)
		return XMLIngestResult{}, fmt.Errorf("%w: nota fiscal %s", domain.ErrPublishFailed, doc.AccessKey())
	}
	s.logger.InfoContext(ctx, "xml ingested",
		"module", "application",
		"layer", "ingest",
		"operation", "ingest_xml",
		"outcome", "success",
		"chave_acesso", doc.AccessKey(),
		"items", len(doc.Items),
	)
	return XMLIngestResult{
		Message:     "XML processed and sent to queue",
		ChaveAcesso: doc.AccessKey(),
		NumeroNF:    doc.NotaFiscal.NumeroNF,
		ItemsCount:  len(doc.Items),
		ValorTotal:  doc.NotaFiscal.ValorNotaFiscal,
		Status:      "queued",
	}, nil
}

func ingestOutcome(failed int) string {
	if failed > 0 {
		return "partial"
	}
	return "success"
}
