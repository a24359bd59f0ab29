package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/enzopoeta/i2a2-final/internal/contracts"
	"github.com/enzopoeta/i2a2-final/internal/domain"
)

// RequestTaxCalculation loads a persisted document, fires the taxes webhook
// and queues the document for the taxes stage.
func (s *Service) RequestTaxCalculation(ctx context.Context, chaveAcesso string) (TaxRequestResult, error) {
	key := strings.TrimSpace(chaveAcesso)
	if key == "" {
		return TaxRequestResult{}, fmt.Errorf("%w: chave_acesso is required", domain.ErrInvalidInput)
	}
	doc, err := s.reads.GetDocument(ctx, key)
	if err != nil {
		return TaxRequestResult{}, err
	}

	webhook := "disabled"
	if s.notifier != nil {
		s.notifier.Notify(ctx, doc)
		webhook = "processing"
	}
	if !s.taxesQueue.Publish(ctx, doc) {
		return TaxRequestResult{}, fmt.Errorf("%w: taxes queue for %s", domain.ErrPublishFailed, key)
	}

	s.logger.InfoContext(ctx, "tax calculation requested",
		"module", "application",
		"layer", "taxes",
		"operation", "request_tax_calculation",
		"outcome", "success",
		"chave_acesso", key,
		"items", len(doc.Items),
	)
	return TaxRequestResult{
		Message:             "Nota fiscal processed successfully",
		ChaveAcesso:         key,
		NumeroNF:            doc.NotaFiscal.NumeroNF,
		RazaoSocialEmitente: doc.NotaFiscal.RazaoSocialEmitente,
		NomeDestinatario:    doc.NotaFiscal.NomeDestinatario,
		ItemsCount:          len(doc.Items),
		ValorTotal:          doc.NotaFiscal.ValorNotaFiscal,
		Classificacao:       doc.NotaFiscal.Classificacao,
		WebhookStatus:       webhook,
		QueuePublished:      true,
	}, nil
}

// CalculateTaxes applies the flat ICMS rate to the document total and to each
// line total.
func (s *Service) CalculateTaxes(doc domain.Document) TaxCalculation {
	rate := s.cfg.ICMSRate
	icms := doc.NotaFiscal.ValorNotaFiscal.Mul(rate).Round(2)
	out := TaxCalculation{
		ChaveAcesso: doc.AccessKey(),
		ICMSRate:    rate,
		ICMSValue:   icms,
		TotalTaxes:  icms,
		Items:       make([]ItemTaxEstimate, 0, len(doc.Items)),
	}
	for _, item := range doc.Items {
		out.Items = append(out.Items, ItemTaxEstimate{
			NumeroProduto: item.NumeroProduto,
			ValorTotal:    item.ValorTotal,
			ICMSRate:      rate,
			ICMSValue:     item.ValorTotal.Mul(rate).Round(2),
		})
	}
	return out
}

// ProcessTaxes is the taxes stage side effect.
func (s *Service) ProcessTaxes(ctx context.Context, doc domain.Document) error {
	calc := s.CalculateTaxes(doc)
	s.logger.InfoContext(ctx, "taxes calculated",
		"module", "application",
		"layer", "taxes",
		"operation", "process_taxes",
		"outcome", "success",
		"chave_acesso", calc.ChaveAcesso,
		"uf_emitente", doc.NotaFiscal.UFEmitente,
		"uf_destinatario", doc.NotaFiscal.UFDestinatario,
		"items", len(calc.Items),
		"icms_rate", calc.ICMSRate.String(),
		"icms_value", calc.ICMSValue.StringFixed(2),
	)
	s.emit(ctx, contracts.EventTaxesCalculated, calc.ChaveAcesso, calc)
	return nil
}
