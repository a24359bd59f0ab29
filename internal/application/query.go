package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
)

func (s *Service) ListDocuments(ctx context.Context) ([]DocumentListItem, error) {
	rows, err := s.reads.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DocumentListItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDocumentListItem(row))
	}
	return out, nil
}

func (s *Service) GetDocument(ctx context.Context, chaveAcesso string) (domain.Document, error) {
	key, err := lookupKey(chaveAcesso)
	if err != nil {
		return domain.Document{}, err
	}
	return s.reads.GetDocument(ctx, key)
}

func (s *Service) GetTaxTotals(ctx context.Context, chaveAcesso string) (domain.DocumentTaxTotals, error) {
	key, err := lookupKey(chaveAcesso)
	if err != nil {
		return domain.DocumentTaxTotals{}, err
	}
	totals, err := s.reads.GetTaxTotals(ctx, key)
	if err != nil {
		return domain.DocumentTaxTotals{}, err
	}
	if totals == nil {
		return domain.DocumentTaxTotals{}, fmt.Errorf("%w: tax data for nota fiscal %s", domain.ErrNotFound, key)
	}
	return *totals, nil
}

func (s *Service) ListItemTaxes(ctx context.Context, chaveAcesso string) ([]domain.ItemTaxBreakdown, error) {
	key, err := lookupKey(chaveAcesso)
	if err != nil {
		return nil, err
	}
	return s.reads.ListItemTaxes(ctx, key)
}

func (s *Service) GetCompleteTaxes(ctx context.Context, chaveAcesso string) (CompleteTaxesView, error) {
	key, err := lookupKey(chaveAcesso)
	if err != nil {
		return CompleteTaxesView{}, err
	}
	totals, err := s.reads.GetTaxTotals(ctx, key)
	if err != nil {
		return CompleteTaxesView{}, err
	}
	items, err := s.reads.ListItemTaxes(ctx, key)
	if err != nil {
		return CompleteTaxesView{}, err
	}
	return CompleteTaxesView{ChaveAcesso: key, ImpostosNota: totals, ImpostosItems: items}, nil
}

// Statistics serves the aggregate view from cache when possible. Cache
// failures degrade to a database read.
func (s *Service) Statistics(ctx context.Context) (StatisticsView, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, statsCacheKey); err == nil && raw != "" {
			var cached StatisticsView
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		}
	}
	stats, err := s.reads.Statistics(ctx)
	if err != nil {
		return StatisticsView{}, err
	}
	view := toStatisticsView(stats)
	if s.cache != nil {
		if raw, err := json.Marshal(view); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, string(raw), s.cfg.StatsCacheTTL); err != nil {
				s.logger.WarnContext(ctx, "stats cache write failed",
					"module", "application",
					"layer", "cache",
					"operation", "statistics",
					"outcome", "failure",
					"error", err,
				)
			}
		}
	}
	return view, nil
}

func (s *Service) Status(ctx context.Context) (StatusView, error) {
	stats, err := s.Statistics(ctx)
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{Service: s.cfg.ServiceName, Version: s.cfg.Version, Status: "running", Database: stats}, nil
}

// Ready reports whether the database answers.
func (s *Service) Ready(ctx context.Context) error {
	return s.reads.Ping(ctx)
}

func lookupKey(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", fmt.Errorf("%w: chave_acesso is required", domain.ErrInvalidInput)
	}
	return key, nil
}

func toDocumentListItem(row ports.DocumentSummary) DocumentListItem {
	return DocumentListItem{
		ChaveAcesso: row.ChaveAcesso, NumeroNF: row.NumeroNF, DataEmissao: formatDate(row.DataEmissao),
		RazaoSocialEmitente: row.RazaoSocialEmitente, CPFCNPJEmitente: row.CPFCNPJEmitente,
		NomeDestinatario: row.NomeDestinatario, CNPJDestinatario: row.CNPJDestinatario,
		ValorNotaFiscal: row.ValorNotaFiscal, Classificacao: row.Classificacao, TotalItems: row.TotalItems,
	}
}

func toStatisticsView(stats ports.Statistics) StatisticsView {
	return StatisticsView{
		NotasFiscais:       stats.NotasFiscais,
		ItensNotaFiscal:    stats.ItensNotaFiscal,
		TotalRecords:       stats.NotasFiscais + stats.ItensNotaFiscal,
		TotalValue:         stats.TotalValue,
		LastUpload:         formatDate(stats.LastUpload),
		NotasClassificadas: stats.NotasClassificadas,
	}
}
