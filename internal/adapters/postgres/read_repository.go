package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type readRepository struct {
	db *gorm.DB
}

var _ ports.ReadRepository = (*readRepository)(nil)

const listDocumentsSQL = `
SELECT n.chave_acesso, n.numero_nf, n.data_emissao, n.razao_social_emitente, n.cpf_cnpj_emitente,
       n.nome_destinatario, n.cnpj_destinatario, n.valor_nota_fiscal, n.classificacao,
       COUNT(i.id_item_nf) AS total_items
FROM notasfiscais n
LEFT JOIN itensnotafiscal i ON i.chave_acesso_nf = n.chave_acesso
GROUP BY n.chave_acesso
ORDER BY n.data_emissao DESC NULLS LAST, n.chave_acesso`

const statisticsSQL = `
SELECT (SELECT COUNT(*) FROM notasfiscais) AS notas_fiscais,
       (SELECT COUNT(*) FROM itensnotafiscal) AS itens_nota_fiscal,
       (SELECT COALESCE(SUM(valor_nota_fiscal), 0) FROM notasfiscais) AS total_value,
       (SELECT MAX(data_emissao) FROM notasfiscais) AS last_upload,
       (SELECT COUNT(*) FROM notasfiscais WHERE COALESCE(classificacao, '') <> '') AS notas_classificadas`

func (r *readRepository) ListDocuments(ctx context.Context) ([]ports.DocumentSummary, error) {
	var rows []documentSummaryRow
	if err := r.db.WithContext(ctx).Raw(listDocumentsSQL).Scan(&rows).Error; err != nil {
		return nil, storageErr("list notasfiscais", err)
	}
	out := make([]ports.DocumentSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDocumentSummary(row))
	}
	return out, nil
}

// GetDocument loads the header first and then the three child sets in parallel.
func (r *readRepository) GetDocument(ctx context.Context, chaveAcesso string) (domain.Document, error) {
	var header notaFiscalModel
	if err := r.db.WithContext(ctx).Where("chave_acesso = ?", chaveAcesso).Take(&header).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Document{}, fmt.Errorf("%w: nota fiscal %s", domain.ErrNotFound, chaveAcesso)
		}
		return domain.Document{}, storageErr("get notasfiscais", err)
	}

	var (
		items  []itemNotaFiscalModel
		totals *domain.DocumentTaxTotals
		taxes  []domain.ItemTaxBreakdown
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.db.WithContext(gctx).Where("chave_acesso_nf = ?", chaveAcesso).
			Order("numero_produto asc").Find(&items).Error; err != nil {
			return storageErr("list itensnotafiscal", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		totals, err = r.GetTaxTotals(gctx, chaveAcesso)
		return err
	})
	g.Go(func() error {
		var err error
		taxes, err = r.ListItemTaxes(gctx, chaveAcesso)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Document{}, err
	}

	doc := domain.Document{
		NotaFiscal:    toDomainFiscalDocument(header),
		Items:         make([]domain.LineItem, 0, len(items)),
		ImpostosNota:  totals,
		ImpostosItems: taxes,
	}
	for _, item := range items {
		doc.Items = append(doc.Items, toDomainLineItem(item))
	}
	return doc, nil
}

// GetTaxTotals returns nil without error when the document has no totals row.
func (r *readRepository) GetTaxTotals(ctx context.Context, chaveAcesso string) (*domain.DocumentTaxTotals, error) {
	var rows []impostosNotaFiscalModel
	if err := r.db.WithContext(ctx).Where("chave_acesso_nf = ?", chaveAcesso).Limit(1).Find(&rows).Error; err != nil {
		return nil, storageErr("get impostos_nota_fiscal", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	totals := toDomainTaxTotals(rows[0])
	return &totals, nil
}

func (r *readRepository) ListItemTaxes(ctx context.Context, chaveAcesso string) ([]domain.ItemTaxBreakdown, error) {
	var rows []impostosItemModel
	if err := r.db.WithContext(ctx).Where("chave_acesso_nf = ?", chaveAcesso).
		Order("numero_item asc").Find(&rows).Error; err != nil {
		return nil, storageErr("list impostos_item", err)
	}
	out := make([]domain.ItemTaxBreakdown, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainItemTax(row))
	}
	return out, nil
}

func (r *readRepository) DocumentExists(ctx context.Context, chaveAcesso string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&notaFiscalModel{}).
		Where("chave_acesso = ?", chaveAcesso).Count(&count).Error; err != nil {
		return false, storageErr("count notasfiscais", err)
	}
	return count > 0, nil
}

func (r *readRepository) Statistics(ctx context.Context) (ports.Statistics, error) {
	var row statisticsRow
	if err := r.db.WithContext(ctx).Raw(statisticsSQL).Scan(&row).Error; err != nil {
		return ports.Statistics{}, storageErr("statistics", err)
	}
	return ports.Statistics{
		NotasFiscais: row.NotasFiscais, ItensNotaFiscal: row.ItensNotaFiscal, TotalValue: row.TotalValue,
		LastUpload: row.LastUpload, NotasClassificadas: row.NotasClassificadas,
	}, nil
}

func (r *readRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return storageErr("gorm sql db", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}
