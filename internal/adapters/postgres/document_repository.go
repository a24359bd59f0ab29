package postgres

import (
	"context"
	"sort"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type documentRepository struct {
	db *gorm.DB
}

var _ ports.DocumentRepository = (*documentRepository)(nil)

// Header columns refreshed on redelivery. classificacao is handled apart so a
// later unclassified copy never erases an existing tag.
var headerUpdateColumns = []string{
	"modelo", "serie_nf", "numero_nf", "natureza_operacao", "data_emissao",
	"evento_mais_recente", "data_hora_evento_mais_recente",
	"cpf_cnpj_emitente", "razao_social_emitente", "inscricao_estadual_emitente", "uf_emitente", "municipio_emitente",
	"cnpj_destinatario", "nome_destinatario", "uf_destinatario", "indicador_ie_destinatario",
	"destino_operacao", "consumidor_final", "presenca_comprador", "valor_nota_fiscal",
}

func (r *documentRepository) UpsertDocument(ctx context.Context, doc domain.Document) error {
	key := doc.AccessKey()
	if err := domain.ValidateAccessKey(key); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		header := toNotaFiscalModel(doc.NotaFiscal)
		updates := clause.AssignmentColumns(headerUpdateColumns)
		updates = append(updates, clause.Assignment{
			Column: clause.Column{Name: "classificacao"},
			Value:  gorm.Expr("COALESCE(EXCLUDED.classificacao, notasfiscais.classificacao)"),
		})
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chave_acesso"}},
			DoUpdates: updates,
		}).Create(&header).Error; err != nil {
			return storageErr("upsert notasfiscais", err)
		}

		if len(doc.Items) > 0 {
			items := make([]itemNotaFiscalModel, 0, len(doc.Items))
			for _, it := range doc.Items {
				items = append(items, toItemModel(key, it))
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "chave_acesso_nf"}, {Name: "numero_produto"}},
				DoNothing: true,
			}).Create(&items).Error; err != nil {
				return storageErr("insert itensnotafiscal", err)
			}
		}

		if doc.ImpostosNota != nil {
			totals := toTotalsModel(key, *doc.ImpostosNota)
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "chave_acesso_nf"}},
				UpdateAll: true,
			}).Create(&totals).Error; err != nil {
				return storageErr("upsert impostos_nota_fiscal", err)
			}
		}

		return upsertItemTaxes(tx, key, doc.ImpostosItems)
	})
	return err
}

// upsertItemTaxes links each breakdown to its stored line through the item
// sequence number. Breakdowns with no matching line are dropped.
func upsertItemTaxes(tx *gorm.DB, key string, taxes []domain.ItemTaxBreakdown) error {
	if len(taxes) == 0 {
		return nil
	}
	var stored []itemNotaFiscalModel
	if err := tx.Select("id_item_nf", "numero_produto").
		Where("chave_acesso_nf = ?", key).
		Find(&stored).Error; err != nil {
		return storageErr("load item ids", err)
	}
	ids := make(map[int]int64, len(stored))
	for _, s := range stored {
		ids[s.NumeroProduto] = s.IDItemNF
	}

	// One row per item; the last breakdown for a sequence number wins.
	byItem := make(map[int64]impostosItemModel, len(taxes))
	for _, t := range taxes {
		id, ok := ids[t.NumeroItem]
		if !ok {
			continue
		}
		byItem[id] = toItemTaxModel(key, id, t)
	}
	if len(byItem) == 0 {
		return nil
	}
	rows := make([]impostosItemModel, 0, len(byItem))
	for _, row := range byItem {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].IDItemNF < rows[j].IDItemNF })

	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id_item_nf"}},
		UpdateAll: true,
	}).Create(&rows).Error; err != nil {
		return storageErr("upsert impostos_item", err)
	}
	return nil
}
