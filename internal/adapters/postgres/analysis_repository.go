package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type analysisRepository struct {
	db *gorm.DB
}

var _ ports.FiscalAnalysisRepository = (*analysisRepository)(nil)

var analysisUpdateColumns = []string{
	"numero_nota", "data_emissao", "cnpj_emitente", "razao_social_emitente", "uf_emitente", "crt",
	"regime_tributario_inferido", "cnpj_destinatario", "razao_social_destinatario", "uf_destinatario",
	"ind_ie_dest", "valor_produtos", "valor_total_nfe", "valor_total_icms_destacado", "regime_pis_cofins",
	"base_calculo_pis_cofins", "aliquota_pis", "aliquota_cofins", "valor_pis_estimado", "valor_cofins_estimado",
	"observacoes_pis_cofins", "icms_por_item", "potencial_difal", "observacoes_difal", "recuperacao_credito",
	"dados_completos", "em_processamento", "data_atualizacao",
}

// SaveAnalysis inserts or replaces the analysis of a document. A finished
// report always clears the processing flag.
func (r *analysisRepository) SaveAnalysis(ctx context.Context, analysis ports.FiscalAnalysis, now time.Time) (ports.FiscalAnalysis, error) {
	rec := toAnalysisModel(analysis)
	rec.ID = 0
	rec.EmProcessamento = false
	rec.DataCriacao = now
	rec.DataAtualizacao = now
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chave_acesso"}},
		DoUpdates: clause.AssignmentColumns(analysisUpdateColumns),
	}).Create(&rec).Error; err != nil {
		if isForeignKeyViolation(err) {
			return ports.FiscalAnalysis{}, fmt.Errorf("%w: nota fiscal %s", domain.ErrNotFound, analysis.ChaveAcesso)
		}
		return ports.FiscalAnalysis{}, storageErr("upsert analise_fiscal", err)
	}
	return r.GetAnalysis(ctx, analysis.ChaveAcesso)
}

func (r *analysisRepository) SetProcessing(ctx context.Context, chaveAcesso string, processing bool, now time.Time) (ports.FiscalAnalysis, bool, error) {
	var (
		rec     analiseFiscalModel
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&analiseFiscalModel{}).Where("chave_acesso = ?", chaveAcesso).
			Updates(map[string]any{"em_processamento": processing, "data_atualizacao": now})
		if res.Error != nil {
			return storageErr("update analise_fiscal", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&notaFiscalModel{}).Where("chave_acesso = ?", chaveAcesso).Count(&count).Error; err != nil {
				return storageErr("count notasfiscais", err)
			}
			if count == 0 {
				return fmt.Errorf("%w: nota fiscal %s", domain.ErrNotFound, chaveAcesso)
			}
			fresh := analiseFiscalModel{
				ChaveAcesso: chaveAcesso, EmProcessamento: processing, DataCriacao: now, DataAtualizacao: now,
			}
			if err := tx.Create(&fresh).Error; err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: analise_fiscal %s created concurrently", domain.ErrConflict, chaveAcesso)
				}
				return storageErr("insert analise_fiscal", err)
			}
			created = true
		}
		if err := tx.Where("chave_acesso = ?", chaveAcesso).Take(&rec).Error; err != nil {
			return storageErr("get analise_fiscal", err)
		}
		return nil
	})
	if err != nil {
		return ports.FiscalAnalysis{}, false, err
	}
	return toDomainAnalysis(rec), created, nil
}

func (r *analysisRepository) GetAnalysis(ctx context.Context, chaveAcesso string) (ports.FiscalAnalysis, error) {
	var rec analiseFiscalModel
	if err := r.db.WithContext(ctx).Where("chave_acesso = ?", chaveAcesso).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.FiscalAnalysis{}, fmt.Errorf("%w: analise_fiscal %s", domain.ErrNotFound, chaveAcesso)
		}
		return ports.FiscalAnalysis{}, storageErr("get analise_fiscal", err)
	}
	return toDomainAnalysis(rec), nil
}
