package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
	"github.com/tidwall/gjson"
)

var (
	fenceOpen  = regexp.MustCompile("(?m)^```(?:json)?[ \t]*\r?\n?")
	fenceClose = regexp.MustCompile("(?m)\r?\n?```[ \t]*$")
)

// cleanAnalysisText drops Markdown code fences around a JSON report.
func cleanAnalysisText(text string) string {
	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// SaveAnalysisText stores a fiscal analysis report produced upstream as free
// text. The report must carry analise_fiscal.info_nfe.chave_acesso.
func (s *Service) SaveAnalysisText(ctx context.Context, texto string) (SaveAnalysisResult, error) {
	cleaned := cleanAnalysisText(texto)
	if cleaned == "" || !gjson.Valid(cleaned) {
		return SaveAnalysisResult{}, fmt.Errorf("%w: invalid JSON format", domain.ErrInvalidInput)
	}
	analysis, err := parseAnalysis(cleaned)
	if err != nil {
		return SaveAnalysisResult{}, err
	}

	saved, err := s.analyses.SaveAnalysis(ctx, analysis, s.nowFn())
	if err != nil {
		return SaveAnalysisResult{}, err
	}
	s.logger.InfoContext(ctx, "fiscal analysis saved",
		"module", "application",
		"layer", "analysis",
		"operation", "save_analysis",
		"outcome", "success",
		"chave_acesso", saved.ChaveAcesso,
		"analysis_id", saved.ID,
	)
	return SaveAnalysisResult{
		Success:     true,
		ID:          saved.ID,
		ChaveAcesso: saved.ChaveAcesso,
		Message:     "Fiscal analysis saved",
	}, nil
}

func (s *Service) SetAnalysisProcessing(ctx context.Context, req SetProcessingRequest) (SetProcessingResult, error) {
	key, err := lookupKey(req.ChaveAcesso)
	if err != nil {
		return SetProcessingResult{}, err
	}
	if req.EmProcessamento == nil {
		return SetProcessingResult{}, fmt.Errorf("%w: em_processamento is required", domain.ErrInvalidInput)
	}
	row, created, err := s.analyses.SetProcessing(ctx, key, *req.EmProcessamento, s.nowFn())
	if err != nil {
		return SetProcessingResult{}, err
	}
	action := "updated"
	if created {
		action = "created"
	}
	return SetProcessingResult{
		Success:         true,
		Message:         fmt.Sprintf("Fiscal analysis record %s", action),
		Action:          action,
		ID:              row.ID,
		ChaveAcesso:     row.ChaveAcesso,
		EmProcessamento: row.EmProcessamento,
	}, nil
}

// GetAnalysis reports a missing analysis as found=false rather than an error.
func (s *Service) GetAnalysis(ctx context.Context, chaveAcesso string) (AnalysisLookup, error) {
	key, err := lookupKey(chaveAcesso)
	if err != nil {
		return AnalysisLookup{}, err
	}
	row, err := s.analyses.GetAnalysis(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return AnalysisLookup{Found: false, Message: "Fiscal analysis not found"}, nil
	}
	if err != nil {
		return AnalysisLookup{}, err
	}
	view := toAnalysisView(row)
	return AnalysisLookup{Found: true, Analise: &view}, nil
}

func parseAnalysis(raw string) (ports.FiscalAnalysis, error) {
	root := gjson.Parse(raw)
	info := root.Get("analise_fiscal.info_nfe")
	key := domain.NormalizeAccessKey(info.Get("chave_acesso").String())
	if key == "" {
		return ports.FiscalAnalysis{}, fmt.Errorf("%w: chave_acesso not found in JSON data", domain.ErrInvalidInput)
	}
	taxes := root.Get("analise_fiscal.tributos_calculados")
	pisCofins := taxes.Get("pis_cofins")
	icms := taxes.Get("icms_geral")

	a := ports.FiscalAnalysis{
		ChaveAcesso:              key,
		NumeroNota:               info.Get("numero_nota").String(),
		CNPJEmitente:             info.Get("emitente.cnpj").String(),
		RazaoSocialEmitente:      info.Get("emitente.razao_social").String(),
		UFEmitente:               info.Get("emitente.uf").String(),
		CRT:                      gjsonInt(info.Get("emitente.crt")),
		RegimeTributarioInferido: info.Get("emitente.regime_tributario_inferido").String(),
		CNPJDestinatario:         info.Get("destinatario.cnpj").String(),
		RazaoSocialDestinatario:  info.Get("destinatario.razao_social").String(),
		UFDestinatario:           info.Get("destinatario.uf").String(),
		IndIEDest:                info.Get("destinatario.ind_ie_dest").String(),
		ValorProdutos:            domain.ParseNullDecimal(info.Get("valores_totais.valor_produtos").String()),
		ValorTotalNFe:            domain.ParseNullDecimal(info.Get("valores_totais.valor_total_nfe").String()),
		ValorTotalICMSDestacado:  domain.ParseNullDecimal(info.Get("valores_totais.valor_total_icms_destacado").String()),
		RegimePISCOFINS:          pisCofins.Get("regime_aplicado").String(),
		BaseCalculoPISCOFINS:     domain.ParseNullDecimal(pisCofins.Get("base_calculo_estimada").String()),
		AliquotaPIS:              domain.ParseNullDecimal(pisCofins.Get("aliquota_pis").String()),
		AliquotaCOFINS:           domain.ParseNullDecimal(pisCofins.Get("aliquota_cofins").String()),
		ValorPISEstimado:         domain.ParseNullDecimal(pisCofins.Get("valor_pis_estimado").String()),
		ValorCOFINSEstimado:      domain.ParseNullDecimal(pisCofins.Get("valor_cofins_estimado").String()),
		ObservacoesPISCOFINS:     pisCofins.Get("observacoes").String(),
		ICMSPorItem:              gjsonRaw(taxes.Get("icms_por_item")),
		PotencialDIFAL:           gjsonBool(icms.Get("potencial_difal")),
		ObservacoesDIFAL:         icms.Get("observacoes_difal").String(),
		RecuperacaoCredito:       gjsonRaw(root.Get("analise_fiscal.recuperacao_credito_expectativa")),
		DadosCompletos:           json.RawMessage(raw),
	}
	if t, ok := domain.ParseDate(info.Get("data_emissao").String()); ok {
		a.DataEmissao = &t
	}
	return a, nil
}

func gjsonInt(r gjson.Result) *int {
	switch r.Type {
	case gjson.Number:
		v := int(r.Int())
		return &v
	case gjson.String:
		return domain.ParseIntPtr(r.Str)
	default:
		return nil
	}
}

func gjsonBool(r gjson.Result) *bool {
	switch r.Type {
	case gjson.True, gjson.False:
		v := r.Bool()
		return &v
	default:
		return nil
	}
}

func gjsonRaw(r gjson.Result) json.RawMessage {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	return json.RawMessage(r.Raw)
}

func toAnalysisView(a ports.FiscalAnalysis) AnalysisView {
	return AnalysisView{
		ID: a.ID, ChaveAcesso: a.ChaveAcesso, NumeroNota: a.NumeroNota, DataEmissao: formatDate(a.DataEmissao),
		CNPJEmitente: a.CNPJEmitente, RazaoSocialEmitente: a.RazaoSocialEmitente, UFEmitente: a.UFEmitente,
		CRT: a.CRT, RegimeTributarioInferido: a.RegimeTributarioInferido,
		CNPJDestinatario: a.CNPJDestinatario, RazaoSocialDestinatario: a.RazaoSocialDestinatario,
		UFDestinatario: a.UFDestinatario, IndIEDest: a.IndIEDest,
		ValorProdutos: decimalPtr(a.ValorProdutos), ValorTotalNFe: decimalPtr(a.ValorTotalNFe),
		ValorTotalICMSDestacado: decimalPtr(a.ValorTotalICMSDestacado), RegimePISCOFINS: a.RegimePISCOFINS,
		BaseCalculoPISCOFINS: decimalPtr(a.BaseCalculoPISCOFINS), AliquotaPIS: decimalPtr(a.AliquotaPIS),
		AliquotaCOFINS: decimalPtr(a.AliquotaCOFINS), ValorPISEstimado: decimalPtr(a.ValorPISEstimado),
		ValorCOFINSEstimado: decimalPtr(a.ValorCOFINSEstimado), ObservacoesPISCOFINS: a.ObservacoesPISCOFINS,
		ICMSPorItem: a.ICMSPorItem, PotencialDIFAL: a.PotencialDIFAL, ObservacoesDIFAL: a.ObservacoesDIFAL,
		RecuperacaoCredito: a.RecuperacaoCredito, DadosCompletos: a.DadosCompletos,
		EmProcessamento: a.EmProcessamento, DataCriacao: formatTimestamp(a.DataCriacao),
		DataAtualizacao: formatTimestamp(a.DataAtualizacao),
	}
}
