package postgres

import (
	"encoding/json"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
)

func toSnapshotColumns(s domain.HeaderSnapshot) SnapshotColumns {
	return SnapshotColumns{
		Modelo: s.Modelo, SerieNF: s.SerieNF, NumeroNF: s.NumeroNF, NaturezaOperacao: s.NaturezaOperacao,
		DataEmissao: s.DataEmissao.Ptr(), CPFCNPJEmitente: s.CPFCNPJEmitente, RazaoSocialEmitente: s.RazaoSocialEmitente,
		InscricaoEstadualEmitente: s.InscricaoEstadualEmitente, UFEmitente: s.UFEmitente, MunicipioEmitente: s.MunicipioEmitente,
		CNPJDestinatario: s.CNPJDestinatario, NomeDestinatario: s.NomeDestinatario, UFDestinatario: s.UFDestinatario,
		IndicadorIEDestinatario: s.IndicadorIEDestinatario, DestinoOperacao: s.DestinoOperacao,
		ConsumidorFinal: s.ConsumidorFinal, PresencaComprador: s.PresencaComprador,
	}
}

func toDomainSnapshot(m SnapshotColumns) domain.HeaderSnapshot {
	s := domain.HeaderSnapshot{
		Modelo: m.Modelo, SerieNF: m.SerieNF, NumeroNF: m.NumeroNF, NaturezaOperacao: m.NaturezaOperacao,
		CPFCNPJEmitente: m.CPFCNPJEmitente, RazaoSocialEmitente: m.RazaoSocialEmitente,
		InscricaoEstadualEmitente: m.InscricaoEstadualEmitente, UFEmitente: m.UFEmitente, MunicipioEmitente: m.MunicipioEmitente,
		CNPJDestinatario: m.CNPJDestinatario, NomeDestinatario: m.NomeDestinatario, UFDestinatario: m.UFDestinatario,
		IndicadorIEDestinatario: m.IndicadorIEDestinatario, DestinoOperacao: m.DestinoOperacao,
		ConsumidorFinal: m.ConsumidorFinal, PresencaComprador: m.PresencaComprador,
	}
	if m.DataEmissao != nil {
		s.DataEmissao = domain.NewDate(*m.DataEmissao)
	}
	return s
}

func toNotaFiscalModel(d domain.FiscalDocument) notaFiscalModel {
	return notaFiscalModel{
		ChaveAcesso: d.ChaveAcesso, SnapshotColumns: toSnapshotColumns(d.HeaderSnapshot),
		EventoMaisRecente: d.EventoMaisRecente, DataHoraEventoMaisRecente: d.DataHoraEventoMaisRecente.Ptr(),
		ValorNotaFiscal: d.ValorNotaFiscal, Classificacao: emptyAsNil(d.Classificacao),
	}
}

func toDomainFiscalDocument(m notaFiscalModel) domain.FiscalDocument {
	d := domain.FiscalDocument{
		ChaveAcesso: m.ChaveAcesso, HeaderSnapshot: toDomainSnapshot(m.SnapshotColumns),
		EventoMaisRecente: m.EventoMaisRecente, ValorNotaFiscal: m.ValorNotaFiscal, Classificacao: m.Classificacao,
	}
	if m.DataHoraEventoMaisRecente != nil {
		d.DataHoraEventoMaisRecente = domain.DateTime{Time: *m.DataHoraEventoMaisRecente}
	}
	return d
}

func toItemModel(key string, it domain.LineItem) itemNotaFiscalModel {
	return itemNotaFiscalModel{
		ChaveAcessoNF: key, SnapshotColumns: toSnapshotColumns(it.HeaderSnapshot),
		NumeroProduto: it.NumeroProduto, DescricaoProduto: it.DescricaoProduto, CodigoNCMSH: it.CodigoNCMSH,
		NCMSHTipoProduto: it.NCMSHTipoProduto, CFOP: it.CFOP, Quantidade: it.Quantidade, Unidade: it.Unidade,
		ValorUnitario: it.ValorUnitario, ValorTotal: it.ValorTotal,
	}
}

func toDomainLineItem(m itemNotaFiscalModel) domain.LineItem {
	return domain.LineItem{
		ChaveAcessoNF: m.ChaveAcessoNF, HeaderSnapshot: toDomainSnapshot(m.SnapshotColumns),
		NumeroProduto: m.NumeroProduto, DescricaoProduto: m.DescricaoProduto, CodigoNCMSH: m.CodigoNCMSH,
		NCMSHTipoProduto: m.NCMSHTipoProduto, CFOP: m.CFOP, Quantidade: m.Quantidade, Unidade: m.Unidade,
		ValorUnitario: m.ValorUnitario, ValorTotal: m.ValorTotal,
	}
}

func toTotalsModel(key string, t domain.DocumentTaxTotals) impostosNotaFiscalModel {
	return impostosNotaFiscalModel{
		ChaveAcessoNF: key, VBCICMS: t.VBCICMS, VICMS: t.VICMS, VICMSDeson: t.VICMSDeson, VFCPUFDest: t.VFCPUFDest,
		VICMSUFDest: t.VICMSUFDest, VICMSUFRemet: t.VICMSUFRemet, VBCST: t.VBCST, VST: t.VST, VIPI: t.VIPI,
		VIPIDevol: t.VIPIDevol, VPIS: t.VPIS, VCOFINS: t.VCOFINS, VII: t.VII, VTotTrib: t.VTotTrib,
		VProd: t.VProd, VFrete: t.VFrete, VSeg: t.VSeg, VDesc: t.VDesc, VOutro: t.VOutro, VNF: t.VNF,
	}
}

func toDomainTaxTotals(m impostosNotaFiscalModel) domain.DocumentTaxTotals {
	return domain.DocumentTaxTotals{
		ChaveAcessoNF: m.ChaveAcessoNF, VBCICMS: m.VBCICMS, VICMS: m.VICMS, VICMSDeson: m.VICMSDeson, VFCPUFDest: m.VFCPUFDest,
		VICMSUFDest: m.VICMSUFDest, VICMSUFRemet: m.VICMSUFRemet, VBCST: m.VBCST, VST: m.VST, VIPI: m.VIPI,
		VIPIDevol: m.VIPIDevol, VPIS: m.VPIS, VCOFINS: m.VCOFINS, VII: m.VII, VTotTrib: m.VTotTrib,
		VProd: m.VProd, VFrete: m.VFrete, VSeg: m.VSeg, VDesc: m.VDesc, VOutro: m.VOutro, VNF: m.VNF,
	}
}

func toItemTaxModel(key string, itemID int64, t domain.ItemTaxBreakdown) impostosItemModel {
	return impostosItemModel{
		IDItemNF: itemID, ChaveAcessoNF: key, NumeroItem: t.NumeroItem, VTotTrib: t.VTotTrib,
		ICMSOrig: t.ICMSOrig, ICMSCST: t.ICMSCST, ICMSModBC: t.ICMSModBC, ICMSVBC: t.ICMSVBC,
		ICMSPICMS: t.ICMSPICMS, ICMSVICMS: t.ICMSVICMS,
		ICMSUFVBCUFDest: t.ICMSUFVBCUFDest, ICMSUFVBCFCPUFDest: t.ICMSUFVBCFCPUFDest, ICMSUFPFCPUFDest: t.ICMSUFPFCPUFDest,
		ICMSUFPICMSUFDest: t.ICMSUFPICMSUFDest, ICMSUFPICMSInter: t.ICMSUFPICMSInter,
		ICMSUFPICMSInterPart: t.ICMSUFPICMSInterPart, ICMSUFVFCPUFDest: t.ICMSUFVFCPUFDest,
		ICMSUFVICMSUFDest: t.ICMSUFVICMSUFDest, ICMSUFVICMSUFRemet: t.ICMSUFVICMSUFRemet,
		IPICEnq: t.IPICEnq, IPICST: t.IPICST, IPIVBC: t.IPIVBC, IPIPIPI: t.IPIPIPI, IPIVIPI: t.IPIVIPI,
		PISCST: t.PISCST, PISVBC: t.PISVBC, PISPPIS: t.PISPPIS, PISVPIS: t.PISVPIS,
		COFINSCST: t.COFINSCST, COFINSVBC: t.COFINSVBC, COFINSPCOFINS: t.COFINSPCOFINS, COFINSVCOFINS: t.COFINSVCOFINS,
	}
}

func toDomainItemTax(m impostosItemModel) domain.ItemTaxBreakdown {
	return domain.ItemTaxBreakdown{
		ChaveAcessoNF: m.ChaveAcessoNF, NumeroItem: m.NumeroItem, VTotTrib: m.VTotTrib,
		ICMSOrig: m.ICMSOrig, ICMSCST: m.ICMSCST, ICMSModBC: m.ICMSModBC, ICMSVBC: m.ICMSVBC,
		ICMSPICMS: m.ICMSPICMS, ICMSVICMS: m.ICMSVICMS,
		ICMSUFVBCUFDest: m.ICMSUFVBCUFDest, ICMSUFVBCFCPUFDest: m.ICMSUFVBCFCPUFDest, ICMSUFPFCPUFDest: m.ICMSUFPFCPUFDest,
		ICMSUFPICMSUFDest: m.ICMSUFPICMSUFDest, ICMSUFPICMSInter: m.ICMSUFPICMSInter,
		ICMSUFPICMSInterPart: m.ICMSUFPICMSInterPart, ICMSUFVFCPUFDest: m.ICMSUFVFCPUFDest,
		ICMSUFVICMSUFDest: m.ICMSUFVICMSUFDest, ICMSUFVICMSUFRemet: m.ICMSUFVICMSUFRemet,
		IPICEnq: m.IPICEnq, IPICST: m.IPICST, IPIVBC: m.IPIVBC, IPIPIPI: m.IPIPIPI, IPIVIPI: m.IPIVIPI,
		PISCST: m.PISCST, PISVBC: m.PISVBC, PISPPIS: m.PISPPIS, PISVPIS: m.PISVPIS,
		COFINSCST: m.COFINSCST, COFINSVBC: m.COFINSVBC, COFINSPCOFINS: m.COFINSPCOFINS, COFINSVCOFINS: m.COFINSVCOFINS,
	}
}

func toDocumentSummary(r documentSummaryRow) ports.DocumentSummary {
	return ports.DocumentSummary{
		ChaveAcesso: r.ChaveAcesso, NumeroNF: r.NumeroNF, DataEmissao: r.DataEmissao,
		RazaoSocialEmitente: r.RazaoSocialEmitente, CPFCNPJEmitente: r.CPFCNPJEmitente,
		NomeDestinatario: r.NomeDestinatario, CNPJDestinatario: r.CNPJDestinatario,
		ValorNotaFiscal: r.ValorNotaFiscal, Classificacao: r.Classificacao, TotalItems: r.TotalItems,
	}
}

func toAnalysisModel(a ports.FiscalAnalysis) analiseFiscalModel {
	return analiseFiscalModel{
		ID: a.ID, ChaveAcesso: a.ChaveAcesso, NumeroNota: a.NumeroNota, DataEmissao: a.DataEmissao,
		CNPJEmitente: a.CNPJEmitente, RazaoSocialEmitente: a.RazaoSocialEmitente, UFEmitente: a.UFEmitente,
		CRT: a.CRT, RegimeTributarioInferido: a.RegimeTributarioInferido,
		CNPJDestinatario: a.CNPJDestinatario, RazaoSocialDestinatario: a.RazaoSocialDestinatario,
		UFDestinatario: a.UFDestinatario, IndIEDest: a.IndIEDest,
		ValorProdutos: a.ValorProdutos, ValorTotalNFe: a.ValorTotalNFe, ValorTotalICMSDestacado: a.ValorTotalICMSDestacado,
		RegimePISCOFINS: a.RegimePISCOFINS, BaseCalculoPISCOFINS: a.BaseCalculoPISCOFINS,
		AliquotaPIS: a.AliquotaPIS, AliquotaCOFINS: a.AliquotaCOFINS,
		ValorPISEstimado: a.ValorPISEstimado, ValorCOFINSEstimado: a.ValorCOFINSEstimado,
		ObservacoesPISCOFINS: a.ObservacoesPISCOFINS, ICMSPorItem: jsonColumn(a.ICMSPorItem),
		PotencialDIFAL: a.PotencialDIFAL, ObservacoesDIFAL: a.ObservacoesDIFAL,
		RecuperacaoCredito: jsonColumn(a.RecuperacaoCredito), DadosCompletos: jsonColumn(a.DadosCompletos),
		EmProcessamento: a.EmProcessamento, DataCriacao: a.DataCriacao, DataAtualizacao: a.DataAtualizacao,
	}
}

func toDomainAnalysis(m analiseFiscalModel) ports.FiscalAnalysis {
	return ports.FiscalAnalysis{
		ID: m.ID, ChaveAcesso: m.ChaveAcesso, NumeroNota: m.NumeroNota, DataEmissao: m.DataEmissao,
		CNPJEmitente: m.CNPJEmitente, RazaoSocialEmitente: m.RazaoSocialEmitente, UFEmitente: m.UFEmitente,
		CRT: m.CRT, RegimeTributarioInferido: m.RegimeTributarioInferido,
		CNPJDestinatario: m.CNPJDestinatario, RazaoSocialDestinatario: m.RazaoSocialDestinatario,
		UFDestinatario: m.UFDestinatario, IndIEDest: m.IndIEDest,
		ValorProdutos: m.ValorProdutos, ValorTotalNFe: m.ValorTotalNFe, ValorTotalICMSDestacado: m.ValorTotalICMSDestacado,
		RegimePISCOFINS: m.RegimePISCOFINS, BaseCalculoPISCOFINS: m.BaseCalculoPISCOFINS,
		AliquotaPIS: m.AliquotaPIS, AliquotaCOFINS: m.AliquotaCOFINS,
		ValorPISEstimado: m.ValorPISEstimado, ValorCOFINSEstimado: m.ValorCOFINSEstimado,
		ObservacoesPISCOFINS: m.ObservacoesPISCOFINS, ICMSPorItem: json.RawMessage(m.ICMSPorItem),
		PotencialDIFAL: m.PotencialDIFAL, ObservacoesDIFAL: m.ObservacoesDIFAL,
		RecuperacaoCredito: json.RawMessage(m.RecuperacaoCredito), DadosCompletos: json.RawMessage(m.DadosCompletos),
		EmProcessamento: m.EmProcessamento, DataCriacao: m.DataCriacao, DataAtualizacao: m.DataAtualizacao,
	}
}

func emptyAsNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// jsonColumn maps an absent section to SQL NULL.
func jsonColumn(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return []byte(raw)
}
