package domain

import (
	"github.com/shopspring/decimal"
)

// HeaderSnapshot holds the header fields the government export repeats on
// every line item.
type HeaderSnapshot struct {
	Modelo                    string `json:"modelo"`
	SerieNF                   string `json:"serie_nf"`
	NumeroNF                  string `json:"numero_nf"`
	NaturezaOperacao          string `json:"natureza_operacao"`
	DataEmissao               Date   `json:"data_emissao"`
	CPFCNPJEmitente           string `json:"cpf_cnpj_emitente"`
	RazaoSocialEmitente       string `json:"razao_social_emitente"`
	InscricaoEstadualEmitente string `json:"inscricao_estadual_emitente"`
	UFEmitente                string `json:"uf_emitente"`
	MunicipioEmitente         string `json:"municipio_emitente"`
	CNPJDestinatario          string `json:"cnpj_destinatario"`
	NomeDestinatario          string `json:"nome_destinatario"`
	UFDestinatario            string `json:"uf_destinatario"`
	IndicadorIEDestinatario   string `json:"indicador_ie_destinatario"`
	DestinoOperacao           string `json:"destino_operacao"`
	ConsumidorFinal           string `json:"consumidor_final"`
	PresencaComprador         string `json:"presenca_comprador"`
}

// FiscalDocument is one NFe header. ChaveAcesso is assigned by the issuing
// system and never changes.
type FiscalDocument struct {
	ChaveAcesso string `json:"chave_acesso"`
	HeaderSnapshot
	EventoMaisRecente         string          `json:"evento_mais_recente"`
	DataHoraEventoMaisRecente DateTime        `json:"data_hora_evento_mais_recente"`
	ValorNotaFiscal           decimal.Decimal `json:"valor_nota_fiscal"`
	Classificacao             *string         `json:"classificacao"`
}

type LineItem struct {
	ChaveAcessoNF string `json:"chave_acesso_nf"`
	HeaderSnapshot
	NumeroProduto    int             `json:"numero_produto"`
	DescricaoProduto string          `json:"descricao_produto"`
	CodigoNCMSH      string          `json:"codigo_ncm_sh"`
	NCMSHTipoProduto string          `json:"ncm_sh_tipo_produto"`
	CFOP             string          `json:"cfop"`
	Quantidade       decimal.Decimal `json:"quantidade"`
	Unidade          string          `json:"unidade"`
	ValorUnitario    decimal.Decimal `json:"valor_unitario"`
	ValorTotal       decimal.Decimal `json:"valor_total"`
}

// DocumentTaxTotals mirrors total/ICMSTot.
type DocumentTaxTotals struct {
	ChaveAcessoNF string              `json:"chave_acesso_nf"`
	VBCICMS       decimal.NullDecimal `json:"v_bc_icms"`
	VICMS         decimal.NullDecimal `json:"v_icms"`
	VICMSDeson    decimal.NullDecimal `json:"v_icms_deson"`
	VFCPUFDest    decimal.NullDecimal `json:"v_fcp_uf_dest"`
	VICMSUFDest   decimal.NullDecimal `json:"v_icms_uf_dest"`
	VICMSUFRemet  decimal.NullDecimal `json:"v_icms_uf_remet"`
	VBCST         decimal.NullDecimal `json:"v_bc_st"`
	VST           decimal.NullDecimal `json:"v_st"`
	VIPI          decimal.NullDecimal `json:"v_ipi"`
	VIPIDevol     decimal.NullDecimal `json:"v_ipi_devol"`
	VPIS          decimal.NullDecimal `json:"v_pis"`
	VCOFINS       decimal.NullDecimal `json:"v_cofins"`
	VII           decimal.NullDecimal `json:"v_ii"`
	VTotTrib      decimal.NullDecimal `json:"v_tot_trib"`
	VProd         decimal.NullDecimal `json:"v_prod"`
	VFrete        decimal.NullDecimal `json:"v_frete"`
	VSeg          decimal.NullDecimal `json:"v_seg"`
	VDesc         decimal.NullDecimal `json:"v_desc"`
	VOutro        decimal.NullDecimal `json:"v_outro"`
	VNF           decimal.NullDecimal `json:"v_nf"`
}

// ItemTaxBreakdown is the per-line tax detail. NumeroItem matches the
// NumeroProduto of the line it belongs to. Rates are fractions (0.18, not 18).
type ItemTaxBreakdown struct {
	ChaveAcessoNF string              `json:"chave_acesso_nf"`
	NumeroItem    int                 `json:"numero_item"`
	VTotTrib      decimal.NullDecimal `json:"v_tot_trib"`

	ICMSOrig  *int                `json:"icms_orig"`
	ICMSCST   string              `json:"icms_cst"`
	ICMSModBC *int                `json:"icms_mod_bc"`
	ICMSVBC   decimal.NullDecimal `json:"icms_v_bc"`
	ICMSPICMS decimal.NullDecimal `json:"icms_p_icms"`
	ICMSVICMS decimal.NullDecimal `json:"icms_v_icms"`

	ICMSUFVBCUFDest      decimal.NullDecimal `json:"icms_uf_v_bc_uf_dest"`
	ICMSUFVBCFCPUFDest   decimal.NullDecimal `json:"icms_uf_v_bc_fcp_uf_dest"`
	ICMSUFPFCPUFDest     decimal.NullDecimal `json:"icms_uf_p_fcp_uf_dest"`
	ICMSUFPICMSUFDest    decimal.NullDecimal `json:"icms_uf_p_icms_uf_dest"`
	ICMSUFPICMSInter     decimal.NullDecimal `json:"icms_uf_p_icms_inter"`
	ICMSUFPICMSInterPart decimal.NullDecimal `json:"icms_uf_p_icms_inter_part"`
	ICMSUFVFCPUFDest     decimal.NullDecimal `json:"icms_uf_v_fcp_uf_dest"`
	ICMSUFVICMSUFDest    decimal.NullDecimal `json:"icms_uf_v_icms_uf_dest"`
	ICMSUFVICMSUFRemet   decimal.NullDecimal `json:"icms_uf_v_icms_uf_remet"`

	IPICEnq string              `json:"ipi_c_enq"`
	IPICST  string              `json:"ipi_cst"`
	IPIVBC  decimal.NullDecimal `json:"ipi_v_bc"`
	IPIPIPI decimal.NullDecimal `json:"ipi_p_ipi"`
	IPIVIPI decimal.NullDecimal `json:"ipi_v_ipi"`

	PISCST  string              `json:"pis_cst"`
	PISVBC  decimal.NullDecimal `json:"pis_v_bc"`
	PISPPIS decimal.NullDecimal `json:"pis_p_pis"`
	PISVPIS decimal.NullDecimal `json:"pis_v_pis"`

	COFINSCST     string              `json:"cofins_cst"`
	COFINSVBC     decimal.NullDecimal `json:"cofins_v_bc"`
	COFINSPCOFINS decimal.NullDecimal `json:"cofins_p_cofins"`
	COFINSVCOFINS decimal.NullDecimal `json:"cofins_v_cofins"`
}

// Document is the unit of transfer between stages: a header with its items
// and the optional tax sub-records.
type Document struct {
	NotaFiscal    FiscalDocument     `json:"nota_fiscal"`
	Items         []LineItem         `json:"items"`
	ImpostosNota  *DocumentTaxTotals `json:"impostos_nota,omitempty"`
	ImpostosItems []ItemTaxBreakdown `json:"impostos_items,omitempty"`
}

func (d Document) AccessKey() string {
	return d.NotaFiscal.ChaveAcesso
}

func (d Document) Classified() bool {
	return d.NotaFiscal.Classificacao != nil && *d.NotaFiscal.Classificacao != ""
}

// ItemTaxesFor returns the tax breakdown of the line with the given sequence number.
func (d Document) ItemTaxesFor(numero int) (ItemTaxBreakdown, bool) {
	for _, t := range d.ImpostosItems {
		if t.NumeroItem == numero {
			return t, true
		}
	}
	return ItemTaxBreakdown{}, false
}
