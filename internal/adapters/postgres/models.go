package postgres

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotColumns are the header columns repeated on itensnotafiscal.
type SnapshotColumns struct {
	Modelo                    string     `gorm:"column:modelo"`
	SerieNF                   string     `gorm:"column:serie_nf"`
	NumeroNF                  string     `gorm:"column:numero_nf"`
	NaturezaOperacao          string     `gorm:"column:natureza_operacao"`
	DataEmissao               *time.Time `gorm:"column:data_emissao;type:date"`
	CPFCNPJEmitente           string     `gorm:"column:cpf_cnpj_emitente"`
	RazaoSocialEmitente       string     `gorm:"column:razao_social_emitente"`
	InscricaoEstadualEmitente string     `gorm:"column:inscricao_estadual_emitente"`
	UFEmitente                string     `gorm:"column:uf_emitente"`
	MunicipioEmitente         string     `gorm:"column:municipio_emitente"`
	CNPJDestinatario          string     `gorm:"column:cnpj_destinatario"`
	NomeDestinatario          string     `gorm:"column:nome_destinatario"`
	UFDestinatario            string     `gorm:"column:uf_destinatario"`
	IndicadorIEDestinatario   string     `gorm:"column:indicador_ie_destinatario"`
	DestinoOperacao           string     `gorm:"column:destino_operacao"`
	ConsumidorFinal           string     `gorm:"column:consumidor_final"`
	PresencaComprador         string     `gorm:"column:presenca_comprador"`
}

type notaFiscalModel struct {
	ChaveAcesso               string `gorm:"column:chave_acesso;primaryKey"`
	SnapshotColumns           `gorm:"embedded"`
	EventoMaisRecente         string          `gorm:"column:evento_mais_recente"`
	DataHoraEventoMaisRecente *time.Time      `gorm:"column:data_hora_evento_mais_recente"`
	ValorNotaFiscal           decimal.Decimal `gorm:"column:valor_nota_fiscal;type:decimal(15,2)"`
	Classificacao             *string         `gorm:"column:classificacao"`
}

func (notaFiscalModel) TableName() string { return "notasfiscais" }

type itemNotaFiscalModel struct {
	IDItemNF         int64  `gorm:"column:id_item_nf;primaryKey;autoIncrement"`
	ChaveAcessoNF    string `gorm:"column:chave_acesso_nf"`
	SnapshotColumns  `gorm:"embedded"`
	NumeroProduto    int             `gorm:"column:numero_produto"`
	DescricaoProduto string          `gorm:"column:descricao_produto"`
	CodigoNCMSH      string          `gorm:"column:codigo_ncm_sh"`
	NCMSHTipoProduto string          `gorm:"column:ncm_sh_tipo_produto"`
	CFOP             string          `gorm:"column:cfop"`
	Quantidade       decimal.Decimal `gorm:"column:quantidade;type:decimal(15,4)"`
	Unidade          string          `gorm:"column:unidade"`
	ValorUnitario    decimal.Decimal `gorm:"column:valor_unitario;type:decimal(15,4)"`
	ValorTotal       decimal.Decimal `gorm:"column:valor_total;type:decimal(15,2)"`
}

func (itemNotaFiscalModel) TableName() string { return "itensnotafiscal" }

type impostosNotaFiscalModel struct {
	IDImpostosNF  int64               `gorm:"column:id_impostos_nf;primaryKey;autoIncrement"`
	ChaveAcessoNF string              `gorm:"column:chave_acesso_nf"`
	VBCICMS       decimal.NullDecimal `gorm:"column:v_bc_icms"`
	VICMS         decimal.NullDecimal `gorm:"column:v_icms"`
	VICMSDeson    decimal.NullDecimal `gorm:"column:v_icms_deson"`
	VFCPUFDest    decimal.NullDecimal `gorm:"column:v_fcp_uf_dest"`
	VICMSUFDest   decimal.NullDecimal `gorm:"column:v_icms_uf_dest"`
	VICMSUFRemet  decimal.NullDecimal `gorm:"column:v_icms_uf_remet"`
	VBCST         decimal.NullDecimal `gorm:"column:v_bc_st"`
	VST           decimal.NullDecimal `gorm:"column:v_st"`
	VIPI          decimal.NullDecimal `gorm:"column:v_ipi"`
	VIPIDevol     decimal.NullDecimal `gorm:"column:v_ipi_devol"`
	VPIS          decimal.NullDecimal `gorm:"column:v_pis"`
	VCOFINS       decimal.NullDecimal `gorm:"column:v_cofins"`
	VII           decimal.NullDecimal `gorm:"column:v_ii"`
	VTotTrib      decimal.NullDecimal `gorm:"column:v_tot_trib"`
	VProd         decimal.NullDecimal `gorm:"column:v_prod"`
	VFrete        decimal.NullDecimal `gorm:"column:v_frete"`
	VSeg          decimal.NullDecimal `gorm:"column:v_seg"`
	VDesc         decimal.NullDecimal `gorm:"column:v_desc"`
	VOutro        decimal.NullDecimal `gorm:"column:v_outro"`
	VNF           decimal.NullDecimal `gorm:"column:v_nf"`
}

func (impostosNotaFiscalModel) TableName() string { return "impostos_nota_fiscal" }

type impostosItemModel struct {
	IDImpostosItem int64               `gorm:"column:id_impostos_item;primaryKey;autoIncrement"`
	IDItemNF       int64               `gorm:"column:id_item_nf"`
	ChaveAcessoNF  string              `gorm:"column:chave_acesso_nf"`
	NumeroItem     int                 `gorm:"column:numero_item"`
	VTotTrib       decimal.NullDecimal `gorm:"column:v_tot_trib"`

	ICMSOrig  *int                `gorm:"column:icms_orig"`
	ICMSCST   string              `gorm:"column:icms_cst"`
	ICMSModBC *int                `gorm:"column:icms_mod_bc"`
	ICMSVBC   decimal.NullDecimal `gorm:"column:icms_v_bc"`
	ICMSPICMS decimal.NullDecimal `gorm:"column:icms_p_icms"`
	ICMSVICMS decimal.NullDecimal `gorm:"column:icms_v_icms"`

	ICMSUFVBCUFDest      decimal.NullDecimal `gorm:"column:icms_uf_v_bc_uf_dest"`
	ICMSUFVBCFCPUFDest   decimal.NullDecimal `gorm:"column:icms_uf_v_bc_fcp_uf_dest"`
	ICMSUFPFCPUFDest     decimal.NullDecimal `gorm:"column:icms_uf_p_fcp_uf_dest"`
	ICMSUFPICMSUFDest    decimal.NullDecimal `gorm:"column:icms_uf_p_icms_uf_dest"`
	ICMSUFPICMSInter     decimal.NullDecimal `gorm:"column:icms_uf_p_icms_inter"`
	ICMSUFPICMSInterPart decimal.NullDecimal `gorm:"column:icms_uf_p_icms_inter_part"`
	ICMSUFVFCPUFDest     decimal.NullDecimal `gorm:"column:icms_uf_v_fcp_uf_dest"`
	ICMSUFVICMSUFDest    decimal.NullDecimal `gorm:"column:icms_uf_v_icms_uf_dest"`
	ICMSUFVICMSUFRemet   decimal.NullDecimal `gorm:"column:icms_uf_v_icms_uf_remet"`

	IPICEnq string              `gorm:"column:ipi_c_enq"`
	IPICST  string              `gorm:"column:ipi_cst"`
	IPIVBC  decimal.NullDecimal `gorm:"column:ipi_v_bc"`
	IPIPIPI decimal.NullDecimal `gorm:"column:ipi_p_ipi"`
	IPIVIPI decimal.NullDecimal `gorm:"column:ipi_v_ipi"`

	PISCST  string              `gorm:"column:pis_cst"`
	PISVBC  decimal.NullDecimal `gorm:"column:pis_v_bc"`
	PISPPIS decimal.NullDecimal `gorm:"column:pis_p_pis"`
	PISVPIS decimal.NullDecimal `gorm:"column:pis_v_pis"`

	COFINSCST     string              `gorm:"column:cofins_cst"`
	COFINSVBC     decimal.NullDecimal `gorm:"column:cofins_v_bc"`
	COFINSPCOFINS decimal.NullDecimal `gorm:"column:cofins_p_cofins"`
	COFINSVCOFINS decimal.NullDecimal `gorm:"column:cofins_v_cofins"`
}

func (impostosItemModel) TableName() string { return "impostos_item" }

type analiseFiscalModel struct {
	ID                       int64               `gorm:"column:id;primaryKey;autoIncrement"`
	ChaveAcesso              string              `gorm:"column:chave_acesso"`
	NumeroNota               string              `gorm:"column:numero_nota"`
	DataEmissao              *time.Time          `gorm:"column:data_emissao;type:date"`
	CNPJEmitente             string              `gorm:"column:cnpj_emitente"`
	RazaoSocialEmitente      string              `gorm:"column:razao_social_emitente"`
	UFEmitente               string              `gorm:"column:uf_emitente"`
	CRT                      *int                `gorm:"column:crt"`
	RegimeTributarioInferido string              `gorm:"column:regime_tributario_inferido"`
	CNPJDestinatario         string              `gorm:"column:cnpj_destinatario"`
	RazaoSocialDestinatario  string              `gorm:"column:razao_social_destinatario"`
	UFDestinatario           string              `gorm:"column:uf_destinatario"`
	IndIEDest                string              `gorm:"column:ind_ie_dest"`
	ValorProdutos            decimal.NullDecimal `gorm:"column:valor_produtos"`
	ValorTotalNFe            decimal.NullDecimal `gorm:"column:valor_total_nfe"`
	ValorTotalICMSDestacado  decimal.NullDecimal `gorm:"column:valor_total_icms_destacado"`
	RegimePISCOFINS          string              `gorm:"column:regime_pis_cofins"`
	BaseCalculoPISCOFINS     decimal.NullDecimal `gorm:"column:base_calculo_pis_cofins"`
	AliquotaPIS              decimal.NullDecimal `gorm:"column:aliquota_pis"`
	AliquotaCOFINS           decimal.NullDecimal `gorm:"column:aliquota_cofins"`
	ValorPISEstimado         decimal.NullDecimal `gorm:"column:valor_pis_estimado"`
	ValorCOFINSEstimado      decimal.NullDecimal `gorm:"column:valor_cofins_estimado"`
	ObservacoesPISCOFINS     string              `gorm:"column:observacoes_pis_cofins"`
	ICMSPorItem              []byte              `gorm:"column:icms_por_item;type:jsonb"`
	PotencialDIFAL           *bool               `gorm:"column:potencial_difal"`
	ObservacoesDIFAL         string              `gorm:"column:observacoes_difal"`
	RecuperacaoCredito       []byte              `gorm:"column:recuperacao_credito;type:jsonb"`
	DadosCompletos           []byte              `gorm:"column:dados_completos;type:jsonb"`
	EmProcessamento          bool                `gorm:"column:em_processamento"`
	DataCriacao              time.Time           `gorm:"column:data_criacao"`
	DataAtualizacao          time.Time           `gorm:"column:data_atualizacao"`
}

func (analiseFiscalModel) TableName() string { return "analise_fiscal" }

// documentSummaryRow is the projection behind the document listing.
type documentSummaryRow struct {
	ChaveAcesso         string          `gorm:"column:chave_acesso"`
	NumeroNF            string          `gorm:"column:numero_nf"`
	DataEmissao         *time.Time      `gorm:"column:data_emissao"`
	RazaoSocialEmitente string          `gorm:"column:razao_social_emitente"`
	CPFCNPJEmitente     string          `gorm:"column:cpf_cnpj_emitente"`
	NomeDestinatario    string          `gorm:"column:nome_destinatario"`
	CNPJDestinatario    string          `gorm:"column:cnpj_destinatario"`
	ValorNotaFiscal     decimal.Decimal `gorm:"column:valor_nota_fiscal"`
	Classificacao       *string         `gorm:"column:classificacao"`
	TotalItems          int             `gorm:"column:total_items"`
}

type statisticsRow struct {
	NotasFiscais       int64           `gorm:"column:notas_fiscais"`
	ItensNotaFiscal    int64           `gorm:"column:itens_nota_fiscal"`
	TotalValue         decimal.Decimal `gorm:"column:total_value"`
	LastUpload         *time.Time      `gorm:"column:last_upload"`
	NotasClassificadas int64           `gorm:"column:notas_classificadas"`
}
