package application

import (
	"encoding/json"
	"time"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/shopspring/decimal"
)

type Config struct {
	ServiceName   string
	Version       string
	StatsCacheTTL time.Duration
	ICMSRate      decimal.Decimal
}

const statsCacheKey = "nfe:stats"

var defaultICMSRate = decimal.RequireFromString("0.18")

type ArchiveIngestResult struct {
	Message               string `json:"message"`
	NotasFiscaisProcessed int    `json:"notas_fiscais_processed"`
	PublishedToQueue      int    `json:"published_to_queue"`
	Failed                int    `json:"failed"`
	SkippedRows           int    `json:"skipped_rows"`
}

type XMLIngestResult struct {
	Message     string          `json:"message"`
	ChaveAcesso string          `json:"chave_acesso"`
	NumeroNF    string          `json:"numero_nf"`
	ItemsCount  int             `json:"items_count"`
	ValorTotal  decimal.Decimal `json:"valor_total"`
	Status      string          `json:"status"`
}

type InsertDocumentResult struct {
	Message       string          `json:"message"`
	ChaveAcesso   string          `json:"chave_acesso"`
	NumeroNF      string          `json:"numero_nf"`
	ItemsCount    int             `json:"items_count"`
	ValorTotal    decimal.Decimal `json:"valor_total"`
	Classificacao *string         `json:"classificacao"`
}

type DocumentListItem struct {
	ChaveAcesso         string          `json:"chave_acesso"`
	NumeroNF            string          `json:"numero_nf"`
	DataEmissao         *string         `json:"data_emissao"`
	RazaoSocialEmitente string          `json:"razao_social_emitente"`
	CPFCNPJEmitente     string          `json:"cpf_cnpj_emitente"`
	NomeDestinatario    string          `json:"nome_destinatario"`
	CNPJDestinatario    string          `json:"cnpj_destinatario"`
	ValorNotaFiscal     decimal.Decimal `json:"valor_nota_fiscal"`
	Classificacao       *string         `json:"classificacao"`
	TotalItems          int             `json:"total_items"`
}

type StatisticsView struct {
	NotasFiscais       int64           `json:"notas_fiscais"`
	ItensNotaFiscal    int64           `json:"itens_nota_fiscal"`
	TotalRecords       int64           `json:"total_records"`
	TotalValue         decimal.Decimal `json:"total_value"`
	LastUpload         *string         `json:"last_upload"`
	NotasClassificadas int64           `json:"notas_classificadas"`
}

type StatusView struct {
	Service  string         `json:"service"`
	Version  string         `json:"version"`
	Status   string         `json:"status"`
	Database StatisticsView `json:"database"`
}

// CompleteTaxesView groups both tax levels of one document.
type CompleteTaxesView struct {
	ChaveAcesso   string                    `json:"chave_acesso"`
	ImpostosNota  *domain.DocumentTaxTotals `json:"impostos_nota"`
	ImpostosItems []domain.ItemTaxBreakdown `json:"impostos_itens"`
}

type ClearResult struct {
	Message       string   `json:"message"`
	TablesCleared []string `json:"tables_cleared"`
}

type TaxRequestResult struct {
	Message             string          `json:"message"`
	ChaveAcesso         string          `json:"chave_acesso"`
	NumeroNF            string          `json:"numero_nf"`
	RazaoSocialEmitente string          `json:"razao_social_emitente"`
	NomeDestinatario    string          `json:"nome_destinatario"`
	ItemsCount          int             `json:"items_count"`
	ValorTotal          decimal.Decimal `json:"valor_total"`
	Classificacao       *string         `json:"classificacao"`
	WebhookStatus       string          `json:"webhook_status"`
	QueuePublished      bool            `json:"queue_published"`
}

// TaxCalculation is the flat ICMS estimate produced by the taxes stage.
type TaxCalculation struct {
	ChaveAcesso string            `json:"chave_acesso"`
	ICMSRate    decimal.Decimal   `json:"icms_rate"`
	ICMSValue   decimal.Decimal   `json:"icms_value"`
	TotalTaxes  decimal.Decimal   `json:"total_taxes"`
	Items       []ItemTaxEstimate `json:"items"`
}

type ItemTaxEstimate struct {
	NumeroProduto int             `json:"numero_produto"`
	ValorTotal    decimal.Decimal `json:"valor_total"`
	ICMSRate      decimal.Decimal `json:"icms_rate"`
	ICMSValue     decimal.Decimal `json:"icms_value"`
}

type SaveAnalysisResult struct {
	Success     bool   `json:"success"`
	ID          int64  `json:"id"`
	ChaveAcesso string `json:"chave_acesso"`
	Message     string `json:"message"`
}

type SetProcessingRequest struct {
	ChaveAcesso     string `json:"chave_acesso"`
	EmProcessamento *bool  `json:"em_processamento"`
}

type SetProcessingResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	Action          string `json:"action"`
	ID              int64  `json:"id"`
	ChaveAcesso     string `json:"chave_acesso"`
	EmProcessamento bool   `json:"em_processamento"`
}

type AnalysisView struct {
	ID                       int64            `json:"id"`
	ChaveAcesso              string           `json:"chave_acesso"`
	NumeroNota               string           `json:"numero_nota"`
	DataEmissao              *string          `json:"data_emissao"`
	CNPJEmitente             string           `json:"cnpj_emitente"`
	RazaoSocialEmitente      string           `json:"razao_social_emitente"`
	UFEmitente               string           `json:"uf_emitente"`
	CRT                      *int             `json:"crt"`
	RegimeTributarioInferido string           `json:"regime_tributario_inferido"`
	CNPJDestinatario         string           `json:"cnpj_destinatario"`
	RazaoSocialDestinatario  string           `json:"razao_social_destinatario"`
	UFDestinatario           string           `json:"uf_destinatario"`
	IndIEDest                string           `json:"ind_ie_dest"`
	ValorProdutos            *decimal.Decimal `json:"valor_produtos"`
	ValorTotalNFe            *decimal.Decimal `json:"valor_total_nfe"`
	ValorTotalICMSDestacado  *decimal.Decimal `json:"valor_total_icms_destacado"`
	RegimePISCOFINS          string           `json:"regime_pis_cofins"`
	BaseCalculoPISCOFINS     *decimal.Decimal `json:"base_calculo_pis_cofins"`
	AliquotaPIS              *decimal.Decimal `json:"aliquota_pis"`
	AliquotaCOFINS           *decimal.Decimal `json:"aliquota_cofins"`
	ValorPISEstimado         *decimal.Decimal `json:"valor_pis_estimado"`
	ValorCOFINSEstimado      *decimal.Decimal `json:"valor_cofins_estimado"`
	ObservacoesPISCOFINS     string           `json:"observacoes_pis_cofins"`
	ICMSPorItem              json.RawMessage  `json:"icms_por_item"`
	PotencialDIFAL           *bool            `json:"potencial_difal"`
	ObservacoesDIFAL         string           `json:"observacoes_difal"`
	RecuperacaoCredito       json.RawMessage  `json:"recuperacao_credito"`
	DadosCompletos           json.RawMessage  `json:"dados_completos"`
	EmProcessamento          bool             `json:"em_processamento"`
	DataCriacao              string           `json:"data_criacao"`
	DataAtualizacao          string           `json:"data_atualizacao"`
}

type AnalysisLookup struct {
	Found   bool          `json:"found"`
	Message string        `json:"message,omitempty"`
	Analise *AnalysisView `json:"analise,omitempty"`
}
