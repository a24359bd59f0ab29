package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/shopspring/decimal"
)

type DocumentSummary struct {
	ChaveAcesso         string
	NumeroNF            string
	DataEmissao         *time.Time
	RazaoSocialEmitente string
	CPFCNPJEmitente     string
	NomeDestinatario    string
	CNPJDestinatario    string
	ValorNotaFiscal     decimal.Decimal
	Classificacao       *string
	TotalItems          int
}

type Statistics struct {
	NotasFiscais       int64
	ItensNotaFiscal    int64
	TotalValue         decimal.Decimal
	LastUpload         *time.Time
	NotasClassificadas int64
}

// FiscalAnalysis is the flattened form of an analise_fiscal report. The raw
// JSON sections are kept verbatim.
type FiscalAnalysis struct {
	ID                       int64
	ChaveAcesso              string
	NumeroNota               string
	DataEmissao              *time.Time
	CNPJEmitente             string
	RazaoSocialEmitente      string
	UFEmitente               string
	CRT                      *int
	RegimeTributarioInferido string
	CNPJDestinatario         string
	RazaoSocialDestinatario  string
	UFDestinatario           string
	IndIEDest                string
	ValorProdutos            decimal.NullDecimal
	ValorTotalNFe            decimal.NullDecimal
	ValorTotalICMSDestacado  decimal.NullDecimal
	RegimePISCOFINS          string
	BaseCalculoPISCOFINS     decimal.NullDecimal
	AliquotaPIS              decimal.NullDecimal
	AliquotaCOFINS           decimal.NullDecimal
	ValorPISEstimado         decimal.NullDecimal
	ValorCOFINSEstimado      decimal.NullDecimal
	ObservacoesPISCOFINS     string
	ICMSPorItem              json.RawMessage
	PotencialDIFAL           *bool
	ObservacoesDIFAL         string
	RecuperacaoCredito       json.RawMessage
	DadosCompletos           json.RawMessage
	EmProcessamento          bool
	DataCriacao              time.Time
	DataAtualizacao          time.Time
}

// DocumentRepository persists a whole document atomically. Repeating the call
// with the same access key converges to the same rows.
type DocumentRepository interface {
	UpsertDocument(ctx context.Context, doc domain.Document) error
}

type ReadRepository interface {
	ListDocuments(ctx context.Context) ([]DocumentSummary, error)
	GetDocument(ctx context.Context, chaveAcesso string) (domain.Document, error)
	GetTaxTotals(ctx context.Context, chaveAcesso string) (*domain.DocumentTaxTotals, error)
	ListItemTaxes(ctx context.Context, chaveAcesso string) ([]domain.ItemTaxBreakdown, error)
	DocumentExists(ctx context.Context, chaveAcesso string) (bool, error)
	Statistics(ctx context.Context) (Statistics, error)
	Ping(ctx context.Context) error
}

type AdminRepository interface {
	// ClearAll deletes every row in dependency order and returns the tables
	// that existed and were emptied.
	ClearAll(ctx context.Context) ([]string, error)
	EnsureSchema(ctx context.Context) error
}

type FiscalAnalysisRepository interface {
	SaveAnalysis(ctx context.Context, analysis FiscalAnalysis, now time.Time) (FiscalAnalysis, error)
	// SetProcessing flips the processing flag, creating a minimal row when the
	// document exists but has no analysis yet.
	SetProcessing(ctx context.Context, chaveAcesso string, processing bool, now time.Time) (analysis FiscalAnalysis, created bool, err error)
	GetAnalysis(ctx context.Context, chaveAcesso string) (FiscalAnalysis, error)
}
