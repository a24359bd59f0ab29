package contracts

import (
	"errors"
	"testing"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKey = "35250512345678000199550010000000011234567890"

func TestParseEnvelopeValid(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"nota_fiscal": {"chave_acesso": "` + sampleKey + `", "numero_nf": "1", "data_emissao": "2025-05-19", "valor_nota_fiscal": 150.5, "classificacao": null},
		"items": [
			{"chave_acesso_nf": "` + sampleKey + `", "numero_produto": 1, "valor_total": "100.50"},
			{"numero_produto": 2, "valor_total": 50}
		],
		"impostos_items": [{"numero_item": 2, "icms_p_icms": 0.18}]
	}`)

	doc, err := ParseEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, sampleKey, doc.AccessKey())
	assert.False(t, doc.Classified())
	require.Len(t, doc.Items, 2)
	assert.Equal(t, sampleKey, doc.Items[1].ChaveAcessoNF)
	assert.Equal(t, "100.5", doc.Items[0].ValorTotal.String())
	assert.Equal(t, "2025-05-19", doc.NotaFiscal.DataEmissao.String())

	taxes, ok := doc.ItemTaxesFor(2)
	require.True(t, ok)
	assert.Equal(t, sampleKey, taxes.ChaveAcessoNF)
	assert.Equal(t, "0.18", taxes.ICMSPICMS.Decimal.String())
}

func TestParseEnvelopeRejectsMalformedPayloads(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":          `{not json`,
		"empty":             ``,
		"missing header":    `{"items": []}`,
		"missing items":     `{"nota_fiscal": {"chave_acesso": "` + sampleKey + `"}}`,
		"short key":         `{"nota_fiscal": {"chave_acesso": "123"}, "items": []}`,
		"item without seq":  `{"nota_fiscal": {"chave_acesso": "` + sampleKey + `"}, "items": [{"descricao_produto": "x"}]}`,
		"bad date":          `{"nota_fiscal": {"chave_acesso": "` + sampleKey + `", "data_emissao": "yesterday"}, "items": []}`,
		"items wrong type":  `{"nota_fiscal": {"chave_acesso": "` + sampleKey + `"}, "items": {}}`,
		"header wrong type": `{"nota_fiscal": [], "items": []}`,
	}
	for name, body := range cases {
		_, err := ParseEnvelope([]byte(body))
		require.Errorf(t, err, "case %s", name)
		assert.Truef(t, errors.Is(err, domain.ErrMalformedPayload), "case %s: expected malformed payload, got %v", name, err)
	}
}

func TestMarshalEnvelopeRoundTrip(t *testing.T) {
	t.Parallel()

	tag := "VENDA"
	doc := domain.Document{
		NotaFiscal: domain.FiscalDocument{ChaveAcesso: sampleKey, Classificacao: &tag},
		Items:      []domain.LineItem{{NumeroProduto: 1}},
	}
	raw, err := MarshalEnvelope(doc)
	require.NoError(t, err)

	parsed, err := ParseEnvelope(raw)
	require.NoError(t, err)
	require.True(t, parsed.Classified())
	assert.Equal(t, "VENDA", *parsed.NotaFiscal.Classificacao)

	_, err = MarshalEnvelope(domain.Document{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetryCountFromHeaders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, RetryCountFrom(nil))
	assert.Equal(t, 2, RetryCountFrom(map[string]any{HeaderRetryCount: int32(2)}))
	assert.Equal(t, 3, RetryCountFrom(map[string]any{HeaderRetryCount: int64(3)}))
	assert.Equal(t, 1, RetryCountFrom(map[string]any{HeaderRetryCount: "1"}))
	assert.Equal(t, 0, RetryCountFrom(map[string]any{HeaderRetryCount: []byte("x")}))
	assert.Equal(t, "boom", DeathReasonFrom(map[string]any{HeaderDeathReason: "boom"}))
	assert.Equal(t, "notas_fiscais_dlq", DLQName("notas_fiscais"))
}
