package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	keyA = "35250512345678000199550010000000011234567890"
	keyB = "35250512345678000199550010000000021234567891"
)

func headerRow(key, numero, valor string) string {
	cols := []string{
		key, "55 - NF-E", "1", numero, "VENDA", "2025-05-19 10:00:00", "AUTORIZADA", "19/05/2025 10:05:00",
		"12345678000199", "EMITENTE LTDA", "123", "SP", "SAO PAULO", "99887766000155", "DESTINO SA", "RJ",
		"1 - Contribuinte ICMS", "2 - Interestadual", "0 - Não", "1 - Operação presencial", valor,
	}
	return quoted(cols)
}

func itemRow(key, numero, valor string) string {
	cols := []string{
		key, "55", "1", "1", "VENDA", "2025-05-19", "12345678000199", "EMITENTE LTDA", "123", "SP", "SAO PAULO",
		"99887766000155", "DESTINO SA", "RJ", "1", "2", "0", "1", numero, "PRODUTO " + numero, "84713012",
		"COMPUTADORES", "6102", "2,000", "UN", "50,00", valor,
	}
	return quoted(cols)
}

func quoted(cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = `"` + c + `"`
	}
	return strings.Join(out, ",")
}

func csvFile(rows ...string) []byte {
	return []byte("header\n" + strings.Join(rows, "\n") + "\n")
}

func TestParseCSVJoinsItemsToHeaders(t *testing.T) {
	t.Parallel()

	headers := csvFile(headerRow(keyA, "1", "100.00"), headerRow(keyB, "2", "1.234,56"))
	items := csvFile(itemRow(keyA, "1", "60,00"), itemRow(keyA, "2", "40,00"), itemRow(keyB, "1", "1234,56"))

	batch, err := ParseCSV(headers, items)
	require.NoError(t, err)
	require.Len(t, batch.Documents, 2)
	assert.Equal(t, 0, batch.Skipped())

	first := batch.Documents[0]
	assert.Equal(t, keyA, first.AccessKey())
	assert.Equal(t, "2025-05-19", first.NotaFiscal.DataEmissao.String())
	assert.Equal(t, "AUTORIZADA", first.NotaFiscal.EventoMaisRecente)
	assert.False(t, first.NotaFiscal.DataHoraEventoMaisRecente.IsZero())
	require.Len(t, first.Items, 2)
	assert.Equal(t, 2, first.Items[1].NumeroProduto)
	assert.Equal(t, "40", first.Items[1].ValorTotal.String())
	assert.Equal(t, "2", first.Items[0].Quantidade.String())

	assert.Equal(t, "1234.56", batch.Documents[1].NotaFiscal.ValorNotaFiscal.String())
}

func TestParseCSVSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	headers := csvFile(
		headerRow(keyA, "1", "10"),
		"short,row",
		headerRow("", "3", "10"),
		headerRow(keyB, "2", "abc"),
	)
	items := csvFile(
		itemRow(keyA, "", "5"),
		itemRow(keyA, "x", "5"),
		itemRow("35250599999999999999550010000000011234567890", "1", "5"),
		"too,short",
	)

	batch, err := ParseCSV(append(append([]byte{}, utf8BOM...), headers...), items)
	require.NoError(t, err)
	require.Len(t, batch.Documents, 2)
	assert.Equal(t, 2, batch.SkippedHeaders)
	assert.Equal(t, 2, batch.SkippedItems)

	assert.True(t, batch.Documents[1].NotaFiscal.ValorNotaFiscal.IsZero())
	require.Len(t, batch.Documents[0].Items, 2)
	assert.Equal(t, 1, batch.Documents[0].Items[0].NumeroProduto)
	assert.Equal(t, 2, batch.Documents[0].Items[1].NumeroProduto)
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractArchive(t *testing.T) {
	t.Parallel()

	data := zipOf(t, map[string]string{
		"202505_NFs_Cabecalho.csv": string(csvFile(headerRow(keyA, "1", "10"))),
		"202505_NFs_Itens.csv":     string(csvFile(itemRow(keyA, "1", "10"))),
	})
	batch, err := ExtractArchive(data)
	require.NoError(t, err)
	require.Len(t, batch.Documents, 1)
	assert.Len(t, batch.Documents[0].Items, 1)
}

func TestOpenArchiveRejectsBadLayouts(t *testing.T) {
	t.Parallel()

	header := string(csvFile(headerRow(keyA, "1", "10")))
	items := string(csvFile(itemRow(keyA, "1", "10")))
	cases := map[string][]byte{
		"not a zip":      []byte("plain text"),
		"single file":    zipOf(t, map[string]string{"a_NFs_Cabecalho.csv": header}),
		"three files":    zipOf(t, map[string]string{"a_NFs_Cabecalho.csv": header, "a_NFs_Itens.csv": items, "readme.txt": "x"}),
		"path traversal": zipOf(t, map[string]string{"../a_NFs_Cabecalho.csv": header, "a_NFs_Itens.csv": items}),
		"two headers":    zipOf(t, map[string]string{"a_NFs_Cabecalho.csv": header, "b_NFs_Cabecalho.csv": header}),
		"missing items":  zipOf(t, map[string]string{"a_NFs_Cabecalho.csv": header, "other.csv": items}),
		"empty items":    zipOf(t, map[string]string{"a_NFs_Cabecalho.csv": header, "a_NFs_Itens.csv": ""}),
	}
	for name, data := range cases {
		_, err := OpenArchive(data)
		require.Errorf(t, err, "case %s", name)
		assert.ErrorIsf(t, err, domain.ErrInvalidInput, "case %s", name)
	}
}

func TestOpenArchiveCapsDecompressedEntries(t *testing.T) {
	t.Parallel()

	header := string(csvFile(headerRow(keyA, "1", "10")))
	var items strings.Builder
	for items.Len() < 8<<10 {
		items.WriteString(itemRow(keyA, "1", "10") + "\n")
	}
	data := zipOf(t, map[string]string{"a_NFs_Cabecalho.csv": header, "a_NFs_Itens.csv": items.String()})

	_, err := openArchive(data, 4<<10)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "a_NFs_Itens.csv exceeds")

	files, err := openArchive(data, 64<<10)
	require.NoError(t, err)
	assert.Equal(t, items.String(), string(files.Items))
}

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe` + keyA + `" versao="4.00">
      <ide>
        <mod>55</mod><serie>1</serie><nNF>123</nNF><natOp>VENDA DE MERCADORIA</natOp>
        <dhEmi>2025-05-19T08:30:00-03:00</dhEmi><idDest>2</idDest><indFinal>1</indFinal><indPres>9</indPres>
      </ide>
      <emit>
        <CNPJ>12345678000199</CNPJ><xNome>EMITENTE LTDA</xNome><IE>123456</IE>
        <enderEmit><xMun>SAO PAULO</xMun><UF>SP</UF></enderEmit>
      </emit>
      <dest>
        <CNPJ>99887766000155</CNPJ><xNome>DESTINO SA</xNome><indIEDest>9</indIEDest>
        <enderDest><UF>RJ</UF></enderDest>
      </dest>
      <det nItem="1">
        <prod><xProd>NOTEBOOK</xProd><NCM>84713012</NCM><CFOP>6102</CFOP><qCom>2.0000</qCom><uCom>UN</uCom><vUnCom>50.00</vUnCom><vProd>100.00</vProd></prod>
        <imposto>
          <vTotTrib>30.00</vTotTrib>
          <ICMS><ICMS00><orig>0</orig><CST>00</CST><modBC>3</modBC><vBC>100.00</vBC><pICMS>18.0000</pICMS><vICMS>18.00</vICMS></ICMS00></ICMS>
          <IPI><cEnq>999</cEnq><IPITrib><CST>50</CST><vBC>100.00</vBC><pIPI>5.0000</pIPI><vIPI>5.00</vIPI></IPITrib></IPI>
          <PIS><PISAliq><CST>01</CST><vBC>100.00</vBC><pPIS>1.6500</pPIS><vPIS>1.65</vPIS></PISAliq></PIS>
          <COFINS><COFINSAliq><CST>01</CST><vBC>100.00</vBC><pCOFINS>7.6000</pCOFINS><vCOFINS>7.60</vCOFINS></COFINSAliq></COFINS>
        </imposto>
      </det>
      <det>
        <prod><xProd>MOUSE</xProd><NCM>84716053</NCM><CFOP>6102</CFOP><qCom>1</qCom><uCom>UN</uCom><vUnCom>20.00</vUnCom><vProd>20.00</vProd></prod>
        <imposto>
          <ICMS><ICMSSN102><orig>0</orig><CSOSN>102</CSOSN></ICMSSN102></ICMS>
        </imposto>
      </det>
      <total><ICMSTot><vBC>100.00</vBC><vICMS>18.00</vICMS><vProd>120.00</vProd><vNF>125.00</vNF></ICMSTot></total>
    </infNFe>
  </NFe>
</nfeProc>`

func TestParseXML(t *testing.T) {
	t.Parallel()

	doc, err := ParseXML([]byte(sampleXML))
	require.NoError(t, err)

	nf := doc.NotaFiscal
	assert.Equal(t, keyA, nf.ChaveAcesso)
	assert.Equal(t, "2025-05-19", nf.DataEmissao.String())
	assert.Equal(t, "55 - NF-E EMITIDA EM SUBSTITUIÇÃO AO MODELO 1 OU 1A", nf.Modelo)
	assert.Equal(t, "2 - Interestadual", nf.DestinoOperacao)
	assert.Equal(t, "9 - Não Contribuinte", nf.IndicadorIEDestinatario)
	assert.Equal(t, "9 - Operação não presencial, outros", nf.PresencaComprador)
	assert.Equal(t, "12345678000199", nf.CPFCNPJEmitente)
	assert.Equal(t, "RJ", nf.UFDestinatario)
	assert.Equal(t, "125", nf.ValorNotaFiscal.String())
	assert.Nil(t, nf.Classificacao)

	require.Len(t, doc.Items, 2)
	assert.Equal(t, 1, doc.Items[0].NumeroProduto)
	assert.Equal(t, 2, doc.Items[1].NumeroProduto, "missing nItem falls back to position")
	assert.Equal(t, "SP", doc.Items[0].UFEmitente)

	require.Len(t, doc.ImpostosItems, 2)
	first := doc.ImpostosItems[0]
	assert.Equal(t, "0.18", first.ICMSPICMS.Decimal.String())
	assert.Equal(t, "00", first.ICMSCST)
	require.NotNil(t, first.ICMSModBC)
	assert.Equal(t, 3, *first.ICMSModBC)
	assert.Equal(t, "999", first.IPICEnq)
	assert.Equal(t, "0.05", first.IPIPIPI.Decimal.String())
	assert.Equal(t, "0.0165", first.PISPPIS.Decimal.String())
	assert.Equal(t, "0.076", first.COFINSPCOFINS.Decimal.String())
	assert.Equal(t, "102", doc.ImpostosItems[1].ICMSCST)
	assert.False(t, doc.ImpostosItems[1].ICMSPICMS.Valid)

	require.NotNil(t, doc.ImpostosNota)
	assert.Equal(t, "18", doc.ImpostosNota.VICMS.Decimal.String())
	assert.False(t, doc.ImpostosNota.VFrete.Valid)
}

func TestParseXMLRejectsUnidentifiableDocuments(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not xml":         `<nfeProc><NFe>`,
		"no infNFe":       `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><other/></NFe>`,
		"wrong namespace": `<NFe xmlns="urn:other"><infNFe Id="NFe` + keyA + `"/></NFe>`,
		"missing key":     `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe versao="4.00"/></NFe>`,
		"short key":       `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe Id="NFe123"/></NFe>`,
	}
	for name, body := range cases {
		_, err := ParseXML([]byte(body))
		assert.ErrorIsf(t, err, domain.ErrInvalidInput, "case %s", name)
	}
}
