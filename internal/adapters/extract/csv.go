package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	headerColumns = 21
	itemColumns   = 27
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Batch is the outcome of parsing a CSV pair. Documents keep the order in
// which their headers appear.
type Batch struct {
	Documents      []domain.Document
	SkippedHeaders int
	SkippedItems   int
}

func (b Batch) Skipped() int {
	return b.SkippedHeaders + b.SkippedItems
}

// ParseCSV joins a header export with its items export. Rows that are short,
// unreadable or carry an invalid access key are skipped and counted; items
// pointing at an unknown header are skipped as well.
func ParseCSV(headerData, itemsData []byte) (Batch, error) {
	var batch Batch
	index := make(map[string]int)

	err := eachRecord(headerData, func(row []string) {
		if len(row) < headerColumns {
			batch.SkippedHeaders++
			return
		}
		key := domain.NormalizeAccessKey(row[0])
		if domain.ValidateAccessKey(key) != nil {
			batch.SkippedHeaders++
			return
		}
		doc := domain.Document{NotaFiscal: headerFromRow(key, row), Items: []domain.LineItem{}}
		if pos, seen := index[key]; seen {
			batch.Documents[pos] = doc
			return
		}
		index[key] = len(batch.Documents)
		batch.Documents = append(batch.Documents, doc)
	}, &batch.SkippedHeaders)
	if err != nil {
		return Batch{}, fmt.Errorf("read header csv: %w", err)
	}

	err = eachRecord(itemsData, func(row []string) {
		if len(row) < itemColumns {
			batch.SkippedItems++
			return
		}
		pos, ok := index[domain.NormalizeAccessKey(row[0])]
		if !ok {
			batch.SkippedItems++
			return
		}
		doc := &batch.Documents[pos]
		doc.Items = append(doc.Items, itemFromRow(doc.AccessKey(), row, len(doc.Items)+1))
	}, &batch.SkippedItems)
	if err != nil {
		return Batch{}, fmt.Errorf("read items csv: %w", err)
	}
	return batch, nil
}

// eachRecord walks data row by row, skipping the first line. Rows the CSV
// reader rejects are counted in skipped.
func eachRecord(data []byte, fn func([]string), skipped *int) error {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	first := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				if !first {
					*skipped++
				}
				first = false
				continue
			}
			return err
		}
		if first {
			first = false
			continue
		}
		fn(row)
	}
}

func headerFromRow(key string, row []string) domain.FiscalDocument {
	return domain.FiscalDocument{
		ChaveAcesso: key,
		HeaderSnapshot: domain.HeaderSnapshot{
			Modelo:                    row[1],
			SerieNF:                   row[2],
			NumeroNF:                  row[3],
			NaturezaOperacao:          row[4],
			DataEmissao:               domain.DateFrom(row[5]),
			CPFCNPJEmitente:           row[8],
			RazaoSocialEmitente:       row[9],
			InscricaoEstadualEmitente: row[10],
			UFEmitente:                row[11],
			MunicipioEmitente:         row[12],
			CNPJDestinatario:          row[13],
			NomeDestinatario:          row[14],
			UFDestinatario:            row[15],
			IndicadorIEDestinatario:   row[16],
			DestinoOperacao:           row[17],
			ConsumidorFinal:           row[18],
			PresencaComprador:         row[19],
		},
		EventoMaisRecente:         row[6],
		DataHoraEventoMaisRecente: domain.DateTimeFrom(row[7]),
		ValorNotaFiscal:           domain.ParseDecimal(row[20], decimal.Zero),
	}
}

// itemFromRow maps an items row. position is used when the row has no
// usable sequence number.
func itemFromRow(key string, row []string, position int) domain.LineItem {
	numero, ok := domain.ParseInt(row[18])
	if !ok || numero < 1 {
		numero = position
	}
	return domain.LineItem{
		ChaveAcessoNF: key,
		HeaderSnapshot: domain.HeaderSnapshot{
			Modelo:                    row[1],
			SerieNF:                   row[2],
			NumeroNF:                  row[3],
			NaturezaOperacao:          row[4],
			DataEmissao:               domain.DateFrom(row[5]),
			CPFCNPJEmitente:           row[6],
			RazaoSocialEmitente:       row[7],
			InscricaoEstadualEmitente: row[8],
			UFEmitente:                row[9],
			MunicipioEmitente:         row[10],
			CNPJDestinatario:          row[11],
			NomeDestinatario:          row[12],
			UFDestinatario:            row[13],
			IndicadorIEDestinatario:   row[14],
			DestinoOperacao:           row[15],
			ConsumidorFinal:           row[16],
			PresencaComprador:         row[17],
		},
		NumeroProduto:    numero,
		DescricaoProduto: row[19],
		CodigoNCMSH:      row[20],
		NCMSHTipoProduto: row[21],
		CFOP:             row[22],
		Quantidade:       domain.ParseDecimal(row[23], decimal.Zero),
		Unidade:          row[24],
		ValorUnitario:    domain.ParseDecimal(row[25], decimal.Zero),
		ValorTotal:       domain.ParseDecimal(row[26], decimal.Zero),
	}
}
