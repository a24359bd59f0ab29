package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/enzopoeta/i2a2-final/internal/adapters/extract"
	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
)

type documentLine struct {
	ChaveAcesso  string `json:"chave_acesso"`
	NumeroNF     string `json:"numero_nf"`
	Emitente     string `json:"razao_social_emitente"`
	Items        int    `json:"items"`
	ItemTaxes    int    `json:"impostos_items"`
	ValorNota    string `json:"valor_nota_fiscal"`
	HasTaxTotals bool   `json:"impostos_nota"`
}

// loadDocuments picks the extractor from the file extension.
func loadDocuments(path string) (ports.ExtractedBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ports.ExtractedBatch{}, fmt.Errorf("read %s: %w", path, err)
	}
	var extractor extract.Extractor
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return extractor.ExtractArchive(data)
	case ".xml":
		doc, err := extractor.ExtractXML(data)
		if err != nil {
			return ports.ExtractedBatch{}, err
		}
		return ports.ExtractedBatch{Documents: []domain.Document{doc}}, nil
	default:
		return ports.ExtractedBatch{}, fmt.Errorf("unsupported file %s: expected .zip or .xml", path)
	}
}

func extractCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract documents from a ZIP export or an NFe XML without publishing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := loadDocuments(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, doc := range batch.Documents {
				if full {
					if err := enc.Encode(doc); err != nil {
						return err
					}
					continue
				}
				if err := enc.Encode(documentLine{
					ChaveAcesso:  doc.AccessKey(),
					NumeroNF:     doc.NotaFiscal.NumeroNF,
					Emitente:     doc.NotaFiscal.RazaoSocialEmitente,
					Items:        len(doc.Items),
					ItemTaxes:    len(doc.ImpostosItems),
					ValorNota:    doc.NotaFiscal.ValorNotaFiscal.StringFixed(2),
					HasTaxTotals: doc.ImpostosNota != nil,
				}); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d documents, %d skipped rows\n", len(batch.Documents), batch.SkippedRows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "print complete documents instead of summaries")
	return cmd
}
