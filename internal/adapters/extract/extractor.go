package extract

import (
	"github.com/enzopoeta/i2a2-final/internal/domain"
	"github.com/enzopoeta/i2a2-final/internal/ports"
)

// Extractor exposes the package functions behind ports.Extractor.
type Extractor struct{}

var _ ports.Extractor = Extractor{}

func (Extractor) ExtractArchive(data []byte) (ports.ExtractedBatch, error) {
	batch, err := ExtractArchive(data)
	if err != nil {
		return ports.ExtractedBatch{}, err
	}
	return ports.ExtractedBatch{Documents: batch.Documents, SkippedRows: batch.Skipped()}, nil
}

func (Extractor) ExtractXML(data []byte) (domain.Document, error) {
	return ParseXML(data)
}
