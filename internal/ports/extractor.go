package ports

import "github.com/enzopoeta/i2a2-final/internal/domain"

// ExtractedBatch is the outcome of a tabular export: the documents that could
// be assembled plus the rows dropped along the way.
type ExtractedBatch struct {
	Documents   []domain.Document
	SkippedRows int
}

type Extractor interface {
	ExtractArchive(data []byte) (ExtractedBatch, error)
	ExtractXML(data []byte) (domain.Document, error)
}
