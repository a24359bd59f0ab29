package ports

import (
	"context"

	"github.com/enzopoeta/i2a2-final/internal/domain"
)

type Classifier interface {
	Classify(ctx context.Context, doc domain.Document) (domain.Document, error)
}

type TaxesNotifier interface {
	Notify(ctx context.Context, doc domain.Document)
}
