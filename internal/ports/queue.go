package ports

import (
	"context"

	"github.com/enzopoeta/i2a2-final/internal/domain"
)

// DocumentPublisher hands a document to a pipeline queue. It reports failure
// through the boolean and never panics or returns transport errors.
type DocumentPublisher interface {
	Publish(ctx context.Context, doc domain.Document) bool
}
