package application

import (
	"context"

	"github.com/enzopoeta/i2a2-final/internal/contracts"
	"github.com/google/uuid"
)

// emit mirrors a pipeline event. Delivery is best effort: the queue and the
// database stay the source of truth.
func (s *Service) emit(ctx context.Context, eventType, partitionKey string, data any) {
	if s.events == nil {
		return
	}
	payload, err := contracts.NewEventEnvelope(uuid.NewString(), eventType, s.cfg.ServiceName, partitionKey, s.nowFn(), data)
	if err == nil {
		err = s.events.Publish(ctx, eventType, payload, partitionKey)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "event publish failed",
			"module", "application",
			"layer", "events",
			"operation", "emit",
			"outcome", "failure",
			"event_type", eventType,
			"chave_acesso", partitionKey,
			"error", err,
		)
	}
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		s.logger.WarnContext(ctx, "stats cache invalidation failed",
			"module", "application",
			"layer", "cache",
			"operation", "invalidate_stats",
			"outcome", "failure",
			"error", err,
		)
	}
}
