package application

import (
	"context"
	"fmt"
)

// ClearAll wipes every fiscal table. It is safe to call on an empty or
// partially migrated database.
func (s *Service) ClearAll(ctx context.Context) (ClearResult, error) {
	s.logger.WarnContext(ctx, "clearing all fiscal data",
		"module", "application",
		"layer", "admin",
		"operation", "clear_all",
		"outcome", "started",
	)
	tables, err := s.admin.ClearAll(ctx)
	if err != nil {
		return ClearResult{}, err
	}
	s.invalidateStats(ctx)
	s.logger.InfoContext(ctx, "fiscal data cleared",
		"module", "application",
		"layer", "admin",
		"operation", "clear_all",
		"outcome", "success",
		"tables", tables,
	)
	return ClearResult{
		Message:       fmt.Sprintf("All data cleared successfully from %d tables", len(tables)),
		TablesCleared: tables,
	}, nil
}

func (s *Service) EnsureTables(ctx context.Context) (map[string]any, error) {
	if err := s.admin.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"message": "All tables verified/created successfully"}, nil
}
