package postgres

import (
	"context"
	"fmt"

	"github.com/enzopoeta/i2a2-final/internal/ports"
	"gorm.io/gorm"
)

type adminRepository struct {
	db *gorm.DB
}

var _ ports.AdminRepository = (*adminRepository)(nil)

// clearOrder lists children before parents.
var clearOrder = []string{
	"analise_fiscal",
	"impostos_item",
	"impostos_nota_fiscal",
	"itensnotafiscal",
	"notasfiscais",
}

// ClearAll empties every fiscal table in one transaction. Tables that were
// never created are skipped instead of failing the whole clear.
func (r *adminRepository) ClearAll(ctx context.Context) ([]string, error) {
	cleared := make([]string, 0, len(clearOrder))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range clearOrder {
			var exists bool
			if err := tx.Raw("SELECT to_regclass(?) IS NOT NULL", "public."+table).Scan(&exists).Error; err != nil {
				return storageErr("lookup "+table, err)
			}
			if !exists {
				continue
			}
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
				return storageErr("clear "+table, err)
			}
			cleared = append(cleared, table)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}

func (r *adminRepository) EnsureSchema(ctx context.Context) error {
	if err := RunMigrations(ctx, r.db); err != nil {
		return storageErr("ensure schema", err)
	}
	return nil
}
