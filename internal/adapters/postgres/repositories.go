package postgres

import (
	"github.com/enzopoeta/i2a2-final/internal/ports"
	"gorm.io/gorm"
)

type Repositories struct {
	Documents ports.DocumentRepository
	Reads     ports.ReadRepository
	Admin     ports.AdminRepository
	Analyses  ports.FiscalAnalysisRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Documents: &documentRepository{db: db},
		Reads:     &readRepository{db: db},
		Admin:     &adminRepository{db: db},
		Analyses:  &analysisRepository{db: db},
	}
}
