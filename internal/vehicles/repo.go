package vehicles

import (
	"context"

	"github.com/introcar/introcar-backend/internal/repo"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads the vehicle reference table.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	base, err := repo.NewBase(db)
	if err != nil {
		return nil, err
	}
	return &Repository{Base: base}, nil
}

// LoadCatalog reads every row and builds the catalog.
func (r *Repository) LoadCatalog(ctx context.Context) (*Catalog, error) {
	var rows []models.VehicleModel
	if err := r.DB(ctx).
		Order("make ASC, model ASC, year_start ASC").
		Find(&rows).Error; err != nil {
		return nil, repo.Translate(err, "vehicle model")
	}
	entries := make([]Model, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Model{
			Make:      row.Make,
			Model:     row.Model,
			YearStart: row.YearStart,
			YearEnd:   row.YearEnd,
		})
	}
	return NewCatalog(entries)
}
