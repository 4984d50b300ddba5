package supersession

import (
	"context"
	"strings"

	"github.com/introcar/introcar-backend/internal/repo"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists replacement edges.
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

// ListAll returns every edge ordered by old SKU.
func (r *Repository) ListAll(ctx context.Context) ([]models.Supersession, error) {
	var rows []models.Supersession
	if err := r.DB(ctx).Order("old_sku").Find(&rows).Error; err != nil {
		return nil, repo.Translate(err, "supersession")
	}
	return rows, nil
}

// Links returns the edges in graph form.
func (r *Repository) Links(ctx context.Context) ([]Link, error) {
	rows, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	links := make([]Link, 0, len(rows))
	for _, row := range rows {
		links = append(links, Link{OldSKU: row.OldSKU, NewSKU: row.NewSKU})
	}
	return links, nil
}

func (r *Repository) Find(ctx context.Context, oldSKU string) (*models.Supersession, error) {
	var row models.Supersession
	if err := r.DB(ctx).First(&row, "old_sku = ?", strings.ToUpper(oldSKU)).Error; err != nil {
		return nil, repo.Translate(err, "supersession")
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, row *models.Supersession) error {
	return repo.Translate(r.DB(ctx).Create(row).Error, "supersession")
}

func (r *Repository) Update(ctx context.Context, row *models.Supersession) error {
	res := r.DB(ctx).Model(&models.Supersession{}).
		Where("old_sku = ?", row.OldSKU).
		Updates(map[string]any{"new_sku": row.NewSKU, "note": row.Note})
	if res.Error != nil {
		return repo.Translate(res.Error, "supersession")
	}
	if res.RowsAffected == 0 {
		return repo.Translate(gorm.ErrRecordNotFound, "supersession")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, oldSKU string) error {
	res := r.DB(ctx).Delete(&models.Supersession{}, "old_sku = ?", strings.ToUpper(oldSKU))
	if res.Error != nil {
		return repo.Translate(res.Error, "supersession")
	}
	if res.RowsAffected == 0 {
		return repo.Translate(gorm.ErrRecordNotFound, "supersession")
	}
	return nil
}
