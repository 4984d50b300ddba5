package fitment

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/introcar/introcar-backend/internal/repo"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const importBatchSize = 500

// ListFilter narrows the admin fitment listing.
type ListFilter struct {
	SKU   string
	Make  string
	Model string
	Page  pagination.Page
}

// Repository persists fitment records and per-year chassis boundaries.
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

// ListAll returns every record for index builds.
func (r *Repository) ListAll(ctx context.Context) ([]models.FitmentRecord, error) {
	var rows []models.FitmentRecord
	if err := r.DB(ctx).Order("make, model, sku, id").Find(&rows).Error; err != nil {
		return nil, repo.Translate(err, "fitment record")
	}
	return rows, nil
}

// List returns one page of records plus the unpaged total.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.FitmentRecord, int64, error) {
	q := r.DB(ctx).Model(&models.FitmentRecord{})
	if sku := strings.ToUpper(strings.TrimSpace(f.SKU)); sku != "" {
		q = q.Where("sku LIKE ?", sku+"%")
	}
	if mk := strings.TrimSpace(f.Make); mk != "" {
		q = q.Where("LOWER(make) = ?", strings.ToLower(mk))
	}
	if model := strings.TrimSpace(f.Model); model != "" {
		q = q.Where("LOWER(model) = ?", strings.ToLower(model))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, repo.Translate(err, "fitment record")
	}
	var rows []models.FitmentRecord
	if err := q.Order("make, model, sku, id").
		Limit(f.Page.Limit).
		Offset(f.Page.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, repo.Translate(err, "fitment record")
	}
	return rows, total, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.FitmentRecord, error) {
	var row models.FitmentRecord
	if err := r.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, repo.Translate(err, "fitment record")
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, row *models.FitmentRecord) error {
	return repo.Translate(r.DB(ctx).Create(row).Error, "fitment record")
}

func (r *Repository) Update(ctx context.Context, row *models.FitmentRecord) error {
	return repo.Translate(r.DB(ctx).Save(row).Error, "fitment record")
}

// Delete removes a record. Missing rows surface as not found.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Delete(&models.FitmentRecord{}, "id = ?", id)
	if res.Error != nil {
		return repo.Translate(res.Error, "fitment record")
	}
	if res.RowsAffected == 0 {
		return repo.Translate(gorm.ErrRecordNotFound, "fitment record")
	}
	return nil
}

// Import inserts rows in one transaction. With replace set, existing records
// of every make/model pair present in rows are deleted first.
func (r *Repository) Import(ctx context.Context, rows []models.FitmentRecord, replace bool) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := r.Tx(ctx, func(tx *gorm.DB) error {
		if replace {
			seen := make(map[[2]string]struct{})
			for _, row := range rows {
				key := [2]string{strings.ToLower(row.Make), strings.ToLower(row.Model)}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				if err := tx.Where("LOWER(make) = ? AND LOWER(model) = ?", key[0], key[1]).
					Delete(&models.FitmentRecord{}).Error; err != nil {
					return err
				}
			}
		}
		return tx.CreateInBatches(rows, importBatchSize).Error
	})
	if err != nil {
		return 0, repo.Translate(err, "fitment record")
	}
	return len(rows), nil
}

// ListBoundaries returns every explicit per-year chassis boundary.
func (r *Repository) ListBoundaries(ctx context.Context) ([]models.ChassisYearBoundary, error) {
	var rows []models.ChassisYearBoundary
	if err := r.DB(ctx).Order("make, model, year").Find(&rows).Error; err != nil {
		return nil, repo.Translate(err, "chassis boundary")
	}
	return rows, nil
}

// UpsertBoundary writes one boundary, replacing an existing row for the year.
func (r *Repository) UpsertBoundary(ctx context.Context, row *models.ChassisYearBoundary) error {
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "make"}, {Name: "model"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"chassis_first", "chassis_last", "vehicle_count"}),
	}).Create(row).Error
	return repo.Translate(err, "chassis boundary")
}

// DeleteBoundary removes the boundary for one year.
func (r *Repository) DeleteBoundary(ctx context.Context, mk, model string, year int) error {
	res := r.DB(ctx).Delete(&models.ChassisYearBoundary{}, "make = ? AND model = ? AND year = ?", mk, model, year)
	if res.Error != nil {
		return repo.Translate(res.Error, "chassis boundary")
	}
	if res.RowsAffected == 0 {
		return repo.Translate(gorm.ErrRecordNotFound, "chassis boundary")
	}
	return nil
}
