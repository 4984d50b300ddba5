// Package tenants manages reseller storefronts.
package tenants

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/introcar/introcar-backend/internal/repo"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/pagination"
)

// Repository persists tenants.
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

func (r *Repository) List(ctx context.Context, page pagination.Page) ([]models.Tenant, int64, error) {
	var total int64
	if err := r.DB(ctx).Model(&models.Tenant{}).Count(&total).Error; err != nil {
		return nil, 0, repo.Translate(err, "tenant")
	}
	var rows []models.Tenant
	err := r.DB(ctx).Order("slug ASC").Limit(page.Limit).Offset(page.Offset()).Find(&rows).Error
	if err != nil {
		return nil, 0, repo.Translate(err, "tenant")
	}
	return rows, total, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var row models.Tenant
	if err := r.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, repo.Translate(err, "tenant")
	}
	return &row, nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var row models.Tenant
	if err := r.DB(ctx).First(&row, "slug = ?", strings.ToLower(strings.TrimSpace(slug))).Error; err != nil {
		return nil, repo.Translate(err, "tenant")
	}
	return &row, nil
}

// Taken reports whether slug or name is used by a tenant other than exclude.
// Names compare case-insensitively.
func (r *Repository) Taken(ctx context.Context, slug, name string, exclude uuid.UUID) (slugTaken, nameTaken bool, err error) {
	var rows []models.Tenant
	err = r.DB(ctx).
		Select("id", "slug", "name").
		Where("id <> ?", exclude).
		Where(r.DB(ctx).Where("slug = ?", slug).Or("LOWER(name) = ?", strings.ToLower(name))).
		Find(&rows).Error
	if err != nil {
		return false, false, repo.Translate(err, "tenant")
	}
	for _, row := range rows {
		if row.Slug == slug {
			slugTaken = true
		}
		if strings.EqualFold(row.Name, name) {
			nameTaken = true
		}
	}
	return slugTaken, nameTaken, nil
}

func (r *Repository) Create(ctx context.Context, row *models.Tenant) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return repo.Translate(r.DB(ctx).Create(row).Error, "tenant")
}

func (r *Repository) Update(ctx context.Context, row *models.Tenant) error {
	return repo.Translate(r.DB(ctx).Save(row).Error, "tenant")
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB(ctx).Delete(&models.Tenant{}, "id = ?", id)
	if res.Error != nil {
		return repo.Translate(res.Error, "tenant")
	}
	if res.RowsAffected == 0 {
		return repo.Translate(gorm.ErrRecordNotFound, "tenant")
	}
	return nil
}
