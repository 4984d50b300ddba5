// Package cms stores the editable storefront pages and videos.
package cms

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/introcar/introcar-backend/internal/repo"
	"github.com/introcar/introcar-backend/pkg/db/models"
)

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

func (r *Repository) ListPages(ctx context.Context) ([]models.CMSPage, error) {
	var rows []models.CMSPage
	if err := r.DB(ctx).Order("slug ASC").Find(&rows).Error; err != nil {
		return nil, repo.Translate(err, "page")
	}
	return rows, nil
}

func (r *Repository) FindPage(ctx context.Context, id uuid.UUID) (*models.CMSPage, error) {
	var row models.CMSPage
	if err := r.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, repo.Translate(err, "page")
	}
	return &row, nil
}

func (r *Repository) FindPublishedPage(ctx context.Context, slug string) (*models.CMSPage, error) {
	var row models.CMSPage
	if err := r.DB(ctx).First(&row, "slug = ? AND is_published = ?", slug, true).Error; err != nil {
		return nil, repo.Translate(err, "page")
	}
	return &row, nil
}

func (r *Repository) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.CMSPage{}).Where("slug = ? AND id <> ?", slug, exclude).Count(&count).Error
	if err != nil {
		return false, repo.Translate(err, "page")
	}
	return count > 0, nil
}

func (r *Repository) SavePage(ctx context.Context, row *models.CMSPage) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
		return repo.Translate(r.DB(ctx).Create(row).Error, "page")
	}
	return repo.Translate(r.DB(ctx).Save(row).Error, "page")
}

func (r *Repository) DeletePage(ctx context.Context, id uuid.UUID) error {
	return deleteByID(r.DB(ctx), &models.CMSPage{}, id, "page")
}

// ListVideos returns videos by position. activeOnly hides disabled ones.
func (r *Repository) ListVideos(ctx context.Context, activeOnly bool) ([]models.CMSVideo, error) {
	q := r.DB(ctx).Order("position ASC").Order("title ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.CMSVideo
	if err := q.Find(&rows).Error; err != nil {
		return nil, repo.Translate(err, "video")
	}
	return rows, nil
}

func (r *Repository) FindVideo(ctx context.Context, id uuid.UUID) (*models.CMSVideo, error) {
	var row models.CMSVideo
	if err := r.DB(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, repo.Translate(err, "video")
	}
	return &row, nil
}

func (r *Repository) SaveVideo(ctx context.Context, row *models.CMSVideo) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
		return repo.Translate(r.DB(ctx).Create(row).Error, "video")
	}
	return repo.Translate(r.DB(ctx).Save(row).Error, "video")
}

func (r *Repository) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	return deleteByID(r.DB(ctx), &models.CMSVideo{}, id, "video")
}

func deleteByID(db *gorm.DB, model any, id uuid.UUID, resource string) error {
	res := db.Delete(model, "id = ?", id)
	if res.Error != nil {
		return repo.Translate(res.Error, resource)
	}
	if res.RowsAffected == 0 {
		return repo.Translate(gorm.ErrRecordNotFound, resource)
	}
	return nil
}
