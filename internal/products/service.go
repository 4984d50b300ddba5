package products

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/introcar/introcar-backend/pkg/db/models"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
)

type productWriter interface {
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	Upsert(ctx context.Context, p *models.Product) error
	SetTags(ctx context.Context, sku string, tags []string) error
}

// AdminService maintains product rows and their tenant tags.
type AdminService interface {
	Get(ctx context.Context, sku string) (*ProductDTO, []string, error)
	Upsert(ctx context.Context, in UpsertInput) (*ProductDTO, error)
	SetTags(ctx context.Context, sku string, tags []string) ([]string, error)
}

type adminService struct {
	repo productWriter
}

func NewAdminService(repo productWriter) (AdminService, error) {
	if repo == nil {
		return nil, errors.New("product repository required")
	}
	return &adminService{repo: repo}, nil
}

func (s *adminService) Get(ctx context.Context, sku string) (*ProductDTO, []string, error) {
	p, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, nil, err
	}
	dto := FromModel(*p, true)
	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, t.Tag)
	}
	sort.Strings(tags)
	return &dto, tags, nil
}

func (s *adminService) Upsert(ctx context.Context, in UpsertInput) (*ProductDTO, error) {
	sku := strings.ToUpper(strings.TrimSpace(in.SKU))
	var fields []pkgerrors.FieldError
	if sku == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "sku", Message: "is required"})
	}
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "name", Message: "is required"})
	}
	if !in.StockType.IsValid() {
		fields = append(fields, pkgerrors.FieldError{Field: "stockType", Message: "is invalid"})
	}
	if in.Price.IsNegative() {
		fields = append(fields, pkgerrors.FieldError{Field: "price", Message: "must not be negative"})
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Invalid("invalid product", fields...)
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	row := &models.Product{
		SKU:         sku,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Subcategory: in.Subcategory,
		StockType:   in.StockType,
		Price:       in.Price.Round(2),
		Weight:      in.Weight,
		ImageURL:    in.ImageURL,
		Popularity:  in.Popularity,
		NLA:         in.NLA,
		NLADate:     in.NLADate,
		IsActive:    active,
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, err
	}
	if in.Tags != nil {
		if _, err := s.SetTags(ctx, sku, in.Tags); err != nil {
			return nil, err
		}
	}
	dto := FromModel(*row, true)
	return &dto, nil
}

// SetTags replaces the tag set. Tags are trimmed, lowercased and deduped.
func (s *adminService) SetTags(ctx context.Context, sku string, tags []string) ([]string, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if _, err := s.repo.FindBySKU(ctx, sku); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(tags))
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		clean = append(clean, t)
	}
	sort.Strings(clean)
	if err := s.repo.SetTags(ctx, sku, clean); err != nil {
		return nil, err
	}
	return clean, nil
}
