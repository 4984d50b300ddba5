package tenants

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/introcar/introcar-backend/pkg/db/models"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/pagination"
	"github.com/introcar/introcar-backend/pkg/redis"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type tenantRepository interface {
	List(ctx context.Context, page pagination.Page) ([]models.Tenant, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	Taken(ctx context.Context, slug, name string, exclude uuid.UUID) (bool, bool, error)
	Create(ctx context.Context, row *models.Tenant) error
	Update(ctx context.Context, row *models.Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type tenantCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	TenantKey(slug string) string
}

// Service manages tenants and resolves storefront slugs.
type Service interface {
	List(ctx context.Context, page pagination.Page) ([]TenantDTO, pagination.Meta, error)
	Get(ctx context.Context, id uuid.UUID) (*TenantDTO, error)
	Create(ctx context.Context, in Input) (*TenantDTO, error)
	Update(ctx context.Context, id uuid.UUID, in Input) (*TenantDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Resolve returns the active tenant for a storefront slug.
	Resolve(ctx context.Context, slug string) (*models.Tenant, error)
}

type service struct {
	repo  tenantRepository
	cache tenantCache
	ttl   time.Duration
	logg  *logger.Logger
}

// NewService builds the tenant service. cache may be nil, which disables
// slug caching.
func NewService(repo tenantRepository, cache tenantCache, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("tenant repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{repo: repo, cache: cache, ttl: ttl, logg: logg}, nil
}

func (s *service) List(ctx context.Context, page pagination.Page) ([]TenantDTO, pagination.Meta, error) {
	page = pagination.New(page.Number, page.Limit)
	rows, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	out := make([]TenantDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, pagination.MetaFor(page, total), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, in Input) (*TenantDTO, error) {
	row := models.Tenant{}
	if err := s.apply(ctx, &row, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &row); err != nil {
		return nil, err
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in Input) (*TenantDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldSlug := row.Slug
	if err := s.apply(ctx, row, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, row); err != nil {
		return nil, err
	}
	s.evict(ctx, oldSlug, row.Slug)
	dto := FromModel(*row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, row.Slug)
	return nil
}

func (s *service) Resolve(ctx context.Context, slug string) (*models.Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}

	if cached, ok := s.cached(ctx, slug); ok {
		return activeOnly(cached)
	}
	row, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.store(ctx, row)
	return activeOnly(row)
}

func activeOnly(row *models.Tenant) (*models.Tenant, error) {
	if !row.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	return row, nil
}

func (s *service) cached(ctx context.Context, slug string) (*models.Tenant, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.TenantKey(slug))
	if err != nil {
		if !errors.Is(err, redis.ErrNil) {
			s.logg.Error(s.logg.WithField(ctx, "slug", slug), "tenant cache read failed", err)
		}
		return nil, false
	}
	var row models.Tenant
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return nil, false
	}
	return &row, true
}

func (s *service) store(ctx context.Context, row *models.Tenant) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.TenantKey(row.Slug), string(payload), s.ttl); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "slug", row.Slug), "tenant cache write failed", err)
	}
}

func (s *service) evict(ctx context.Context, slugs ...string) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		keys = append(keys, s.cache.TenantKey(slug))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logg.Error(ctx, "tenant cache evict failed", err)
	}
}

// apply validates in and copies it onto row.
func (s *service) apply(ctx context.Context, row *models.Tenant, in Input) error {
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	name := strings.TrimSpace(in.Name)

	var fields []pkgerrors.FieldError
	switch {
	case slug == "":
		fields = append(fields, pkgerrors.FieldError{Field: "slug", Message: "is required"})
	case !slugPattern.MatchString(slug):
		fields = append(fields, pkgerrors.FieldError{Field: "slug", Message: "must be lowercase letters, digits and hyphens"})
	}
	if name == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "name", Message: "is required"})
	}
	if len(fields) == 0 {
		slugTaken, nameTaken, err := s.repo.Taken(ctx, slug, name, row.ID)
		if err != nil {
			return err
		}
		if slugTaken {
			fields = append(fields, pkgerrors.FieldError{Field: "slug", Message: "is already in use"})
		}
		if nameTaken {
			fields = append(fields, pkgerrors.FieldError{Field: "name", Message: "is already in use"})
		}
	}
	if len(fields) > 0 {
		return pkgerrors.Invalid("invalid tenant", fields...)
	}

	row.Slug = slug
	row.Name = name
	row.Domain = trimmed(in.Domain)
	row.Colors = in.Colors
	row.CompanyInfo = in.CompanyInfo
	row.SKUFilter = nil
	if f := trimmed(in.SKUFilter); f != nil {
		lower := strings.ToLower(*f)
		row.SKUFilter = &lower
	}
	row.ShowPrices = boolOr(in.ShowPrices, true)
	row.ShowCart = boolOr(in.ShowCart, true)
	row.CheckoutEnabled = in.CheckoutEnabled
	row.IsActive = boolOr(in.IsActive, true)
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
