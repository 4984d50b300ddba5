package tenants

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/introcar/introcar-backend/pkg/db/models"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/pagination"
	"github.com/introcar/introcar-backend/pkg/redis"
)

type memoryCache struct {
	values map[string]string
	gets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.gets++
	v, ok := c.values[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.values[key] = value.(string)
	return nil
}

func (c *memoryCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *memoryCache) TenantKey(slug string) string { return "tenant:" + slug }

func setup(t *testing.T) (Service, *Repository, *memoryCache) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:tenants_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Tenant{}))
	repo, err := NewRepository(db)
	require.NoError(t, err)
	cache := newMemoryCache()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	svc, err := NewService(repo, cache, time.Minute, logg)
	require.NoError(t, err)
	return svc, repo, cache
}

func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }

func TestCreateNormalizesAndDefaults(t *testing.T) {
	svc, _, _ := setup(t)

	dto, err := svc.Create(context.Background(), Input{
		Slug:      " Prestige-Parts ",
		Name:      "Prestige Parts",
		SKUFilter: strPtr(" Prestige "),
		Colors:    map[string]string{"primary": "#002147"},
	})
	require.NoError(t, err)
	assert.Equal(t, "prestige-parts", dto.Slug)
	assert.Equal(t, "prestige", *dto.SKUFilter)
	assert.True(t, dto.ShowPrices)
	assert.True(t, dto.ShowCart)
	assert.True(t, dto.IsActive)
	assert.False(t, dto.CheckoutEnabled)
	assert.Equal(t, "#002147", dto.Colors["primary"])
}

func TestCreateRejectsInvalidAndDuplicate(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Slug: "bad slug!", Name: " "})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	fields := typed.Details().([]pkgerrors.FieldError)
	require.Len(t, fields, 2)
	assert.Equal(t, "slug", fields[0].Field)
	assert.Equal(t, "name", fields[1].Field)

	_, err = svc.Create(ctx, Input{Slug: "prestige", Name: "Prestige"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Input{Slug: "prestige", Name: "PRESTIGE"})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, []pkgerrors.FieldError{
		{Field: "slug", Message: "is already in use"},
		{Field: "name", Message: "is already in use"},
	}, typed.Details())
}

func TestUpdateKeepsOwnSlugAndEvictsCache(t *testing.T) {
	svc, _, cache := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{Slug: "prestige", Name: "Prestige"})
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, "prestige")
	require.NoError(t, err)
	require.Contains(t, cache.values, "tenant:prestige")

	updated, err := svc.Update(ctx, created.ID, Input{Slug: "prestige", Name: "Prestige Motors", ShowPrices: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Prestige Motors", updated.Name)
	assert.False(t, updated.ShowPrices)
	assert.NotContains(t, cache.values, "tenant:prestige")

	resolved, err := svc.Resolve(ctx, "PRESTIGE")
	require.NoError(t, err)
	assert.False(t, resolved.ShowPrices)
}

func TestResolveUsesCacheAndHidesInactive(t *testing.T) {
	svc, repo, cache := setup(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, Input{Slug: "dormant", Name: "Dormant", IsActive: boolPtr(false)})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, "dormant")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.Resolve(ctx, "missing")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.Update(ctx, created.ID, Input{Slug: "dormant", Name: "Dormant"})
	require.NoError(t, err)
	row, err := svc.Resolve(ctx, "dormant")
	require.NoError(t, err)
	assert.Equal(t, created.ID, row.ID)

	// served from cache even after the row is gone
	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = svc.Resolve(ctx, "dormant")
	require.NoError(t, err)
	assert.Positive(t, cache.gets)
}

func TestDeleteAndList(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, Input{Slug: "alpha", Name: "Alpha"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, Input{Slug: "beta", Name: "Beta"})
	require.NoError(t, err)

	list, meta, err := svc.List(ctx, pagination.Page{Number: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alpha", list[0].Slug)
	assert.EqualValues(t, 2, meta.Total)

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.True(t, pkgerrors.Is(svc.Delete(ctx, a.ID), pkgerrors.CodeNotFound))
	_, err = svc.Get(ctx, a.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestPublicDTOOmitsFilter(t *testing.T) {
	dto := PublicFromModel(models.Tenant{Slug: "p", Name: "P", SKUFilter: strPtr("secret")})
	assert.NotNil(t, dto.Colors)
	assert.Equal(t, "p", dto.Slug)
}
