package fitment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/introcar/introcar-backend/internal/supersession"
	"github.com/introcar/introcar-backend/internal/vehicles"
	"github.com/introcar/introcar-backend/pkg/db/models"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/pagination"
)

func setupFitmentDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:fitment_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.VehicleModel{},
		&models.FitmentRecord{},
		&models.ChassisYearBoundary{},
		&models.Supersession{},
	))
	return db
}

func TestRepositoryListFiltersAndPages(t *testing.T) {
	db := setupFitmentDB(t)
	repo, err := NewRepository(db)
	require.NoError(t, err)
	ctx := context.Background()

	for _, sku := range []string{"UB1", "UB2", "UB3"} {
		require.NoError(t, repo.Create(ctx, &models.FitmentRecord{SKU: sku, Make: "Bentley", Model: "Arnage"}))
	}
	require.NoError(t, repo.Create(ctx, &models.FitmentRecord{SKU: "RH1", Make: "Rolls-Royce", Model: "Silver Shadow"}))

	rows, total, err := repo.List(ctx, ListFilter{Make: "bentley", Page: pagination.New(1, 2)})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "UB1", rows[0].SKU)

	rows, total, err = repo.List(ctx, ListFilter{SKU: "rh", Page: pagination.New(1, 10)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Silver Shadow", rows[0].Model)
}

func TestRepositoryImportReplacesPerModel(t *testing.T) {
	db := setupFitmentDB(t)
	repo, _ := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.FitmentRecord{SKU: "OLD", Make: "Bentley", Model: "Arnage"}))
	require.NoError(t, repo.Create(ctx, &models.FitmentRecord{SKU: "KEEP", Make: "Bentley", Model: "Azure"}))

	n, err := repo.Import(ctx, []models.FitmentRecord{
		{SKU: "NEW1", Make: "Bentley", Model: "Arnage"},
		{SKU: "NEW2", Make: "bentley", Model: "arnage"},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	var skus []string
	for _, row := range all {
		skus = append(skus, row.SKU)
	}
	assert.ElementsMatch(t, []string{"KEEP", "NEW1", "NEW2"}, skus)
}

func TestRepositoryDeleteMissing(t *testing.T) {
	repo, _ := NewRepository(setupFitmentDB(t))
	err := repo.Delete(context.Background(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "got %v", err)

	_, err = repo.FindByID(context.Background(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestRepositoryUpsertBoundary(t *testing.T) {
	repo, _ := NewRepository(setupFitmentDB(t))
	ctx := context.Background()

	b := &models.ChassisYearBoundary{Make: "Bentley", Model: "Arnage", Year: 2000, ChassisFirst: "LX01000", ChassisLast: "LX01500"}
	require.NoError(t, repo.UpsertBoundary(ctx, b))
	b2 := &models.ChassisYearBoundary{Make: "Bentley", Model: "Arnage", Year: 2000, ChassisFirst: "LX01000", ChassisLast: "LX01999"}
	require.NoError(t, repo.UpsertBoundary(ctx, b2))

	rows, err := repo.ListBoundaries(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "LX01999", rows[0].ChassisLast)

	require.NoError(t, repo.DeleteBoundary(ctx, "Bentley", "Arnage", 2000))
	assert.True(t, pkgerrors.Is(repo.DeleteBoundary(ctx, "Bentley", "Arnage", 2000), pkgerrors.CodeNotFound))
}

func TestStoreLoaderBuildsServingIndex(t *testing.T) {
	db := setupFitmentDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.VehicleModel{Make: "Bentley", Model: "Continental GT", YearStart: 2010, YearEnd: 2010}).Error)
	start, end := "20000", "25000"
	require.NoError(t, db.Create(&models.FitmentRecord{SKU: "UB84868", Make: "Bentley", Model: "Continental GT", ChassisStart: &start, ChassisEnd: &end}).Error)
	require.NoError(t, db.Create(&models.Supersession{OldSKU: "UB84868", NewSKU: "UB99999"}).Error)

	vehicleRepo, err := vehicles.NewRepository(db)
	require.NoError(t, err)
	fitmentRepo, _ := NewRepository(db)
	supersessionRepo, err := supersession.NewRepository(db)
	require.NoError(t, err)

	loader, err := NewStoreLoader(vehicleRepo, fitmentRepo, supersessionRepo)
	require.NoError(t, err)
	src, err := loader.Load(ctx)
	require.NoError(t, err)

	idx := Build(src, Options{})
	res, err := idx.ResolveSKUs(ctx, SKURequest{Make: "Bentley", Model: "Continental GT", Chassis: "22000"})
	require.NoError(t, err)
	require.Len(t, res.SKUs, 1)
	assert.Equal(t, ResolvedSKU{SKU: "UB99999", SupersededFrom: "UB84868"}, res.SKUs[0])

	r, ok, err := idx.ResolveChassisRange(ctx, "Bentley", "Continental GT", 2010)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5001, r.Count)
}
