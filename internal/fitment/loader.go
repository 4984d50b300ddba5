package fitment

import (
	"context"
	"errors"
	"fmt"

	"github.com/introcar/introcar-backend/internal/supersession"
	"github.com/introcar/introcar-backend/internal/vehicles"
	"github.com/introcar/introcar-backend/pkg/db/models"
)

type catalogSource interface {
	LoadCatalog(ctx context.Context) (*vehicles.Catalog, error)
}

type recordSource interface {
	ListAll(ctx context.Context) ([]models.FitmentRecord, error)
	ListBoundaries(ctx context.Context) ([]models.ChassisYearBoundary, error)
}

type linkSource interface {
	Links(ctx context.Context) ([]supersession.Link, error)
}

// StoreLoader reads an index source from the database repositories.
type StoreLoader struct {
	vehicles     catalogSource
	records      recordSource
	supersession linkSource
}

func NewStoreLoader(vehicles catalogSource, records recordSource, links linkSource) (*StoreLoader, error) {
	if vehicles == nil {
		return nil, errors.New("vehicle repository required")
	}
	if records == nil {
		return nil, errors.New("fitment repository required")
	}
	if links == nil {
		return nil, errors.New("supersession repository required")
	}
	return &StoreLoader{vehicles: vehicles, records: records, supersession: links}, nil
}

func (l *StoreLoader) Load(ctx context.Context) (Source, error) {
	catalog, err := l.vehicles.LoadCatalog(ctx)
	if err != nil {
		return Source{}, fmt.Errorf("loading vehicle catalog: %w", err)
	}
	rows, err := l.records.ListAll(ctx)
	if err != nil {
		return Source{}, fmt.Errorf("loading fitment records: %w", err)
	}
	boundaryRows, err := l.records.ListBoundaries(ctx)
	if err != nil {
		return Source{}, fmt.Errorf("loading chassis boundaries: %w", err)
	}
	links, err := l.supersession.Links(ctx)
	if err != nil {
		return Source{}, fmt.Errorf("loading supersessions: %w", err)
	}

	src := Source{
		Catalog:      catalog,
		Records:      make([]Record, 0, len(rows)),
		Boundaries:   make([]Boundary, 0, len(boundaryRows)),
		Supersession: links,
	}
	for _, row := range rows {
		src.Records = append(src.Records, RecordFromModel(row))
	}
	for _, row := range boundaryRows {
		src.Boundaries = append(src.Boundaries, BoundaryFromModel(row))
	}
	return src, nil
}
