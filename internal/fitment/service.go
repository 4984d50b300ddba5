package fitment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/introcar/introcar-backend/internal/imports"
	"github.com/introcar/introcar-backend/pkg/chassis"
	"github.com/introcar/introcar-backend/pkg/db/models"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/pagination"
)

type recordRepository interface {
	List(ctx context.Context, f ListFilter) ([]models.FitmentRecord, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.FitmentRecord, error)
	Create(ctx context.Context, row *models.FitmentRecord) error
	Update(ctx context.Context, row *models.FitmentRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	Import(ctx context.Context, rows []models.FitmentRecord, replace bool) (int, error)
	ListBoundaries(ctx context.Context) ([]models.ChassisYearBoundary, error)
	UpsertBoundary(ctx context.Context, row *models.ChassisYearBoundary) error
	DeleteBoundary(ctx context.Context, mk, model string, year int) error
}

// Service is the admin surface over fitment data. Every successful write
// calls onChange so the serving index can be rebuilt.
type Service interface {
	List(ctx context.Context, f ListFilter) ([]RecordDTO, pagination.Meta, error)
	Get(ctx context.Context, id uuid.UUID) (*RecordDTO, error)
	Create(ctx context.Context, in RecordInput) (*RecordDTO, error)
	Update(ctx context.Context, id uuid.UUID, in RecordInput) (*RecordDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Import(ctx context.Context, in ImportInput) (*ImportResult, error)
	ListBoundaries(ctx context.Context) ([]Boundary, error)
	SetBoundary(ctx context.Context, in BoundaryInput) (*Boundary, error)
	DeleteBoundary(ctx context.Context, mk, model string, year int) error
}

type service struct {
	repo     recordRepository
	onChange func(ctx context.Context) error
}

// NewService wires the admin service. onChange may be nil.
func NewService(repo recordRepository, onChange func(ctx context.Context) error) (Service, error) {
	if repo == nil {
		return nil, errors.New("fitment repository required")
	}
	return &service{repo: repo, onChange: onChange}, nil
}

func (s *service) List(ctx context.Context, f ListFilter) ([]RecordDTO, pagination.Meta, error) {
	f.Page = pagination.New(f.Page.Number, f.Page.Limit)
	rows, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	out := make([]RecordDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, RecordDTOFromModel(row))
	}
	return out, pagination.MetaFor(f.Page, total), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*RecordDTO, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := RecordDTOFromModel(*row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, in RecordInput) (*RecordDTO, error) {
	row, fields := recordFromInput(in)
	if len(fields) > 0 {
		return nil, pkgerrors.Invalid("invalid fitment record", fields...)
	}
	if err := s.repo.Create(ctx, &row); err != nil {
		return nil, err
	}
	s.changed(ctx)
	dto := RecordDTOFromModel(row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in RecordInput) (*RecordDTO, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	row, fields := recordFromInput(in)
	if len(fields) > 0 {
		return nil, pkgerrors.Invalid("invalid fitment record", fields...)
	}
	row.ID = existing.ID
	row.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, &row); err != nil {
		return nil, err
	}
	s.changed(ctx)
	dto := RecordDTOFromModel(row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// Import parses pasted rows and stores them all or none: any rejected line
// fails the request with one detail per problem.
func (s *service) Import(ctx context.Context, in ImportInput) (*ImportResult, error) {
	parsed, err := imports.Parse(in.Data, imports.Options{DefaultMake: in.DefaultMake, DefaultModel: in.DefaultModel})
	if err != nil {
		return nil, pkgerrors.Invalid("import data could not be read", pkgerrors.FieldError{Field: "data", Message: err.Error()})
	}
	if len(parsed.Errors) > 0 {
		fields := make([]pkgerrors.FieldError, 0, len(parsed.Errors))
		for _, rowErr := range parsed.Errors {
			field := fmt.Sprintf("line %d", rowErr.Line)
			if rowErr.Field != "" {
				field += "." + rowErr.Field
			}
			fields = append(fields, pkgerrors.FieldError{Field: field, Message: rowErr.Message})
		}
		return nil, pkgerrors.Invalid(fmt.Sprintf("%d import rows rejected", len(parsed.Errors)), fields...)
	}
	if len(parsed.Rows) == 0 {
		return nil, pkgerrors.Invalid("import contains no rows", pkgerrors.FieldError{Field: "data", Message: "no data rows after the header"})
	}

	rows := make([]models.FitmentRecord, 0, len(parsed.Rows))
	for _, r := range parsed.Rows {
		rows = append(rows, models.FitmentRecord{
			SKU:            r.SKU,
			Make:           r.Make,
			Model:          r.Model,
			ChassisStart:   r.ChassisStart,
			ChassisEnd:     r.ChassisEnd,
			AdditionalInfo: r.AdditionalInfo,
		})
	}
	created, err := s.repo.Import(ctx, rows, in.Replace)
	if err != nil {
		return nil, err
	}
	s.changed(ctx)

	delim := "comma"
	if parsed.Delimiter == '\t' {
		delim = "tab"
	}
	return &ImportResult{Created: created, Replaced: in.Replace, Delimiter: delim}, nil
}

func (s *service) ListBoundaries(ctx context.Context) ([]Boundary, error) {
	rows, err := s.repo.ListBoundaries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Boundary, 0, len(rows))
	for _, row := range rows {
		out = append(out, BoundaryFromModel(row))
	}
	return out, nil
}

func (s *service) SetBoundary(ctx context.Context, in BoundaryInput) (*Boundary, error) {
	row := models.ChassisYearBoundary{
		Make:         strings.TrimSpace(in.Make),
		Model:        strings.TrimSpace(in.Model),
		Year:         in.Year,
		ChassisFirst: chassis.Normalize(in.ChassisFirst),
		ChassisLast:  chassis.Normalize(in.ChassisLast),
		VehicleCount: in.VehicleCount,
	}
	var fields []pkgerrors.FieldError
	if row.Make == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "make", Message: "is required"})
	}
	if row.Model == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "model", Message: "is required"})
	}
	if row.ChassisFirst == "" || row.ChassisLast == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "chassisFirst", Message: "both chassis bounds are required"})
	} else if chassis.Compare(row.ChassisFirst, row.ChassisLast) > 0 {
		fields = append(fields, pkgerrors.FieldError{Field: "chassisFirst", Message: "must not be after chassisLast"})
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Invalid("invalid chassis boundary", fields...)
	}
	if err := s.repo.UpsertBoundary(ctx, &row); err != nil {
		return nil, err
	}
	s.changed(ctx)
	b := BoundaryFromModel(row)
	return &b, nil
}

func (s *service) DeleteBoundary(ctx context.Context, mk, model string, year int) error {
	if err := s.repo.DeleteBoundary(ctx, mk, model, year); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *service) changed(ctx context.Context) {
	if s.onChange != nil {
		_ = s.onChange(ctx)
	}
}

// recordFromInput normalizes an admin write and reports field problems.
func recordFromInput(in RecordInput) (models.FitmentRecord, []pkgerrors.FieldError) {
	row := models.FitmentRecord{
		SKU:            strings.ToUpper(strings.TrimSpace(in.SKU)),
		Make:           strings.TrimSpace(in.Make),
		Model:          strings.TrimSpace(in.Model),
		ChassisStart:   normalizedBound(in.ChassisStart),
		ChassisEnd:     normalizedBound(in.ChassisEnd),
		AdditionalInfo: trimmedOptional(in.AdditionalInfo),
	}

	var fields []pkgerrors.FieldError
	if row.SKU == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "sku", Message: "is required"})
	}
	if row.Make == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "make", Message: "is required"})
	}
	if row.Model == "" {
		fields = append(fields, pkgerrors.FieldError{Field: "model", Message: "is required"})
	}
	if err := chassis.NewInterval(row.ChassisStart, row.ChassisEnd).Validate(); err != nil {
		fields = append(fields, pkgerrors.FieldError{Field: "chassisStart", Message: "must not be after chassisEnd"})
	}
	return row, fields
}

func normalizedBound(v *string) *string {
	if v == nil {
		return nil
	}
	n := chassis.Normalize(*v)
	if n == "" {
		return nil
	}
	return &n
}

func trimmedOptional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
