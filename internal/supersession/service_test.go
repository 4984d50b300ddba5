package supersession

import (
	"context"
	"testing"

	"github.com/introcar/introcar-backend/pkg/db/models"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"gorm.io/gorm"
)

type stubRepo struct {
	rows map[string]models.Supersession
}

func newStubRepo(links ...Link) *stubRepo {
	r := &stubRepo{rows: map[string]models.Supersession{}}
	for _, l := range links {
		r.rows[l.OldSKU] = models.Supersession{OldSKU: l.OldSKU, NewSKU: l.NewSKU}
	}
	return r
}

func (r *stubRepo) ListAll(context.Context) ([]models.Supersession, error) {
	out := make([]models.Supersession, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row)
	}
	return out, nil
}

func (r *stubRepo) Links(ctx context.Context) ([]Link, error) {
	rows, _ := r.ListAll(ctx)
	out := make([]Link, 0, len(rows))
	for _, row := range rows {
		out = append(out, Link{OldSKU: row.OldSKU, NewSKU: row.NewSKU})
	}
	return out, nil
}

func (r *stubRepo) Find(_ context.Context, oldSKU string) (*models.Supersession, error) {
	row, ok := r.rows[oldSKU]
	if !ok {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, gorm.ErrRecordNotFound, "supersession not found")
	}
	return &row, nil
}

func (r *stubRepo) Create(_ context.Context, row *models.Supersession) error {
	if _, ok := r.rows[row.OldSKU]; ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "supersession already exists")
	}
	r.rows[row.OldSKU] = *row
	return nil
}

func (r *stubRepo) Update(_ context.Context, row *models.Supersession) error {
	r.rows[row.OldSKU] = *row
	return nil
}

func (r *stubRepo) Delete(_ context.Context, oldSKU string) error {
	if _, ok := r.rows[oldSKU]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "supersession not found")
	}
	delete(r.rows, oldSKU)
	return nil
}

func TestServiceCreateNormalizesAndReloads(t *testing.T) {
	repo := newStubRepo()
	reloads := 0
	svc, err := NewService(repo, 32, func(context.Context) error { reloads++; return nil })
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	entry, err := svc.Create(context.Background(), Input{OldSKU: " ub84868 ", NewSKU: "ub99999"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if entry.OldSKU != "UB84868" || entry.NewSKU != "UB99999" {
		t.Fatalf("expected normalized skus, got %+v", entry)
	}
	if reloads != 1 {
		t.Fatalf("expected one reload, got %d", reloads)
	}
}

func TestServiceRejectsCycles(t *testing.T) {
	repo := newStubRepo(Link{OldSKU: "A", NewSKU: "B"}, Link{OldSKU: "B", NewSKU: "C"})
	svc, _ := NewService(repo, 32, nil)

	_, err := svc.Create(context.Background(), Input{OldSKU: "C", NewSKU: "A"})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := repo.rows["C"]; ok {
		t.Fatalf("cyclic edge must not be stored")
	}

	// redirecting an existing edge is checked against the edited graph
	if _, err := svc.Update(context.Background(), "B", Input{NewSKU: "D"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := svc.Update(context.Background(), "B", Input{NewSKU: "A"}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected cycle rejection on update, got %v", err)
	}
}

func TestServiceValidatesFields(t *testing.T) {
	svc, _ := NewService(newStubRepo(), 32, nil)

	_, err := svc.Create(context.Background(), Input{OldSKU: "A", NewSKU: "a"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields, ok := typed.Details().([]pkgerrors.FieldError)
	if !ok || len(fields) != 1 || fields[0].Field != "newSku" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}

	_, err = svc.Create(context.Background(), Input{})
	fields, _ = pkgerrors.As(err).Details().([]pkgerrors.FieldError)
	if len(fields) != 2 {
		t.Fatalf("expected both fields reported, got %#v", fields)
	}
}

func TestServiceDepthLimit(t *testing.T) {
	repo := newStubRepo(Link{OldSKU: "B", NewSKU: "C"}, Link{OldSKU: "C", NewSKU: "D"})
	svc, _ := NewService(repo, 2, nil)

	if _, err := svc.Create(context.Background(), Input{OldSKU: "A", NewSKU: "B"}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected depth rejection, got %v", err)
	}
}

func TestServiceUpdateMissing(t *testing.T) {
	svc, _ := NewService(newStubRepo(), 32, nil)
	if _, err := svc.Update(context.Background(), "NOPE", Input{NewSKU: "X"}); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(context.Background(), "nope"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on delete, got %v", err)
	}
}
