package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/introcar/introcar-backend/internal/fitment"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/pagination"
)

type stubFitments struct {
	rows         []fitment.RecordDTO
	lastFilter   fitment.ListFilter
	lastInput    fitment.RecordInput
	lastImport   fitment.ImportInput
	importResult *fitment.ImportResult
	importErr    error
	deleted      uuid.UUID
	deleteErr    error
	boundaryDel  []any
}

func (s *stubFitments) List(_ context.Context, f fitment.ListFilter) ([]fitment.RecordDTO, pagination.Meta, error) {
	s.lastFilter = f
	return s.rows, pagination.MetaFor(f.Page, int64(len(s.rows))), nil
}

func (s *stubFitments) Get(_ context.Context, id uuid.UUID) (*fitment.RecordDTO, error) {
	for _, row := range s.rows {
		if row.ID == id {
			return &row, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fitment not found")
}

func (s *stubFitments) Create(_ context.Context, in fitment.RecordInput) (*fitment.RecordDTO, error) {
	s.lastInput = in
	return &fitment.RecordDTO{ID: uuid.New(), SKU: in.SKU, Make: in.Make, Model: in.Model}, nil
}

func (s *stubFitments) Update(_ context.Context, id uuid.UUID, in fitment.RecordInput) (*fitment.RecordDTO, error) {
	s.lastInput = in
	return &fitment.RecordDTO{ID: id, SKU: in.SKU, Make: in.Make, Model: in.Model}, nil
}

func (s *stubFitments) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = id
	return s.deleteErr
}

func (s *stubFitments) Import(_ context.Context, in fitment.ImportInput) (*fitment.ImportResult, error) {
	s.lastImport = in
	return s.importResult, s.importErr
}

func (s *stubFitments) ListBoundaries(context.Context) ([]fitment.Boundary, error) {
	return nil, nil
}

func (s *stubFitments) SetBoundary(context.Context, fitment.BoundaryInput) (*fitment.Boundary, error) {
	return &fitment.Boundary{}, nil
}

func (s *stubFitments) DeleteBoundary(_ context.Context, mk, model string, year int) error {
	s.boundaryDel = []any{mk, model, year}
	return nil
}

func withURLParams(r *http.Request, kv ...string) *http.Request {
	rc := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rc.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestAdminFitmentListFilters(t *testing.T) {
	svc := &stubFitments{rows: []fitment.RecordDTO{{ID: uuid.New(), SKU: "UR100", Make: "Bentley", Model: "T Series"}}}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/fitments?sku=UR100&make=Bentley&page=2&limit=10", nil)
	resp := httptest.NewRecorder()
	AdminFitmentList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	want := fitment.ListFilter{SKU: "UR100", Make: "Bentley", Page: pagination.New(2, 10)}
	if svc.lastFilter != want {
		t.Fatalf("unexpected filter %+v", svc.lastFilter)
	}
	var env struct {
		Data []fitment.RecordDTO `json:"data"`
		Meta pagination.Meta     `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data) != 1 || env.Meta.Page != 2 || env.Meta.Total != 1 {
		t.Fatalf("unexpected body %+v", env)
	}
}

func TestAdminFitmentCreateValidates(t *testing.T) {
	svc := &stubFitments{}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/fitments", strings.NewReader(`{"sku":"UR100","make":"Bentley"}`))
	resp := httptest.NewRecorder()
	AdminFitmentCreate(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	body := `{"sku":"UR100","make":"Bentley","model":"T Series","chassisStart":"SBH1001","chassisEnd":"SBH2000"}`
	req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/fitments", strings.NewReader(body))
	resp = httptest.NewRecorder()
	AdminFitmentCreate(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastInput.ChassisStart == nil || *svc.lastInput.ChassisStart != "SBH1001" {
		t.Fatalf("unexpected input %+v", svc.lastInput)
	}
}

func TestAdminFitmentImport(t *testing.T) {
	svc := &stubFitments{importResult: &fitment.ImportResult{Created: 2, Replaced: true, Delimiter: "tab"}}
	body := `{"data":"UR100\tBentley\tT Series\nUR101\tBentley\tT Series","replace":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/fitments/import", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AdminFitmentImport(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !svc.lastImport.Replace || !strings.Contains(svc.lastImport.Data, "UR101") {
		t.Fatalf("unexpected import input %+v", svc.lastImport)
	}
}

func TestAdminFitmentImportReportsRowErrors(t *testing.T) {
	svc := &stubFitments{importErr: pkgerrors.Invalid("import rejected",
		pkgerrors.FieldError{Field: "row 2", Message: "make is required"})}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/fitments/import", strings.NewReader(`{"data":"UR100"}`))
	resp := httptest.NewRecorder()
	AdminFitmentImport(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "row 2") {
		t.Fatalf("expected row detail in body: %s", resp.Body.String())
	}
}

func TestAdminFitmentDelete(t *testing.T) {
	svc := &stubFitments{}
	id := uuid.New()
	req := withURLParams(httptest.NewRequest(http.MethodDelete, "/api/admin/v1/fitments/"+id.String(), nil), "fitmentId", id.String())
	resp := httptest.NewRecorder()
	AdminFitmentDelete(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if svc.deleted != id {
		t.Fatalf("expected %s deleted got %s", id, svc.deleted)
	}

	req = withURLParams(httptest.NewRequest(http.MethodDelete, "/api/admin/v1/fitments/nope", nil), "fitmentId", "nope")
	resp = httptest.NewRecorder()
	AdminFitmentDelete(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id got %d", resp.Code)
	}
}

func TestAdminBoundaryDelete(t *testing.T) {
	svc := &stubFitments{}
	req := withURLParams(httptest.NewRequest(http.MethodDelete, "/api/admin/v1/boundaries/Bentley/T%20Series/1970", nil),
		"make", "Bentley", "model", "T Series", "year", "1970")
	resp := httptest.NewRecorder()
	AdminBoundaryDelete(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if svc.boundaryDel[0] != "Bentley" || svc.boundaryDel[1] != "T Series" || svc.boundaryDel[2] != 1970 {
		t.Fatalf("unexpected delete args %v", svc.boundaryDel)
	}

	req = withURLParams(httptest.NewRequest(http.MethodDelete, "/", nil), "make", "Bentley", "model", "T Series", "year", "later")
	resp = httptest.NewRecorder()
	AdminBoundaryDelete(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type stubInvalidator struct {
	report fitment.Report
	calls  int
}

func (s *stubInvalidator) Invalidate(context.Context) (fitment.Report, error) {
	s.calls++
	return s.report, nil
}

func TestAdminCatalogReload(t *testing.T) {
	inv := &stubInvalidator{}
	resp := httptest.NewRecorder()
	AdminCatalogReload(inv, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/admin/v1/catalog/reload", nil))
	if resp.Code != http.StatusOK || inv.calls != 1 {
		t.Fatalf("expected one reload and 200, got %d calls=%d", resp.Code, inv.calls)
	}
}
