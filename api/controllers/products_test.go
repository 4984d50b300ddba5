package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/introcar/introcar-backend/api/middleware"
	"github.com/introcar/introcar-backend/internal/search"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/enums"
	"github.com/introcar/introcar-backend/pkg/pagination"
)

type stubSearch struct {
	lastCriteria search.Criteria
	lastSKU      string
	lastLimit    int
	lastScope    search.Scope
}

func (s *stubSearch) Search(_ context.Context, c search.Criteria) (*search.Result, error) {
	s.lastCriteria = c
	return &search.Result{}, nil
}

func (s *stubSearch) RelatedParts(_ context.Context, sku string, limit int, scope search.Scope) ([]search.RelatedPart, error) {
	s.lastSKU, s.lastLimit, s.lastScope = sku, limit, scope
	return nil, nil
}

func TestProductSearchParsesCriteria(t *testing.T) {
	svc := &stubSearch{}
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/products?search=UR12345&make=Bentley&model=T+Series&chassis=SBH1001&category=Brakes&stockType=genuine&sort=price_desc&page=3&limit=24", nil)
	resp := httptest.NewRecorder()
	ProductSearch(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	want := search.Criteria{
		Search:    "UR12345",
		Make:      "Bentley",
		Model:     "T Series",
		Chassis:   "SBH1001",
		Category:  "Brakes",
		StockType: enums.StockTypeGenuine,
		Sort:      enums.ProductSortPriceDesc,
		Page:      pagination.New(3, 24),
	}
	if svc.lastCriteria != want {
		t.Fatalf("unexpected criteria\n got %+v\nwant %+v", svc.lastCriteria, want)
	}
}

func TestProductSearchDefaults(t *testing.T) {
	svc := &stubSearch{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	ProductSearch(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastCriteria.Sort != enums.ProductSortRelevance {
		t.Fatalf("expected relevance sort, got %q", svc.lastCriteria.Sort)
	}
	if svc.lastCriteria.Page.Number != 1 || svc.lastCriteria.Page.Limit != pagination.DefaultLimit {
		t.Fatalf("unexpected page %+v", svc.lastCriteria.Page)
	}
	if svc.lastCriteria.Scope != (search.Scope{}) {
		t.Fatalf("main site must have an empty scope, got %+v", svc.lastCriteria.Scope)
	}
}

func TestProductSearchRejectsBadParams(t *testing.T) {
	for _, query := range []string{"stockType=new", "sort=random", "page=0", "limit=abc"} {
		t.Run(query, func(t *testing.T) {
			svc := &stubSearch{}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products?"+query, nil)
			resp := httptest.NewRecorder()
			ProductSearch(svc, nil).ServeHTTP(resp, req)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
		})
	}
}

func TestProductSearchTenantScope(t *testing.T) {
	filter := "Acme"
	tenant := &models.Tenant{Slug: "acme", SKUFilter: &filter, ShowPrices: false}
	svc := &stubSearch{}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req = req.WithContext(middleware.WithTenant(req.Context(), tenant))
	resp := httptest.NewRecorder()
	ProductSearch(svc, nil).ServeHTTP(resp, req)

	want := search.Scope{Tenant: "acme", SKUFilter: "Acme", HidePrices: true}
	if svc.lastCriteria.Scope != want {
		t.Fatalf("unexpected scope %+v", svc.lastCriteria.Scope)
	}
}

func TestRelatedPartsReturnsEmptyList(t *testing.T) {
	svc := &stubSearch{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/related-parts?sku=UR100&limit=6", nil)
	resp := httptest.NewRecorder()
	RelatedParts(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastSKU != "UR100" || svc.lastLimit != 6 {
		t.Fatalf("unexpected call sku=%q limit=%d", svc.lastSKU, svc.lastLimit)
	}
	if got := resp.Body.String(); got != "{\"data\":[]}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}
