package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/introcar/introcar-backend/api/middleware"
	cartsvc "github.com/introcar/introcar-backend/internal/cart"
	"github.com/introcar/introcar-backend/pkg/db/models"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
)

type stubCartService struct {
	view     *cartsvc.View
	err      error
	lastSess cartsvc.Session
	lastSKU  string
	lastOp   string
	lastQty  int
	cleared  bool
}

func (s *stubCartService) Get(_ context.Context, sess cartsvc.Session) (*cartsvc.View, error) {
	s.lastSess = sess
	return s.view, s.err
}

func (s *stubCartService) Add(_ context.Context, sess cartsvc.Session, sku string, quantity int) (*cartsvc.View, error) {
	s.lastSess, s.lastSKU, s.lastQty = sess, sku, quantity
	return s.view, s.err
}

func (s *stubCartService) Update(_ context.Context, sess cartsvc.Session, sku, op string, quantity int) (*cartsvc.View, error) {
	s.lastSess, s.lastSKU, s.lastOp, s.lastQty = sess, sku, op, quantity
	return s.view, s.err
}

func (s *stubCartService) Remove(_ context.Context, sess cartsvc.Session, sku string) (*cartsvc.View, error) {
	s.lastSess, s.lastSKU = sess, sku
	return s.view, s.err
}

func (s *stubCartService) Clear(_ context.Context, sess cartsvc.Session) error {
	s.lastSess = sess
	s.cleared = true
	return s.err
}

func (s *stubCartService) Load(context.Context, cartsvc.Session) (cartsvc.Cart, error) {
	return cartsvc.Cart{}, s.err
}

func withSession(r *http.Request, id string, tenant *models.Tenant) *http.Request {
	r.Header.Set("X-Cart-Session", id)
	var captured *http.Request
	middleware.CartSession(nil)(http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
		captured = req
	})).ServeHTTP(httptest.NewRecorder(), r)
	if tenant != nil {
		captured = captured.WithContext(middleware.WithTenant(captured.Context(), tenant))
	}
	return captured
}

func withSKUParam(r *http.Request, sku string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("sku", sku)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestCartFetchBuildsTenantSession(t *testing.T) {
	filter := "acme"
	tenant := &models.Tenant{Slug: "acme", SKUFilter: &filter, ShowCart: true, ShowPrices: false}
	svc := &stubCartService{view: &cartsvc.View{Items: []cartsvc.LineView{}, Count: 0}}

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil), "sess-1", tenant)
	resp := httptest.NewRecorder()
	CartFetch(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	want := cartsvc.Session{ID: "sess-1", Tenant: "acme", SKUFilter: "acme", HidePrices: true}
	if svc.lastSess != want {
		t.Fatalf("unexpected session %+v", svc.lastSess)
	}
}

func TestCartAddItemDecodesPayload(t *testing.T) {
	svc := &stubCartService{view: &cartsvc.View{Items: []cartsvc.LineView{{SKU: "UR12345", Quantity: 2}}, Count: 2}}

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"sku":"ur12345","quantity":2}`)), "sess-1", nil)
	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastSKU != "ur12345" || svc.lastQty != 2 {
		t.Fatalf("unexpected call sku=%s qty=%d", svc.lastSKU, svc.lastQty)
	}
	var envelope struct {
		Data cartsvc.View `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Count != 2 {
		t.Fatalf("expected count 2 got %d", envelope.Data.Count)
	}
}

func TestCartAddItemRejectsMissingSKU(t *testing.T) {
	svc := &stubCartService{}
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"quantity":1}`)), "sess-1", nil)
	resp := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Details []pkgerrors.FieldError `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Error.Details) != 1 || envelope.Error.Details[0].Field != "sku" {
		t.Fatalf("unexpected details %+v", envelope.Error.Details)
	}
}

func TestCartUpdateItemPassesOperation(t *testing.T) {
	svc := &stubCartService{view: &cartsvc.View{}}
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/UR1", strings.NewReader(`{"op":"increment"}`))
	req = withSKUParam(withSession(req, "sess-1", nil), "UR1")
	resp := httptest.NewRecorder()
	CartUpdateItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastOp != cartsvc.OpIncrement || svc.lastSKU != "UR1" {
		t.Fatalf("unexpected call op=%s sku=%s", svc.lastOp, svc.lastSKU)
	}
}

func TestCartUpdateItemRejectsUnknownOperation(t *testing.T) {
	svc := &stubCartService{view: &cartsvc.View{}}
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cart/items/UR1", strings.NewReader(`{"op":"double"}`))
	req = withSKUParam(withSession(req, "sess-1", nil), "UR1")
	resp := httptest.NewRecorder()
	CartUpdateItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartServiceErrorsPropagate(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeForbidden, "cart disabled for this storefront")}
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/UR1", nil)
	req = withSKUParam(withSession(req, "sess-1", nil), "UR1")
	resp := httptest.NewRecorder()
	CartRemoveItem(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestCartClear(t *testing.T) {
	svc := &stubCartService{}
	req := withSession(httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil), "sess-1", nil)
	resp := httptest.NewRecorder()
	CartClear(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if !svc.cleared {
		t.Fatalf("expected clear to be called")
	}
}
