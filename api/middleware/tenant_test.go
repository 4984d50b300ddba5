package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/introcar/introcar-backend/pkg/db/models"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
)

type stubTenantResolver struct {
	tenants map[string]*models.Tenant
	calls   int
}

func (s *stubTenantResolver) Resolve(_ context.Context, slug string) (*models.Tenant, error) {
	s.calls++
	if t, ok := s.tenants[slug]; ok {
		return t, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
}

func TestTenantMiddleware(t *testing.T) {
	resolver := &stubTenantResolver{tenants: map[string]*models.Tenant{
		"acme": {Slug: "acme", Name: "Acme Motors"},
	}}

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
		wantSlug string
	}{
		{"main site", "", "", http.StatusOK, ""},
		{"header", "acme", "", http.StatusOK, "acme"},
		{"query param", "", "acme", http.StatusOK, "acme"},
		{"unknown tenant", "ghost", "", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSlug string
			handler := Tenant(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tenant := TenantFromContext(r.Context()); tenant != nil {
					gotSlug = tenant.Slug
				}
				w.WriteHeader(http.StatusOK)
			}))

			target := "/api/v1/products"
			if tt.query != "" {
				target += "?tenant=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set(tenantHeader, tt.header)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			if resp.Code != tt.wantCode {
				t.Fatalf("expected %d got %d", tt.wantCode, resp.Code)
			}
			if gotSlug != tt.wantSlug {
				t.Fatalf("expected tenant %q got %q", tt.wantSlug, gotSlug)
			}
		})
	}
}

func TestCartSessionMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"present", "  sess-123 ", "sess-123"},
		{"missing", "", ""},
		{"too long", strings.Repeat("x", 129), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := CartSession(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = CartSessionFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
			if tt.header != "" {
				req.Header.Set(cartSessionHeader, tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Fatalf("expected session %q got %q", tt.want, got)
			}
		})
	}
}
