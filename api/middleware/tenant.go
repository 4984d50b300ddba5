package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/introcar/introcar-backend/api/responses"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/logger"
)

const (
	tenantHeader      = "X-Tenant"
	tenantQueryParam  = "tenant"
	cartSessionHeader = "X-Cart-Session"
)

type tenantResolver interface {
	Resolve(ctx context.Context, slug string) (*models.Tenant, error)
}

// Tenant resolves the reseller storefront named by the X-Tenant header or
// the tenant query parameter. Requests without either run as the main site.
func Tenant(resolver tenantResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := strings.TrimSpace(r.Header.Get(tenantHeader))
			if slug == "" {
				slug = strings.TrimSpace(r.URL.Query().Get(tenantQueryParam))
			}
			if slug == "" || resolver == nil {
				next.ServeHTTP(w, r)
				return
			}

			tenant, err := resolver.Resolve(r.Context(), slug)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithTenant(r.Context(), tenant)
			if logg != nil {
				ctx = logg.WithTenant(ctx, tenant.Slug)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CartSession lifts the client cart id into the context. Handlers decide
// whether a missing session is an error.
func CartSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(cartSessionHeader))
			if id == "" || len(id) > 128 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), ctxCartSession, id)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
