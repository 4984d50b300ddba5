package controllers

import (
	"context"
	"net/http"

	"github.com/introcar/introcar-backend/api/middleware"
	"github.com/introcar/introcar-backend/api/responses"
	"github.com/introcar/introcar-backend/api/validators"
	"github.com/introcar/introcar-backend/internal/search"
	"github.com/introcar/introcar-backend/pkg/enums"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/pagination"
)

// scopeFromContext maps the resolved tenant onto search visibility rules.
func scopeFromContext(ctx context.Context) search.Scope {
	tenant := middleware.TenantFromContext(ctx)
	if tenant == nil {
		return search.Scope{}
	}
	scope := search.Scope{Tenant: tenant.Slug, HidePrices: !tenant.ShowPrices}
	if tenant.SKUFilter != nil {
		scope.SKUFilter = *tenant.SKUFilter
	}
	return scope
}

// ProductSearch serves the storefront listing. The vehicle and chassis
// filters go through the fitment resolver; everything else is a product
// filter.
func ProductSearch(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search service unavailable"))
			return
		}

		criteria, err := parseCriteria(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		criteria.Scope = scopeFromContext(r.Context())

		result, err := svc.Search(r.Context(), criteria)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseCriteria(r *http.Request) (search.Criteria, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 100000)
	if err != nil {
		return search.Criteria{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return search.Criteria{}, err
	}

	c := search.Criteria{
		Search:      validators.QueryString(r, "search", 200),
		Make:        validators.QueryString(r, "make", maxVehicleParamLen),
		Model:       validators.QueryString(r, "model", maxVehicleParamLen),
		Chassis:     validators.QueryString(r, "chassis", 64),
		Category:    validators.QueryString(r, "category", 100),
		Subcategory: validators.QueryString(r, "subcategory", 100),
		Page:        pagination.New(page, limit),
	}

	if raw := validators.QueryString(r, "stockType", 32); raw != "" {
		st, err := enums.ParseStockType(raw)
		if err != nil {
			return search.Criteria{}, pkgerrors.Invalid("invalid stock type", pkgerrors.FieldError{Field: "stockType", Message: err.Error()})
		}
		c.StockType = st
	}
	sort, err := enums.ParseProductSort(validators.QueryString(r, "sort", 32))
	if err != nil {
		return search.Criteria{}, pkgerrors.Invalid("invalid sort", pkgerrors.FieldError{Field: "sort", Message: err.Error()})
	}
	c.Sort = sort
	return c, nil
}

// RelatedParts lists parts fitted to the same vehicles as ?sku.
func RelatedParts(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		parts, err := svc.RelatedParts(r.Context(), validators.QueryString(r, "sku", 64), limit, scopeFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if parts == nil {
			parts = []search.RelatedPart{}
		}
		responses.WriteSuccess(w, parts)
	}
}
