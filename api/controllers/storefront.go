package controllers

import (
	"context"
	"net/http"

	"github.com/introcar/introcar-backend/api/responses"
	"github.com/introcar/introcar-backend/api/validators"
	"github.com/introcar/introcar-backend/internal/cms"
	"github.com/introcar/introcar-backend/internal/tenants"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/logger"
)

type tenantResolver interface {
	Resolve(ctx context.Context, slug string) (*models.Tenant, error)
}

// TenantConfig returns the public branding and feature flags of an active
// reseller. The SKU filter is never exposed.
func TenantConfig(resolver tenantResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug, err := validators.PathParam(r, "slug")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tenant, err := resolver.Resolve(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tenants.PublicFromModel(*tenant))
	}
}

func PublishedPage(svc cms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug, err := validators.PathParam(r, "slug")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.PublishedPage(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ActiveVideos(svc cms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := svc.ListVideos(r.Context(), true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if videos == nil {
			videos = []cms.Video{}
		}
		responses.WriteSuccess(w, videos)
	}
}
