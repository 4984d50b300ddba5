package controllers

import (
	"net/http"

	"github.com/introcar/introcar-backend/api/responses"
	"github.com/introcar/introcar-backend/api/validators"
	"github.com/introcar/introcar-backend/internal/products"
	"github.com/introcar/introcar-backend/internal/supersession"
	"github.com/introcar/introcar-backend/pkg/logger"
)

type productDetailResponse struct {
	Product *products.ProductDTO `json:"product"`
	Tags    []string             `json:"tags"`
}

type tagsRequest struct {
	Tags []string `json:"tags" validate:"omitempty,dive,required,max=64"`
}

func AdminSupersessionList(svc supersession.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if rows == nil {
			rows = []supersession.Entry{}
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminSupersessionCreate records that oldSku was replaced by newSku.
// Edges that would close a cycle are rejected.
func AdminSupersessionCreate(svc supersession.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload supersession.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func AdminSupersessionUpdate(svc supersession.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oldSKU, err := validators.PathParam(r, "oldSku")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload supersession.Input
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := svc.Update(r.Context(), oldSKU, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

func AdminSupersessionDelete(svc supersession.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		oldSKU, err := validators.PathParam(r, "oldSku")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), oldSKU); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func AdminProductGet(svc products.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku, err := validators.PathParam(r, "sku")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, tags, err := svc.Get(r.Context(), sku)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if tags == nil {
			tags = []string{}
		}
		responses.WriteSuccess(w, productDetailResponse{Product: product, Tags: tags})
	}
}

// AdminProductUpsert creates or replaces a product keyed by SKU.
func AdminProductUpsert(svc products.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload products.UpsertInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Upsert(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminProductTags replaces the tenant tags of a product.
func AdminProductTags(svc products.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku, err := validators.PathParam(r, "sku")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload tagsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tags, err := svc.SetTags(r.Context(), sku, payload.Tags)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if tags == nil {
			tags = []string{}
		}
		responses.WriteSuccess(w, tags)
	}
}
