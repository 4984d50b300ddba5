package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/introcar/introcar-backend/api/responses"
	"github.com/introcar/introcar-backend/api/validators"
	"github.com/introcar/introcar-backend/internal/fitment"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/pagination"
)

// AdminFitmentList pages fitment records, optionally filtered by sku, make
// and model.
func AdminFitmentList(svc fitment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := parsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, meta, err := svc.List(r.Context(), fitment.ListFilter{
			SKU:   validators.QueryString(r, "sku", 64),
			Make:  validators.QueryString(r, "make", maxVehicleParamLen),
			Model: validators.QueryString(r, "model", maxVehicleParamLen),
			Page:  page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if rows == nil {
			rows = []fitment.RecordDTO{}
		}
		responses.WriteList(w, rows, meta)
	}
}

func AdminFitmentGet(svc fitment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "fitmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

func AdminFitmentCreate(svc fitment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload fitment.RecordInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

func AdminFitmentUpdate(svc fitment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "fitmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload fitment.RecordInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.Update(r.Context(), id, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

func AdminFitmentDelete(svc fitment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "fitmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AdminFitmentImport bulk loads pasted spreadsheet rows. Any bad row fails
// the whole import with per-row details.
func AdminFitmentImport(svc fitment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload fitment.ImportInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Import(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithFields(r.Context(), map[string]any{
				"created":  result.Created,
				"replaced": result.Replaced,
			}), "fitment.import")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func AdminBoundaryList(svc fitment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListBoundaries(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if rows == nil {
			rows = []fitment.Boundary{}
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminBoundarySet upserts the explicit chassis span of one production year.
func AdminBoundarySet(svc fitment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload fitment.BoundaryInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.SetBoundary(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

func AdminBoundaryDelete(svc fitment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mk, err := validators.PathParam(r, "make")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		model, err := validators.PathParam(r, "model")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rawYear, err := validators.PathParam(r, "year")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		year, convErr := strconv.Atoi(rawYear)
		if convErr != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Invalid("invalid year", pkgerrors.FieldError{Field: "year", Message: "must be numeric"}))
			return
		}
		if err := svc.DeleteBoundary(r.Context(), mk, model, year); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

type catalogInvalidator interface {
	Invalidate(ctx context.Context) (fitment.Report, error)
}

// AdminCatalogReload rebuilds the local index and notifies peer instances.
func AdminCatalogReload(syncer catalogInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := syncer.Invalidate(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func parsePage(r *http.Request) (pagination.Page, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 100000)
	if err != nil {
		return pagination.Page{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Page{}, err
	}
	return pagination.New(page, limit), nil
}
