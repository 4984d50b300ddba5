package controllers

import (
	"net/http"
	"strings"

	"github.com/introcar/introcar-backend/api/responses"
	"github.com/introcar/introcar-backend/api/validators"
	"github.com/introcar/introcar-backend/internal/fitment"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/logger"
)

const maxVehicleParamLen = 100

type chassisRangeResponse struct {
	fitment.ChassisRange
	Label string `json:"label"`
}

type yearsResponse struct {
	Make      string `json:"make"`
	Model     string `json:"model"`
	YearStart int    `json:"yearStart"`
	YearEnd   int    `json:"yearEnd"`
	Years     []int  `json:"years"`
}

// ChassisRange answers GET /chassis?make&model&year with the span built
// that year, or 404 when no data covers it.
func ChassisRange(resolver fitment.Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mk := validators.QueryString(r, "make", maxVehicleParamLen)
		model := validators.QueryString(r, "model", maxVehicleParamLen)
		var fields []pkgerrors.FieldError
		if mk == "" {
			fields = append(fields, pkgerrors.FieldError{Field: "make", Message: "is required"})
		}
		if model == "" {
			fields = append(fields, pkgerrors.FieldError{Field: "model", Message: "is required"})
		}
		if strings.TrimSpace(r.URL.Query().Get("year")) == "" {
			fields = append(fields, pkgerrors.FieldError{Field: "year", Message: "is required"})
		}
		if len(fields) > 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Invalid("make, model and year are required", fields...))
			return
		}
		year, err := validators.ParseQueryInt(r, "year", 0, 1900, 2100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rng, ok, err := resolver.ResolveChassisRange(r.Context(), mk, model, year)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no chassis data for that year"))
			return
		}
		responses.WriteSuccess(w, chassisRangeResponse{ChassisRange: rng, Label: rng.Label()})
	}
}

// ChassisLookup identifies the vehicle a chassis number belongs to. Not
// found and ambiguous outcomes are successful responses; only a timed out
// lookup is an error.
func ChassisLookup(resolver fitment.Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := fitment.LookupRequest{
			Chassis: validators.QueryString(r, "chassis", 64),
			Make:    validators.QueryString(r, "make", maxVehicleParamLen),
			Model:   validators.QueryString(r, "model", maxVehicleParamLen),
		}

		result := resolver.LookupChassis(r.Context(), req)
		if result.Kind == fitment.LookupFailed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeLookupFailed, result.Message))
			return
		}
		if logg != nil {
			logg.Debug(logg.WithFields(r.Context(), map[string]any{
				"chassis": result.Chassis,
				"outcome": string(result.Kind),
			}), "chassis.lookup")
		}
		responses.WriteSuccess(w, result)
	}
}

func VehicleMakes(resolver fitment.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		makes := resolver.Catalog().ListMakes()
		if makes == nil {
			makes = []string{}
		}
		responses.WriteSuccess(w, makes)
	}
}

func VehicleModels(resolver fitment.Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mk := validators.QueryString(r, "make", maxVehicleParamLen)
		if mk == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Invalid("make is required", pkgerrors.FieldError{Field: "make", Message: "is required"}))
			return
		}
		list := resolver.Catalog().ListModels(mk)
		if list == nil {
			list = []string{}
		}
		responses.WriteSuccess(w, list)
	}
}

// VehicleYears returns the production years of a model.
func VehicleYears(resolver fitment.Resolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mk := validators.QueryString(r, "make", maxVehicleParamLen)
		model := validators.QueryString(r, "model", maxVehicleParamLen)
		if mk == "" || model == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Invalid("make and model are required",
				pkgerrors.FieldError{Field: "make", Message: "is required"},
				pkgerrors.FieldError{Field: "model", Message: "is required"}))
			return
		}

		catalog := resolver.Catalog()
		start, end, ok := catalog.YearRange(mk, model)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "unknown vehicle"))
			return
		}
		canonical, _ := catalog.Canonical(mk, model)
		years := make([]int, 0, end-start+1)
		for y := start; y <= end; y++ {
			if _, covered := catalog.SpanFor(mk, model, y); covered {
				years = append(years, y)
			}
		}
		responses.WriteSuccess(w, yearsResponse{
			Make:      canonical.Make,
			Model:     canonical.Model,
			YearStart: start,
			YearEnd:   end,
			Years:     years,
		})
	}
}
