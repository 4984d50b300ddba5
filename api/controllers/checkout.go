package controllers

import (
	"context"
	"net/http"
	"strings"

	cartcontrollers "github.com/introcar/introcar-backend/api/controllers/cart"
	"github.com/introcar/introcar-backend/api/middleware"
	"github.com/introcar/introcar-backend/api/responses"
	"github.com/introcar/introcar-backend/api/validators"
	checkoutsvc "github.com/introcar/introcar-backend/internal/checkout"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/logger"
)

func storefrontFromContext(ctx context.Context) checkoutsvc.Storefront {
	sf := checkoutsvc.Storefront{Session: cartcontrollers.SessionFromContext(ctx)}
	if tenant := middleware.TenantFromContext(ctx); tenant != nil {
		id := tenant.ID
		sf.TenantID = &id
		sf.CheckoutEnabled = tenant.CheckoutEnabled
	}
	return sf
}

func requireCartSession(ctx context.Context) error {
	if middleware.CartSessionFromContext(ctx) == "" {
		return pkgerrors.Invalid("cart session required", pkgerrors.FieldError{Field: "X-Cart-Session", Message: "is required"})
	}
	return nil
}

// Checkout places a hosted-payment order from the session cart and returns
// the payment page URL. Repeats are answered by the idempotency middleware.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		if err := requireCartSession(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutsvc.HostedInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))

		receipt, err := svc.Hosted(r.Context(), storefrontFromContext(r.Context()), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

// ResellerCheckout captures a pay-by-check order on a reseller storefront.
func ResellerCheckout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		if err := requireCartSession(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutsvc.ResellerInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		receipt, err := svc.Reseller(r.Context(), storefrontFromContext(r.Context()), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}
