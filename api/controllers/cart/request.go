package cart

import (
	"context"

	"github.com/introcar/introcar-backend/api/middleware"
	cartsvc "github.com/introcar/introcar-backend/internal/cart"
)

type addItemRequest struct {
	SKU      string `json:"sku" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"omitempty,min=1,max=999"`
}

type updateItemRequest struct {
	Op       string `json:"op" validate:"omitempty,oneof=set increment decrement"`
	Quantity int    `json:"quantity" validate:"min=0,max=999"`
}

// SessionFromContext builds the cart session for the request's storefront.
// Main-site carts carry no tenant rules.
func SessionFromContext(ctx context.Context) cartsvc.Session {
	sess := cartsvc.Session{ID: middleware.CartSessionFromContext(ctx)}
	tenant := middleware.TenantFromContext(ctx)
	if tenant == nil {
		return sess
	}
	sess.Tenant = tenant.Slug
	if tenant.SKUFilter != nil {
		sess.SKUFilter = *tenant.SKUFilter
	}
	sess.CartOff = !tenant.ShowCart
	sess.HidePrices = !tenant.ShowPrices
	return sess
}
