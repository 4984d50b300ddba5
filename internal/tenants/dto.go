package tenants

import (
	"time"

	"github.com/google/uuid"

	"github.com/introcar/introcar-backend/pkg/db/models"
)

// TenantDTO is the admin view of a tenant.
type TenantDTO struct {
	ID              uuid.UUID          `json:"id"`
	Slug            string             `json:"slug"`
	Name            string             `json:"name"`
	Domain          *string            `json:"domain,omitempty"`
	Colors          map[string]string  `json:"colors"`
	CompanyInfo     models.CompanyInfo `json:"companyInfo"`
	SKUFilter       *string            `json:"skuFilter,omitempty"`
	ShowPrices      bool               `json:"showPrices"`
	ShowCart        bool               `json:"showCart"`
	CheckoutEnabled bool               `json:"checkoutEnabled"`
	IsActive        bool               `json:"isActive"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func FromModel(m models.Tenant) TenantDTO {
	colors := m.Colors
	if colors == nil {
		colors = map[string]string{}
	}
	return TenantDTO{
		ID:              m.ID,
		Slug:            m.Slug,
		Name:            m.Name,
		Domain:          m.Domain,
		Colors:          colors,
		CompanyInfo:     m.CompanyInfo,
		SKUFilter:       m.SKUFilter,
		ShowPrices:      m.ShowPrices,
		ShowCart:        m.ShowCart,
		CheckoutEnabled: m.CheckoutEnabled,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// PublicDTO is the branding and feature block a storefront renders. The SKU
// filter stays server side.
type PublicDTO struct {
	Slug            string             `json:"slug"`
	Name            string             `json:"name"`
	Domain          *string            `json:"domain,omitempty"`
	Colors          map[string]string  `json:"colors"`
	CompanyInfo     models.CompanyInfo `json:"companyInfo"`
	ShowPrices      bool               `json:"showPrices"`
	ShowCart        bool               `json:"showCart"`
	CheckoutEnabled bool               `json:"checkoutEnabled"`
}

func PublicFromModel(m models.Tenant) PublicDTO {
	full := FromModel(m)
	return PublicDTO{
		Slug:            full.Slug,
		Name:            full.Name,
		Domain:          full.Domain,
		Colors:          full.Colors,
		CompanyInfo:     full.CompanyInfo,
		ShowPrices:      full.ShowPrices,
		ShowCart:        full.ShowCart,
		CheckoutEnabled: full.CheckoutEnabled,
	}
}

// Input is an admin create or full update. Omitted flags default to on,
// except checkout which resellers opt into.
type Input struct {
	Slug            string             `json:"slug" validate:"required,max=64"`
	Name            string             `json:"name" validate:"required,max=255"`
	Domain          *string            `json:"domain,omitempty" validate:"omitempty,max=255"`
	Colors          map[string]string  `json:"colors,omitempty"`
	CompanyInfo     models.CompanyInfo `json:"companyInfo"`
	SKUFilter       *string            `json:"skuFilter,omitempty" validate:"omitempty,max=100"`
	ShowPrices      *bool              `json:"showPrices,omitempty"`
	ShowCart        *bool              `json:"showCart,omitempty"`
	CheckoutEnabled bool               `json:"checkoutEnabled"`
	IsActive        *bool              `json:"isActive,omitempty"`
}
