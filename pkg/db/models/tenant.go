package models

import (
	"time"

	"github.com/google/uuid"
)

// CompanyInfo is the reseller contact block shown on its storefront.
type CompanyInfo struct {
	LegalName string `json:"legalName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
	LogoURL   string `json:"logoUrl,omitempty"`
}

// Tenant is a reseller storefront.
type Tenant struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Slug            string            `gorm:"column:slug;not null;uniqueIndex:idx_tenants_slug"`
	Name            string            `gorm:"column:name;not null;uniqueIndex:idx_tenants_name"`
	Domain          *string           `gorm:"column:domain"`
	Colors          map[string]string `gorm:"column:colors;serializer:json"`
	CompanyInfo     CompanyInfo       `gorm:"column:company_info;serializer:json"`
	SKUFilter       *string           `gorm:"column:sku_filter"`
	ShowPrices      bool              `gorm:"column:show_prices;not null"`
	ShowCart        bool              `gorm:"column:show_cart;not null"`
	CheckoutEnabled bool              `gorm:"column:checkout_enabled;not null;default:false"`
	IsActive        bool              `gorm:"column:is_active;not null"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Tenant) TableName() string { return "tenants" }
