package products

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/enums"
)

// ProductDTO is the storefront view of a part. Price is nil when the tenant
// hides prices.
type ProductDTO struct {
	SKU            string           `json:"sku"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	Subcategory    *string          `json:"subcategory,omitempty"`
	StockType      enums.StockType  `json:"stockType"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Weight         decimal.Decimal  `json:"weight"`
	ImageURL       *string          `json:"imageUrl,omitempty"`
	Popularity     int              `json:"popularity"`
	NLA            bool             `json:"nla"`
	NLADate        *time.Time       `json:"nlaDate,omitempty"`
	SupersededFrom string           `json:"supersededFrom,omitempty"`
	FitmentNotes   []string         `json:"fitmentNotes,omitempty"`
}

// FromModel maps a product row. showPrice false omits the price.
func FromModel(m models.Product, showPrice bool) ProductDTO {
	dto := ProductDTO{
		SKU:         m.SKU,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		Subcategory: m.Subcategory,
		StockType:   m.StockType,
		Weight:      m.Weight,
		ImageURL:    m.ImageURL,
		Popularity:  m.Popularity,
		NLA:         m.NLA,
		NLADate:     m.NLADate,
	}
	if showPrice {
		price := m.Price
		dto.Price = &price
	}
	return dto
}

// UpsertInput is an admin product write.
type UpsertInput struct {
	SKU         string          `json:"sku" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=4000"`
	Category    string          `json:"category" validate:"required,max=100"`
	Subcategory *string         `json:"subcategory,omitempty" validate:"omitempty,max=100"`
	StockType   enums.StockType `json:"stockType" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Weight      decimal.Decimal `json:"weight"`
	ImageURL    *string         `json:"imageUrl,omitempty" validate:"omitempty,url"`
	Popularity  int             `json:"popularity" validate:"min=0"`
	NLA         bool            `json:"nla"`
	NLADate     *time.Time      `json:"nlaDate,omitempty"`
	IsActive    *bool           `json:"isActive,omitempty"`
	Tags        []string        `json:"tags,omitempty" validate:"omitempty,dive,required,max=64"`
}
