package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/introcar/introcar-backend/pkg/enums"
)

// Product is a sellable part keyed by SKU.
type Product struct {
	SKU         string          `gorm:"column:sku;primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	Category    string          `gorm:"column:category;not null;index:idx_products_category"`
	Subcategory *string         `gorm:"column:subcategory"`
	StockType   enums.StockType `gorm:"column:stock_type;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Weight      decimal.Decimal `gorm:"column:weight;type:numeric(10,3);not null;default:0"`
	ImageURL    *string         `gorm:"column:image_url"`
	Popularity  int             `gorm:"column:popularity;not null;default:0"`
	NLA         bool            `gorm:"column:nla;not null;default:false"`
	NLADate     *time.Time      `gorm:"column:nla_date"`
	IsActive    bool            `gorm:"column:is_active;not null"`
	Tags        []ProductTag    `gorm:"foreignKey:SKU;references:SKU;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

// ProductTag scopes a SKU into a tenant catalog.
type ProductTag struct {
	SKU string `gorm:"column:sku;primaryKey"`
	Tag string `gorm:"column:tag;primaryKey;index:idx_product_tags_tag"`
}

func (ProductTag) TableName() string { return "product_tags" }
