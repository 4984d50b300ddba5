package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/introcar/introcar-backend/pkg/enums"
)

// Order captures a submitted cart, either bound for hosted payment or
// recorded as a reseller pay-by-check order.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	TenantID          *uuid.UUID        `gorm:"column:tenant_id;type:uuid"`
	Kind              enums.OrderKind   `gorm:"column:kind;not null"`
	Status            enums.OrderStatus `gorm:"column:status;not null"`
	CustomerName      string            `gorm:"column:customer_name;not null"`
	CustomerEmail     string            `gorm:"column:customer_email;not null"`
	CustomerPhone     *string           `gorm:"column:customer_phone"`
	ShipAddress       *string           `gorm:"column:ship_address"`
	PONumber          *string           `gorm:"column:po_number"`
	Notes             *string           `gorm:"column:notes"`
	Currency          string            `gorm:"column:currency;not null"`
	Total             decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentLinkID     *string           `gorm:"column:payment_link_id"`
	PaymentURL        *string           `gorm:"column:payment_url"`
	ProviderOrderID   *string           `gorm:"column:provider_order_id;uniqueIndex:ux_orders_provider_order"`
	ProviderPaymentID *string           `gorm:"column:provider_payment_id"`
	Lines             []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

type OrderLine struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index:idx_order_lines_order"`
	SKU            string          `gorm:"column:sku;not null"`
	SupersededFrom *string         `gorm:"column:superseded_from"`
	Description    string          `gorm:"column:description;not null"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity       int             `gorm:"column:quantity;not null"`
	LineTotal      decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
}

func (OrderLine) TableName() string { return "order_lines" }
