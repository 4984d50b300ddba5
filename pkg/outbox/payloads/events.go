package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/introcar/introcar-backend/pkg/enums"
)

// OrderLine is the priced line as captured at order time.
type OrderLine struct {
	SKU            string          `json:"sku"`
	SupersededFrom string          `json:"supersededFrom,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	LineTotal      decimal.Decimal `json:"lineTotal"`
}

// OrderPlacedEvent is emitted for both hosted and reseller orders.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID         `json:"orderId"`
	Kind          enums.OrderKind   `json:"kind"`
	Status        enums.OrderStatus `json:"status"`
	TenantSlug    string            `json:"tenantSlug,omitempty"`
	CustomerEmail string            `json:"customerEmail"`
	PONumber      string            `json:"poNumber,omitempty"`
	Currency      string            `json:"currency"`
	Total         decimal.Decimal   `json:"total"`
	Lines         []OrderLine       `json:"lines"`
}

// PaymentLinkIssuedEvent records the hosted payment link bound to an order.
type PaymentLinkIssuedEvent struct {
	OrderID       uuid.UUID `json:"orderId"`
	PaymentLinkID string    `json:"paymentLinkId"`
	PaymentURL    string    `json:"paymentUrl"`
}

// OrderPaymentSettledEvent records the provider outcome of a hosted payment.
type OrderPaymentSettledEvent struct {
	OrderID           uuid.UUID         `json:"orderId"`
	Status            enums.OrderStatus `json:"status"`
	ProviderOrderID   string            `json:"providerOrderId"`
	ProviderPaymentID string            `json:"providerPaymentId"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
}

// OrderExpiredEvent is emitted when an unpaid hosted order times out.
type OrderExpiredEvent struct {
	OrderID       uuid.UUID `json:"orderId"`
	PaymentLinkID string    `json:"paymentLinkId,omitempty"`
	PlacedAt      time.Time `json:"placedAt"`
	ExpiredAt     time.Time `json:"expiredAt"`
}
