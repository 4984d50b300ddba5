package square

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"github.com/square/square-go-sdk/checkout"
)

// PaymentLink is the hosted checkout page created for an order.
type PaymentLink struct {
	ID      string
	URL     string
	OrderID string
}

// LineItem is one priced order line.
type LineItem struct {
	Name      string
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
}

// PaymentLinkParams describes the order behind a hosted checkout page.
type PaymentLinkParams struct {
	ReferenceID    string
	Currency       string
	Lines          []LineItem
	BuyerEmail     string
	RedirectURL    string
	IdempotencyKey string
}

func (p PaymentLinkParams) validate() error {
	if len(p.Lines) == 0 {
		return errors.New("payment link requires at least one line")
	}
	for _, line := range p.Lines {
		if line.Quantity <= 0 {
			return errors.New("line quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return errors.New("line price must not be negative")
		}
	}
	return nil
}

func (p PaymentLinkParams) toSquareRequest(locationID, idempotencyKey string) *checkout.CreatePaymentLinkRequest {
	items := make([]*sq.OrderLineItem, 0, len(p.Lines))
	for _, line := range p.Lines {
		items = append(items, &sq.OrderLineItem{
			Name:           ptrString(line.Name),
			Note:           ptrString(line.SKU),
			Quantity:       strconv.Itoa(line.Quantity),
			BasePriceMoney: moneyPtr(toMinorUnits(line.UnitPrice), p.Currency),
		})
	}
	req := &checkout.CreatePaymentLinkRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		Order: &sq.Order{
			LocationID:  locationID,
			ReferenceID: ptrString(p.ReferenceID),
			LineItems:   items,
		},
	}
	if trimmed := strings.TrimSpace(p.RedirectURL); trimmed != "" {
		req.CheckoutOptions = &sq.CheckoutOptions{RedirectURL: ptrString(trimmed)}
	}
	if trimmed := strings.TrimSpace(p.BuyerEmail); trimmed != "" {
		req.PrePopulatedData = &sq.PrePopulatedData{BuyerEmail: ptrString(trimmed)}
	}
	return req
}

// toMinorUnits converts a two-decimal amount to cents.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

// moneyPtr always returns a value: Square requires a base price even for
// zero-priced lines.
func moneyPtr(amount int64, currency string) *sq.Money {
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
