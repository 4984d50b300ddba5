// Package cart keeps a per-session shopping cart in Redis.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/introcar/introcar-backend/pkg/enums"
)

// Line is one SKU in a cart. Price is captured when the line is added.
type Line struct {
	SKU            string          `json:"sku"`
	SupersededFrom string          `json:"supersededFrom,omitempty"`
	Description    string          `json:"description"`
	StockType      enums.StockType `json:"stockType"`
	ImageURL       *string         `json:"image,omitempty"`
	Weight         decimal.Decimal `json:"weight"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
}

// Cart is the stored document.
type Cart struct {
	Items []Line `json:"items"`
}

func (c *Cart) find(sku string) int {
	for i, line := range c.Items {
		if line.SKU == sku {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// Subtotal sums price times quantity over every line.
func (c Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Items {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Weight sums line weight times quantity.
func (c Cart) Weight() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Items {
		total = total.Add(line.Weight.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

// Count is the total number of units.
func (c Cart) Count() int {
	n := 0
	for _, line := range c.Items {
		n += line.Quantity
	}
	return n
}

// LineView is a cart line as returned to the storefront.
type LineView struct {
	SKU            string           `json:"sku"`
	SupersededFrom string           `json:"supersededFrom,omitempty"`
	Description    string           `json:"description"`
	StockType      enums.StockType  `json:"stockType"`
	ImageURL       *string          `json:"image,omitempty"`
	Weight         decimal.Decimal  `json:"weight"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	Quantity       int              `json:"quantity"`
}

// View is the storefront rendering of a cart. Prices are omitted when the
// tenant hides them.
type View struct {
	Items    []LineView       `json:"items"`
	Count    int              `json:"count"`
	Weight   decimal.Decimal  `json:"weight"`
	Subtotal *decimal.Decimal `json:"subtotal,omitempty"`
}

func viewOf(c Cart, showPrices bool) View {
	v := View{Items: make([]LineView, 0, len(c.Items)), Count: c.Count(), Weight: c.Weight()}
	for _, line := range c.Items {
		lv := LineView{
			SKU:            line.SKU,
			SupersededFrom: line.SupersededFrom,
			Description:    line.Description,
			StockType:      line.StockType,
			ImageURL:       line.ImageURL,
			Weight:         line.Weight,
			Quantity:       line.Quantity,
		}
		if showPrices {
			price := line.Price
			lv.Price = &price
		}
		v.Items = append(v.Items, lv)
	}
	if showPrices {
		sub := c.Subtotal()
		v.Subtotal = &sub
	}
	return v
}
