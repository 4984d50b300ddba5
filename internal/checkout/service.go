// Package checkout turns a session cart into an order, either handed to the
// hosted payment page or recorded for a reseller to settle by check.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/introcar/introcar-backend/internal/cart"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/enums"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/outbox"
	"github.com/introcar/introcar-backend/pkg/outbox/payloads"
	"github.com/introcar/introcar-backend/pkg/square"
)

type orderStore interface {
	Tx(ctx context.Context, fn func(tx *gorm.DB) error) error
	CreateTx(tx *gorm.DB, order *models.Order) error
	AttachPaymentLinkTx(tx *gorm.DB, id uuid.UUID, link square.PaymentLink) error
	SetStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error
}

type carts interface {
	Load(ctx context.Context, s cart.Session) (cart.Cart, error)
	Clear(ctx context.Context, s cart.Session) error
}

type priceBook interface {
	FindBySKUs(ctx context.Context, skus []string) (map[string]models.Product, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Gateway creates hosted payment pages.
type Gateway interface {
	CreatePaymentLink(ctx context.Context, params square.PaymentLinkParams) (*square.PaymentLink, error)
}

// Storefront is the tenant context an order is placed under.
type Storefront struct {
	Session         cart.Session
	TenantID        *uuid.UUID
	CheckoutEnabled bool
}

// Customer is the buyer contact captured on both checkout forms.
type Customer struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Phone   string `json:"phone" validate:"omitempty,max=50"`
	Address string `json:"address" validate:"omitempty,max=1000"`
}

type HostedInput struct {
	Customer       Customer `json:"customer" validate:"required"`
	IdempotencyKey string   `json:"-"`
}

type ResellerInput struct {
	Customer Customer `json:"customer" validate:"required"`
	PONumber string   `json:"poNumber" validate:"omitempty,max=100"`
	Notes    string   `json:"notes" validate:"omitempty,max=2000"`
}

type ReceiptLine struct {
	SKU            string          `json:"sku"`
	SupersededFrom string          `json:"supersededFrom,omitempty"`
	Description    string          `json:"description"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	LineTotal      decimal.Decimal `json:"lineTotal"`
}

// Receipt is returned to the storefront after an order is captured.
type Receipt struct {
	OrderID    uuid.UUID         `json:"orderId"`
	Kind       enums.OrderKind   `json:"kind"`
	Status     enums.OrderStatus `json:"status"`
	Currency   string            `json:"currency"`
	Total      decimal.Decimal   `json:"total"`
	PaymentURL string            `json:"paymentUrl,omitempty"`
	Lines      []ReceiptLine     `json:"lines"`
}

// Service executes checkout orchestration.
type Service interface {
	Hosted(ctx context.Context, sf Storefront, in HostedInput) (*Receipt, error)
	Reseller(ctx context.Context, sf Storefront, in ResellerInput) (*Receipt, error)
}

type Options struct {
	Currency    string
	RedirectURL string
}

type service struct {
	orders  orderStore
	carts   carts
	prices  priceBook
	outbox  outboxPublisher
	gateway Gateway
	opts    Options
	logg    *logger.Logger
}

// NewService builds the checkout service. A nil gateway leaves reseller
// checkout working and fails hosted checkout with a dependency error.
func NewService(orders orderStore, carts carts, prices priceBook, publisher outboxPublisher, gateway Gateway, opts Options, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if prices == nil {
		return nil, fmt.Errorf("price book required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if strings.TrimSpace(opts.Currency) == "" {
		opts.Currency = "USD"
	}
	opts.Currency = strings.ToUpper(strings.TrimSpace(opts.Currency))
	return &service{
		orders:  orders,
		carts:   carts,
		prices:  prices,
		outbox:  publisher,
		gateway: gateway,
		opts:    opts,
		logg:    logg,
	}, nil
}

func (s *service) Hosted(ctx context.Context, sf Storefront, in HostedInput) (*Receipt, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "hosted checkout is unavailable")
	}
	if sf.Session.CartOff {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart is disabled for this storefront")
	}
	lines, err := s.pricedLines(ctx, sf.Session, true)
	if err != nil {
		return nil, err
	}

	order := s.newOrder(sf, enums.OrderKindHosted, enums.OrderStatusPendingPayment, in.Customer, lines)
	if err := s.place(ctx, sf, order); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = order.ID.String()
	}
	link, err := s.gateway.CreatePaymentLink(ctx, paymentLinkParams(order, s.opts, key))
	if err != nil {
		s.markFailed(ctx, order.ID, err)
		return nil, gatewayError(err)
	}

	err = s.orders.Tx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.AttachPaymentLinkTx(tx, order.ID, *link); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentLinkIssued,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(sf),
			Data: payloads.PaymentLinkIssuedEvent{
				OrderID:       order.ID,
				PaymentLinkID: link.ID,
				PaymentURL:    link.URL,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	order.PaymentURL = &link.URL

	s.clearCart(ctx, sf.Session)
	return receiptOf(order), nil
}

func (s *service) Reseller(ctx context.Context, sf Storefront, in ResellerInput) (*Receipt, error) {
	if sf.TenantID == nil || !sf.CheckoutEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout is not enabled for this storefront")
	}
	if sf.Session.CartOff {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart is disabled for this storefront")
	}
	lines, err := s.pricedLines(ctx, sf.Session, false)
	if err != nil {
		return nil, err
	}

	order := s.newOrder(sf, enums.OrderKindReseller, enums.OrderStatusAwaitingCheck, in.Customer, lines)
	order.PONumber = optional(in.PONumber)
	order.Notes = optional(in.Notes)
	if err := s.place(ctx, sf, order); err != nil {
		return nil, err
	}

	s.clearCart(ctx, sf.Session)
	return receiptOf(order), nil
}

// pricedLines re-prices the cart from current product data. Prices captured
// when the cart was filled are never trusted.
func (s *service) pricedLines(ctx context.Context, sess cart.Session, requirePrice bool) ([]models.OrderLine, error) {
	c, err := s.carts.Load(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, pkgerrors.Invalid("cart is empty", pkgerrors.FieldError{Field: "items", Message: "must not be empty"})
	}

	skus := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		skus = append(skus, item.SKU)
	}
	current, err := s.prices.FindBySKUs(ctx, skus)
	if err != nil {
		return nil, err
	}

	var problems []pkgerrors.FieldError
	lines := make([]models.OrderLine, 0, len(c.Items))
	for _, item := range c.Items {
		product, ok := current[item.SKU]
		switch {
		case !ok || !product.IsActive || product.NLA:
			problems = append(problems, pkgerrors.FieldError{Field: "items." + item.SKU, Message: "is no longer available"})
			continue
		case requirePrice && !product.Price.IsPositive():
			problems = append(problems, pkgerrors.FieldError{Field: "items." + item.SKU, Message: "has no online price"})
			continue
		}
		price := product.Price.Round(2)
		lines = append(lines, models.OrderLine{
			SKU:            item.SKU,
			SupersededFrom: optional(item.SupersededFrom),
			Description:    product.Name,
			UnitPrice:      price,
			Quantity:       item.Quantity,
			LineTotal:      price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	if len(problems) > 0 {
		return nil, pkgerrors.Invalid("cart contains parts that cannot be ordered", problems...)
	}
	return lines, nil
}

func (s *service) newOrder(sf Storefront, kind enums.OrderKind, status enums.OrderStatus, customer Customer, lines []models.OrderLine) *models.Order {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal)
	}
	return &models.Order{
		ID:            uuid.New(),
		TenantID:      sf.TenantID,
		Kind:          kind,
		Status:        status,
		CustomerName:  strings.TrimSpace(customer.Name),
		CustomerEmail: strings.ToLower(strings.TrimSpace(customer.Email)),
		CustomerPhone: optional(customer.Phone),
		ShipAddress:   optional(customer.Address),
		Currency:      s.opts.Currency,
		Total:         total,
		Lines:         lines,
	}
}

// place writes the order and its order_placed event in one transaction.
func (s *service) place(ctx context.Context, sf Storefront, order *models.Order) error {
	return s.orders.Tx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.CreateTx(tx, order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(sf),
			Data:          orderPlaced(sf, order),
		})
	})
}

func (s *service) markFailed(ctx context.Context, id uuid.UUID, cause error) {
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "order_id", id.String())
		s.logg.Error(logCtx, "payment link creation failed", cause)
	}
	if err := s.orders.SetStatus(ctx, id, enums.OrderStatusFailed); err != nil && s.logg != nil {
		s.logg.Error(ctx, "mark order failed", err)
	}
}

// clearCart runs after the order is durable; a failure here leaves a stale
// cart but must not fail the checkout.
func (s *service) clearCart(ctx context.Context, sess cart.Session) {
	if err := s.carts.Clear(ctx, sess); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "clear cart after checkout")
	}
}

func gatewayError(err error) error {
	if pkgerrors.Is(err, pkgerrors.CodeValidation) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable, please retry")
}

func paymentLinkParams(order *models.Order, opts Options, key string) square.PaymentLinkParams {
	items := make([]square.LineItem, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, square.LineItem{
			Name:      line.Description,
			SKU:       line.SKU,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return square.PaymentLinkParams{
		ReferenceID:    order.ID.String(),
		Currency:       order.Currency,
		Lines:          items,
		BuyerEmail:     order.CustomerEmail,
		RedirectURL:    opts.RedirectURL,
		IdempotencyKey: key,
	}
}

func orderPlaced(sf Storefront, order *models.Order) payloads.OrderPlacedEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, payloads.OrderLine{
			SKU:            line.SKU,
			SupersededFrom: deref(line.SupersededFrom),
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			LineTotal:      line.LineTotal,
		})
	}
	return payloads.OrderPlacedEvent{
		OrderID:       order.ID,
		Kind:          order.Kind,
		Status:        order.Status,
		TenantSlug:    sf.Session.Tenant,
		CustomerEmail: order.CustomerEmail,
		PONumber:      deref(order.PONumber),
		Currency:      order.Currency,
		Total:         order.Total,
		Lines:         lines,
	}
}

func actorFor(sf Storefront) *outbox.ActorRef {
	return &outbox.ActorRef{TenantID: sf.TenantID, Source: "storefront"}
}

func receiptOf(order *models.Order) *Receipt {
	lines := make([]ReceiptLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, ReceiptLine{
			SKU:            line.SKU,
			SupersededFrom: deref(line.SupersededFrom),
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			LineTotal:      line.LineTotal,
		})
	}
	return &Receipt{
		OrderID:    order.ID,
		Kind:       order.Kind,
		Status:     order.Status,
		Currency:   order.Currency,
		Total:      order.Total,
		PaymentURL: deref(order.PaymentURL),
		Lines:      lines,
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
