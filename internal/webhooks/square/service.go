// Package squarewebhook settles hosted-checkout orders from Square payment
// notifications.
package squarewebhook

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/enums"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/outbox"
	"github.com/introcar/introcar-backend/pkg/outbox/payloads"
)

type orderStore interface {
	Tx(ctx context.Context, fn func(tx *gorm.DB) error) error
	FindByProviderOrderTx(tx *gorm.DB, providerOrderID string) (*models.Order, error)
	SettleTx(tx *gorm.DB, id uuid.UUID, status enums.OrderStatus, paymentID string) (bool, error)
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Event is the Square notification envelope.
type Event struct {
	MerchantID string    `json:"merchant_id"`
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	CreatedAt  string    `json:"created_at"`
	Data       EventData `json:"data"`
}

type EventData struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	Object EventObject `json:"object"`
}

type EventObject struct {
	Payment *Payment `json:"payment"`
}

// Payment is the subset of the Square payment object orders are settled from.
type Payment struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	AmountMoney *Money `json:"amount_money"`
}

// Money is an amount in the currency's smallest unit.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Service applies payment notifications to orders.
type Service struct {
	orders orderStore
	outbox outboxPublisher
	logg   *logger.Logger
}

func NewService(orders orderStore, publisher outboxPublisher, logg *logger.Logger) (*Service, error) {
	if orders == nil {
		return nil, errors.New("order store required")
	}
	if publisher == nil {
		return nil, errors.New("outbox publisher required")
	}
	return &Service{orders: orders, outbox: publisher, logg: logg}, nil
}

// HandleEvent settles the order behind a payment.created or payment.updated
// notification. Other event types, unknown orders and non-terminal payment
// states are acknowledged without changes.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}
	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
	default:
		return nil
	}

	payment := event.Data.Object.Payment
	if payment == nil || strings.TrimSpace(payment.OrderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment order id missing")
	}
	status, terminal := orderStatusFor(payment.Status)
	if !terminal {
		return nil
	}

	ctx = s.withFields(ctx, map[string]any{
		"square_event_id":   event.EventID,
		"square_payment_id": payment.ID,
		"square_order_id":   payment.OrderID,
	})
	return s.orders.Tx(ctx, func(tx *gorm.DB) error {
		order, err := s.orders.FindByProviderOrderTx(tx, payment.OrderID)
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			s.warn(ctx, "payment for unknown order ignored")
			return nil
		}
		if err != nil {
			return err
		}
		if order.Kind != enums.OrderKindHosted {
			s.warn(ctx, "payment for non-hosted order ignored")
			return nil
		}

		changed, err := s.orders.SettleTx(tx, order.ID, status, payment.ID)
		if err != nil {
			return err
		}
		if !changed {
			// a later notification for an order that already settled
			return nil
		}

		amount, currency := order.Total, order.Currency
		if payment.AmountMoney != nil {
			amount = decimal.New(payment.AmountMoney.Amount, -2)
			currency = strings.ToUpper(payment.AmountMoney.Currency)
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaymentSettledEvent{
				OrderID:           order.ID,
				Status:            status,
				ProviderOrderID:   payment.OrderID,
				ProviderPaymentID: payment.ID,
				Amount:            amount,
				Currency:          currency,
			},
		})
	})
}

// orderStatusFor maps a Square payment status onto an order status. APPROVED
// and PENDING are not final.
func orderStatusFor(paymentStatus string) (enums.OrderStatus, bool) {
	switch strings.ToUpper(paymentStatus) {
	case "COMPLETED":
		return enums.OrderStatusPaid, true
	case "FAILED":
		return enums.OrderStatusFailed, true
	case "CANCELED":
		return enums.OrderStatusCanceled, true
	default:
		return "", false
	}
}

func (s *Service) withFields(ctx context.Context, fields map[string]any) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, fields)
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Warn(ctx, msg)
	}
}
