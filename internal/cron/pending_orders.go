package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/enums"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/outbox"
	"github.com/introcar/introcar-backend/pkg/outbox/payloads"
)

type pendingOrderStore interface {
	Tx(ctx context.Context, fn func(tx *gorm.DB) error) error
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	SettleTx(tx *gorm.DB, id uuid.UUID, status enums.OrderStatus, paymentID string) (bool, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PendingOrderExpiry cancels hosted orders whose payment link was never
// completed within ttl.
type PendingOrderExpiry struct {
	orders pendingOrderStore
	outbox outboxEmitter
	ttl    time.Duration
	batch  int
	logg   *logger.Logger
	now    func() time.Time
}

func NewPendingOrderExpiry(orders pendingOrderStore, publisher outboxEmitter, ttl time.Duration, batch int, logg *logger.Logger) (*PendingOrderExpiry, error) {
	if orders == nil {
		return nil, errors.New("order store required")
	}
	if publisher == nil {
		return nil, errors.New("outbox publisher required")
	}
	if ttl <= 0 {
		return nil, errors.New("pending order ttl must be positive")
	}
	if batch <= 0 {
		return nil, errors.New("batch size must be positive")
	}
	return &PendingOrderExpiry{
		orders: orders,
		outbox: publisher,
		ttl:    ttl,
		batch:  batch,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (j *PendingOrderExpiry) Name() string { return "expire-pending-orders" }

func (j *PendingOrderExpiry) Run(ctx context.Context) (int64, error) {
	now := j.now().UTC()
	stale, err := j.orders.ListStalePending(ctx, now.Add(-j.ttl), j.batch)
	if err != nil {
		return 0, fmt.Errorf("list stale orders: %w", err)
	}

	var (
		expired int64
		errs    error
	)
	for _, order := range stale {
		ok, err := j.expire(ctx, order, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, errs
}

func (j *PendingOrderExpiry) expire(ctx context.Context, order models.Order, now time.Time) (bool, error) {
	var changed bool
	err := j.orders.Tx(ctx, func(tx *gorm.DB) error {
		var err error
		changed, err = j.orders.SettleTx(tx, order.ID, enums.OrderStatusCanceled, "")
		if err != nil {
			return err
		}
		if !changed {
			// settled since it was listed
			return nil
		}
		event := payloads.OrderExpiredEvent{
			OrderID:   order.ID,
			PlacedAt:  order.CreatedAt,
			ExpiredAt: now,
		}
		if order.PaymentLinkID != nil {
			event.PaymentLinkID = *order.PaymentLinkID
		}
		return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data:          event,
		})
	})
	if err == nil && changed && j.logg != nil {
		j.logg.Info(j.logg.WithField(ctx, "order_id", order.ID.String()), "unpaid order expired")
	}
	return changed, err
}
