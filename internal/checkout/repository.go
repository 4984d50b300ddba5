package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/introcar/introcar-backend/internal/repo"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/enums"
	"github.com/introcar/introcar-backend/pkg/square"
)

// Repository persists orders and their lines.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) (*Repository, error) {
	base, err := repo.NewBase(db)
	if err != nil {
		return nil, err
	}
	return &Repository{Base: base}, nil
}

// CreateTx inserts the order and its lines inside tx.
func (r *Repository) CreateTx(tx *gorm.DB, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Lines {
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
		order.Lines[i].OrderID = order.ID
	}
	if err := tx.Create(order).Error; err != nil {
		return repo.Translate(err, "order")
	}
	return nil
}

// AttachPaymentLinkTx stores the hosted payment link on a pending order.
func (r *Repository) AttachPaymentLinkTx(tx *gorm.DB, id uuid.UUID, link square.PaymentLink) error {
	updates := map[string]any{
		"payment_link_id": link.ID,
		"payment_url":     link.URL,
	}
	if link.OrderID != "" {
		updates["provider_order_id"] = link.OrderID
	}
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPendingPayment).
		Updates(updates)
	if res.Error != nil {
		return repo.Translate(res.Error, "order")
	}
	if res.RowsAffected == 0 {
		return repo.Translate(gorm.ErrRecordNotFound, "order")
	}
	return nil
}

// FindByProviderOrderTx loads the order a payment provider order belongs to,
// locking the row for the rest of tx.
func (r *Repository) FindByProviderOrderTx(tx *gorm.DB, providerOrderID string) (*models.Order, error) {
	var row models.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "provider_order_id = ?", providerOrderID).Error
	if err != nil {
		return nil, repo.Translate(err, "order")
	}
	return &row, nil
}

// ListStalePending returns hosted orders still awaiting payment that were
// placed before cutoff, oldest first.
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.DB(ctx).
		Where("kind = ? AND status = ? AND created_at < ?", enums.OrderKindHosted, enums.OrderStatusPendingPayment, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, repo.Translate(err, "order")
	}
	return rows, nil
}

// SettleTx moves a pending order to status, recording the provider payment.
// It reports false when the order already left pending_payment.
func (r *Repository) SettleTx(tx *gorm.DB, id uuid.UUID, status enums.OrderStatus, paymentID string) (bool, error) {
	updates := map[string]any{"status": status}
	if paymentID != "" {
		updates["provider_payment_id"] = paymentID
	}
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPendingPayment).
		Updates(updates)
	if res.Error != nil {
		return false, repo.Translate(res.Error, "order")
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	res := r.DB(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return repo.Translate(res.Error, "order")
	}
	if res.RowsAffected == 0 {
		return repo.Translate(gorm.ErrRecordNotFound, "order")
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var row models.Order
	err := r.DB(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("sku ASC") }).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, repo.Translate(err, "order")
	}
	return &row, nil
}
