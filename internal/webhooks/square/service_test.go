package squarewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/introcar/introcar-backend/internal/checkout"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/enums"
	pkgerrors "github.com/introcar/introcar-backend/pkg/errors"
	"github.com/introcar/introcar-backend/pkg/outbox"
	"github.com/introcar/introcar-backend/pkg/outbox/payloads"
)

type fixture struct {
	db  *gorm.DB
	svc *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:squarewebhook_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderLine{}, &models.OutboxEvent{}))

	repo, err := checkout.NewRepository(db)
	require.NoError(t, err)
	svc, err := NewService(repo, outbox.NewService(outbox.NewRepository(db), nil), nil)
	require.NoError(t, err)
	return &fixture{db: db, svc: svc}
}

func (f *fixture) seedOrder(t *testing.T, kind enums.OrderKind, status enums.OrderStatus, providerOrderID string) models.Order {
	t.Helper()
	order := models.Order{
		ID:              uuid.New(),
		Kind:            kind,
		Status:          status,
		CustomerName:    "Ada Driver",
		CustomerEmail:   "ada@example.com",
		Currency:        "USD",
		Total:           decimal.RequireFromString("94.19"),
		ProviderOrderID: &providerOrderID,
	}
	require.NoError(t, f.db.Create(&order).Error)
	return order
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	var row models.Order
	require.NoError(t, f.db.First(&row, "id = ?", id).Error)
	return row
}

func (f *fixture) events(t *testing.T) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.db.Find(&rows).Error)
	return rows
}

func paymentEvent(eventType, orderID, status string) *Event {
	return &Event{
		EventID: "evt_" + uuid.NewString(),
		Type:    eventType,
		Data: EventData{
			Type: "payment",
			ID:   "pay_1",
			Object: EventObject{Payment: &Payment{
				ID:          "pay_1",
				OrderID:     orderID,
				Status:      status,
				AmountMoney: &Money{Amount: 9419, Currency: "usd"},
			}},
		},
	}
}

func TestHandleEventMarksOrderPaid(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, enums.OrderKindHosted, enums.OrderStatusPendingPayment, "sq_order_1")

	require.NoError(t, f.svc.HandleEvent(context.Background(), paymentEvent("payment.updated", "sq_order_1", "COMPLETED")))

	stored := f.reload(t, order.ID)
	assert.Equal(t, enums.OrderStatusPaid, stored.Status)
	require.NotNil(t, stored.ProviderPaymentID)
	assert.Equal(t, "pay_1", *stored.ProviderPaymentID)

	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderPaymentSettled, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var payload payloads.OrderPaymentSettledEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, enums.OrderStatusPaid, payload.Status)
	assert.Equal(t, "USD", payload.Currency)
	assert.True(t, payload.Amount.Equal(decimal.RequireFromString("94.19")), payload.Amount.String())
}

func TestHandleEventSettlesOnce(t *testing.T) {
	f := newFixture(t)
	order := f.seedOrder(t, enums.OrderKindHosted, enums.OrderStatusPendingPayment, "sq_order_2")
	ctx := context.Background()

	require.NoError(t, f.svc.HandleEvent(ctx, paymentEvent("payment.updated", "sq_order_2", "COMPLETED")))
	// a late failure must not undo the payment
	require.NoError(t, f.svc.HandleEvent(ctx, paymentEvent("payment.updated", "sq_order_2", "FAILED")))

	assert.Equal(t, enums.OrderStatusPaid, f.reload(t, order.ID).Status)
	assert.Len(t, f.events(t), 1)
}

func TestHandleEventStatusMapping(t *testing.T) {
	cases := map[string]enums.OrderStatus{
		"COMPLETED": enums.OrderStatusPaid,
		"FAILED":    enums.OrderStatusFailed,
		"CANCELED":  enums.OrderStatusCanceled,
		"APPROVED":  enums.OrderStatusPendingPayment,
		"PENDING":   enums.OrderStatusPendingPayment,
	}
	for paymentStatus, want := range cases {
		t.Run(paymentStatus, func(t *testing.T) {
			f := newFixture(t)
			order := f.seedOrder(t, enums.OrderKindHosted, enums.OrderStatusPendingPayment, "sq_"+paymentStatus)
			require.NoError(t, f.svc.HandleEvent(context.Background(), paymentEvent("payment.created", "sq_"+paymentStatus, paymentStatus)))
			assert.Equal(t, want, f.reload(t, order.ID).Status)
		})
	}
}

func TestHandleEventIgnores(t *testing.T) {
	f := newFixture(t)
	reseller := f.seedOrder(t, enums.OrderKindReseller, enums.OrderStatusAwaitingCheck, "sq_reseller")
	ctx := context.Background()

	require.NoError(t, f.svc.HandleEvent(ctx, paymentEvent("refund.updated", "sq_reseller", "COMPLETED")))
	require.NoError(t, f.svc.HandleEvent(ctx, paymentEvent("payment.updated", "sq_unknown", "COMPLETED")))
	require.NoError(t, f.svc.HandleEvent(ctx, paymentEvent("payment.updated", "sq_reseller", "COMPLETED")))

	assert.Equal(t, enums.OrderStatusAwaitingCheck, f.reload(t, reseller.ID).Status)
	assert.Empty(t, f.events(t))
}

func TestHandleEventRejectsMalformed(t *testing.T) {
	f := newFixture(t)
	err := f.svc.HandleEvent(context.Background(), nil)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	err = f.svc.HandleEvent(context.Background(), &Event{Type: "payment.updated"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

type memoryStore struct {
	keys map[string]bool
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func TestEventGuardClaimAndRelease(t *testing.T) {
	store := &memoryStore{keys: map[string]bool{}}
	guard, err := NewEventGuard(store, time.Hour, "square-webhook")
	require.NoError(t, err)
	ctx := context.Background()

	seen, err := guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, guard.Release(ctx, "evt_1"))
	seen, err = guard.Claim(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = guard.Claim(ctx, "")
	assert.Error(t, err)
}

func TestVerifier(t *testing.T) {
	v := Verifier{SignatureKey: "sig-key", NotificationURL: "https://api.introcar.com/api/webhooks/square"}
	body := []byte(`{"event_id":"evt_1"}`)
	signature := v.Sign(body)

	assert.True(t, v.Valid(body, signature))
	assert.False(t, v.Valid([]byte(`{"event_id":"evt_2"}`), signature))
	assert.False(t, Verifier{SignatureKey: "sig-key", NotificationURL: "https://elsewhere"}.Valid(body, signature))
	assert.False(t, Verifier{}.Valid(body, signature))
}
