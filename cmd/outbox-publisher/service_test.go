package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/introcar/introcar-backend/pkg/config"
	"github.com/introcar/introcar-backend/pkg/db/models"
	"github.com/introcar/introcar-backend/pkg/enums"
	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/outbox"
	"github.com/introcar/introcar-backend/pkg/outbox/payloads"
	"github.com/introcar/introcar-backend/pkg/outbox/registry"
)

func orderEvent(t *testing.T, orderID uuid.UUID, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	t.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       mustEnvelopePayload(t, string(eventType)),
		AttemptCount:  attempts,
		CreatedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func ordersRegistry() *fakeRegistry {
	return &fakeRegistry{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: "introcar-orders"},
		Payload:    &payloads.OrderPlacedEvent{},
	}}
}

func TestDrainHoldsLaterEventsOfAFailedOrder(t *testing.T) {
	orderA, orderB := uuid.New(), uuid.New()
	placedA := orderEvent(t, orderA, enums.EventOrderPlaced, 0)
	linkA := orderEvent(t, orderA, enums.EventPaymentLinkIssued, 0)
	placedB := orderEvent(t, orderB, enums.EventOrderPlaced, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{placedA, linkA, placedB}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: status.Error(codes.Unavailable, "try later")},
		fakePublishResult{},
	}}
	service := newTestService(t, repo, pub, ordersRegistry(), &fakeDLQRepo{}, nil)

	out, err := service.drain(context.Background())
	if err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(out.failed) != 1 || out.failed[0] != placedA.ID {
		t.Fatalf("expected placedA to fail, got %v", out.failed)
	}
	if len(out.held) != 1 || out.held[0] != linkA.ID {
		t.Fatalf("expected linkA held behind placedA, got %v", out.held)
	}
	if len(repo.published) != 1 || repo.published[0] != placedB.ID {
		t.Fatalf("expected the other order to publish, got %v", repo.published)
	}
	if len(pub.sent) != 2 {
		t.Fatalf("held event must not reach Pub/Sub, sent %d", len(pub.sent))
	}
	if len(pub.resumed) != 1 || pub.resumed[0] != orderA.String() {
		t.Fatalf("expected ordering key of orderA resumed, got %v", pub.resumed)
	}
}

func TestOrderMessageKeysByOrder(t *testing.T) {
	orderID := uuid.New()
	tenantID := uuid.New()
	event := orderEvent(t, orderID, enums.EventOrderPaymentSettled, 0)
	msg := orderMessage(event, outbox.PayloadEnvelope{
		Version: 1,
		EventID: "evt-1",
		Actor:   &outbox.ActorRef{TenantID: &tenantID, Source: "square_webhook"},
	})

	if msg.OrderingKey != orderID.String() {
		t.Fatalf("expected ordering key %s, got %s", orderID, msg.OrderingKey)
	}
	want := map[string]string{
		"event_id":       "evt-1",
		"event_type":     "order_payment_settled",
		"aggregate_id":   orderID.String(),
		"schema_version": "1",
		"tenant_id":      tenantID.String(),
		"source":         "square_webhook",
		"created_at":     "2026-03-14T09:30:00Z",
	}
	for k, v := range want {
		if msg.Attributes[k] != v {
			t.Fatalf("attribute %s: expected %q, got %q", k, v, msg.Attributes[k])
		}
	}
	if !bytes.Equal(msg.Data, event.Payload) {
		t.Fatal("expected the stored envelope as message data")
	}
}

func TestSettlementEventsGetLargerAttemptBudget(t *testing.T) {
	budgets := newAttemptBudgets(config.OutboxConfig{MaxAttempts: 3, SettlementMaxAttempts: 8})
	if got := budgets.of(enums.EventOrderPaymentSettled); got != 8 {
		t.Fatalf("expected settlement budget 8, got %d", got)
	}
	if got := budgets.of(enums.EventOrderExpired); got != 3 {
		t.Fatalf("expected base budget 3, got %d", got)
	}
	if got := budgets.ceiling(); got != 8 {
		t.Fatalf("expected ceiling 8, got %d", got)
	}

	orderID := uuid.New()
	settled := orderEvent(t, orderID, enums.EventOrderPaymentSettled, 3)
	expired := orderEvent(t, uuid.New(), enums.EventOrderExpired, 2)
	repo := &fakeRepo{events: []models.OutboxEvent{settled, expired}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("deadline exceeded")},
		fakePublishResult{err: errors.New("deadline exceeded")},
	}}
	dlq := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, ordersRegistry(), dlq, &config.OutboxConfig{
		BatchSize:             10,
		PollIntervalMS:        100,
		MaxAttempts:           3,
		SettlementMaxAttempts: 8,
	})

	out, err := service.drain(context.Background())
	if err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if repo.fetchCeiling != 8 {
		t.Fatalf("expected rows fetched below the ceiling, got %d", repo.fetchCeiling)
	}
	if len(out.failed) != 1 || out.failed[0] != settled.ID {
		t.Fatalf("expected settlement to stay retryable, got %v", out.failed)
	}
	if len(dlq.entries) != 1 || dlq.entries[0].EventID != expired.ID {
		t.Fatalf("expected expiry notice dead-lettered, got %+v", dlq.entries)
	}
	if dlq.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", dlq.entries[0].ErrorReason)
	}
	if repo.terminalAttempts != 8 {
		t.Fatalf("expected terminal row pinned at ceiling, got %d", repo.terminalAttempts)
	}
}

func TestDrainDeadLettersPermanentGRPCError(t *testing.T) {
	event := orderEvent(t, uuid.New(), enums.EventOrderPlaced, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: status.Error(codes.NotFound, "topic not found")},
	}}
	dlq := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, ordersRegistry(), dlq, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report processed")
	}
	if len(dlq.entries) != 1 || dlq.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("expected non-retryable dlq entry, got %+v", dlq.entries)
	}
	if len(repo.published) != 0 {
		t.Fatal("expected nothing published")
	}
}

func TestDrainDeadLettersUnresolvableRow(t *testing.T) {
	event := orderEvent(t, uuid.New(), enums.EventOrderPlaced, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("decode order_placed payload"))}
	dlq := &fakeDLQRepo{}
	service := newTestService(t, repo, &fakePublisher{}, reg, dlq, nil)

	out, err := service.drain(context.Background())
	if err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(out.dead) != 1 || len(dlq.entries) != 1 {
		t.Fatalf("expected one dead-lettered row, got %v", out.dead)
	}
	entry := dlq.entries[0]
	if entry.EventID != event.ID || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq entry does not mirror the outbox row: %+v", entry)
	}
	if entry.ErrorMessage == nil || *entry.ErrorMessage != "decode order_placed payload" {
		t.Fatalf("unexpected error message: %v", entry.ErrorMessage)
	}
}

func TestClassifyPublishError(t *testing.T) {
	transient := status.Error(codes.Unavailable, "try later")
	if err := classifyPublishError("t", transient); err != transient {
		t.Fatalf("expected transient error untouched, got %v", err)
	}
	var nonRetry registry.NonRetryableError
	if err := classifyPublishError("t", status.Error(codes.PermissionDenied, "no")); !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable, got %T", err)
	}
}

func TestNextBackoffCaps(t *testing.T) {
	if got := nextBackoff(0, time.Second, 10*time.Second); got != 2*time.Second {
		t.Fatalf("expected 2s, got %s", got)
	}
	if got := nextBackoff(8*time.Second, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      5,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		PublisherFactory: func(string) publisher { return pub },
		DLQRepository:    dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events           []models.OutboxEvent
	published        []uuid.UUID
	failed           []uuid.UUID
	fetchCeiling     int
	terminalAttempts int
}

func (f *fakeRepo) FetchUnpublishedForPublish(_ *gorm.DB, _ int, maxAttempts int) ([]models.OutboxEvent, error) {
	f.fetchCeiling = maxAttempts
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, _ uuid.UUID, _ error, terminalAttempts int) error {
	f.terminalAttempts = terminalAttempts
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error { return nil }

func (f *fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results []publishResult
	sent    []*gcppubsub.Message
	resumed []string
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

func (f *fakePublisher) ResumePublish(key string) {
	f.resumed = append(f.resumed, key)
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
