package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPruner interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OutboxRetention deletes outbox rows published longer ago than retention.
// Unpublished rows are never touched.
type OutboxRetention struct {
	db        txRunner
	repo      outboxPruner
	retention time.Duration
	now       func() time.Time
}

func NewOutboxRetention(db txRunner, repo outboxPruner, retention time.Duration) (*OutboxRetention, error) {
	if db == nil {
		return nil, errors.New("tx runner required")
	}
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	if retention <= 0 {
		return nil, errors.New("retention must be positive")
	}
	return &OutboxRetention{db: db, repo: repo, retention: retention, now: time.Now}, nil
}

func (j *OutboxRetention) Name() string { return "outbox-retention" }

func (j *OutboxRetention) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.repo.DeletePublishedBefore(tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune outbox before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return deleted, nil
}
