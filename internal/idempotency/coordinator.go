package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expense-ledger/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidKey = errors.New("idempotency key must be a valid UUID")

// Store is the authoritative durable key-to-response map. Get returns
// (nil, nil) on a miss. Insert is the single serialization point for
// concurrent first-writers: it must be atomic insert-if-absent and return
// inserted=false when another writer already owns the key.
type Store interface {
	Get(ctx context.Context, key uuid.UUID) (*models.IdempotencyRecord, error)
	Insert(ctx context.Context, rec *models.IdempotencyRecord) (inserted bool, err error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Cache is an optional best-effort accelerator in front of the Store.
// Get returns (nil, nil) on a miss. Failures never fail a request.
type Cache interface {
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	Set(ctx context.Context, key string, rec *models.IdempotencyRecord) error
}

// Action produces the response to be cached under an idempotency key.
// It runs at most once per Execute call.
type Action func(ctx context.Context) (status int, body []byte, err error)

// ValidKey reports whether s is a canonical hyphenated UUID string.
func ValidKey(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Coordinator runs a write action at most once per idempotency key and
// replays the recorded response on every later request bearing that key.
type Coordinator struct {
	store  Store
	cache  Cache
	logger *zap.Logger
}

// NewCoordinator builds a Coordinator. cache may be nil; the store alone
// is sufficient for correctness.
func NewCoordinator(store Store, cache Cache, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Execute returns the response recorded under key, or runs action exactly
// once and records its response. A concurrent first-writer losing the
// insert race is benign: the same key implies the same request, so the
// loser returns its own result without treating the conflict as an error.
//
// If recording the response fails after action succeeded, the successful
// result is still returned and the failure is logged; a retry with the
// same key will re-run the action (at-least-once in this degraded case).
func (c *Coordinator) Execute(ctx context.Context, key string, action Action) (int, []byte, error) {
	if !ValidKey(key) {
		return 0, nil, ErrInvalidKey
	}
	id := uuid.MustParse(key)

	if c.cache != nil {
		rec, err := c.cache.Get(ctx, key)
		if err != nil {
			c.logger.Warn("idempotency cache read failed",
				zap.String("key", key),
				zap.Error(err),
			)
		} else if rec != nil {
			return rec.ResponseStatus, rec.ResponseBody, nil
		}
	}

	rec, err := c.store.Get(ctx, id)
	if err != nil {
		return 0, nil, fmt.Errorf("idempotency store read: %w", err)
	}
	if rec != nil {
		c.populateCache(ctx, key, rec)
		return rec.ResponseStatus, rec.ResponseBody, nil
	}

	status, body, err := action(ctx)
	if err != nil {
		// Key stays unclaimed so a retry can attempt the action again.
		return 0, nil, err
	}

	rec = &models.IdempotencyRecord{
		Key:            id,
		ResponseStatus: status,
		ResponseBody:   body,
	}
	inserted, err := c.store.Insert(ctx, rec)
	if err != nil {
		c.logger.Error("failed to record idempotent response; a retry with this key may re-run the action",
			zap.String("key", key),
			zap.Error(err),
		)
		return status, body, nil
	}
	if !inserted {
		// Lost the first-writer race. The winner recorded the same
		// request's response, so our result matches theirs.
		c.logger.Debug("idempotency key already recorded by concurrent writer",
			zap.String("key", key),
		)
		return status, body, nil
	}

	c.populateCache(ctx, key, rec)
	return status, body, nil
}

func (c *Coordinator) populateCache(ctx context.Context, key string, rec *models.IdempotencyRecord) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, rec); err != nil {
		c.logger.Warn("idempotency cache write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
