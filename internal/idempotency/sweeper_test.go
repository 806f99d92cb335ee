package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"expense-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func seedRecord(store *memStore, age time.Duration) uuid.UUID {
	key := uuid.New()
	store.records[key] = models.IdempotencyRecord{
		Key:            key,
		ResponseStatus: 201,
		ResponseBody:   []byte(`{}`),
		CreatedAt:      time.Now().UTC().Add(-age),
	}
	return key
}

func TestSweepRemovesOnlyRecordsPastHorizon(t *testing.T) {
	store := newMemStore()
	expired := seedRecord(store, 25*time.Hour)
	fresh := seedRecord(store, time.Hour)

	sweeper := NewSweeper(store, 24*time.Hour, time.Hour, zap.NewNop())
	sweeper.Sweep(context.Background())

	assert.Equal(t, 1, store.len())
	rec, err := store.Get(context.Background(), fresh)
	assert.NoError(t, err)
	assert.NotNil(t, rec, "fresh record must survive")
	rec, err = store.Get(context.Background(), expired)
	assert.NoError(t, err)
	assert.Nil(t, rec, "expired record must be purged")
}

func TestSweepIsIdempotent(t *testing.T) {
	store := newMemStore()
	seedRecord(store, 48*time.Hour)
	seedRecord(store, 30*time.Hour)
	seedRecord(store, time.Minute)

	sweeper := NewSweeper(store, 24*time.Hour, time.Hour, zap.NewNop())
	sweeper.Sweep(context.Background())
	assert.Equal(t, 1, store.len())

	// Second run in a row deletes nothing.
	sweeper.Sweep(context.Background())
	assert.Equal(t, 1, store.len())
}

func TestSweepFailureDoesNotStopLaterRuns(t *testing.T) {
	store := newMemStore()
	seedRecord(store, 48*time.Hour)
	store.deleteErr = errors.New("store down")

	sweeper := NewSweeper(store, 24*time.Hour, time.Hour, zap.NewNop())
	sweeper.Sweep(context.Background())
	assert.Equal(t, 1, store.len(), "failed sweep leaves records in place")

	store.deleteErr = nil
	sweeper.Sweep(context.Background())
	assert.Equal(t, 0, store.len(), "next run succeeds after a failure")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newMemStore()
	sweeper := NewSweeper(store, 24*time.Hour, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
