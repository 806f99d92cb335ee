package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"expense-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Fakes

type memStore struct {
	mu        sync.Mutex
	records   map[uuid.UUID]models.IdempotencyRecord
	gets      int
	inserts   int
	getErr    error
	insertErr error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[uuid.UUID]models.IdempotencyRecord)}
}

func (s *memStore) Get(ctx context.Context, key uuid.UUID) (*models.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *memStore) Insert(ctx context.Context, rec *models.IdempotencyRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if _, ok := s.records[rec.Key]; ok {
		return false, nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.records[rec.Key] = *rec
	return true, nil
}

func (s *memStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	var removed int64
	for key, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]models.IdempotencyRecord
	getErr  error
	setErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]models.IdempotencyRecord)}
}

func (c *memCache) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	rec, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (c *memCache) Set(ctx context.Context, key string, rec *models.IdempotencyRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = *rec
	return nil
}

func countingAction(runs *int, status int, body []byte) Action {
	return func(ctx context.Context) (int, []byte, error) {
		*runs++
		return status, body, nil
	}
}

// Tests

func TestExecuteRunsActionOnceAndReplays(t *testing.T) {
	store := newMemStore()
	coord := NewCoordinator(store, nil, zap.NewNop())
	key := uuid.NewString()

	runs := 0
	action := countingAction(&runs, 201, []byte(`{"id":"abc"}`))

	status, body, err := coord.Execute(context.Background(), key, action)
	require.NoError(t, err)
	assert.Equal(t, 201, status)
	assert.Equal(t, `{"id":"abc"}`, string(body))
	assert.Equal(t, 1, runs)

	status2, body2, err := coord.Execute(context.Background(), key, action)
	require.NoError(t, err)
	assert.Equal(t, status, status2)
	assert.Equal(t, body, body2)
	assert.Equal(t, 1, runs, "action must not run again for the same key")
	assert.Equal(t, 1, store.len())
}

func TestExecuteDistinctKeysRunSeparately(t *testing.T) {
	store := newMemStore()
	coord := NewCoordinator(store, nil, zap.NewNop())

	runs := 0
	action := countingAction(&runs, 201, []byte(`{"ok":true}`))

	_, _, err := coord.Execute(context.Background(), uuid.NewString(), action)
	require.NoError(t, err)
	_, _, err = coord.Execute(context.Background(), uuid.NewString(), action)
	require.NoError(t, err)

	assert.Equal(t, 2, runs)
	assert.Equal(t, 2, store.len())
}

func TestExecuteRejectsMalformedKeyBeforeStoreAccess(t *testing.T) {
	store := newMemStore()
	coord := NewCoordinator(store, nil, zap.NewNop())

	runs := 0
	action := countingAction(&runs, 201, nil)

	for _, key := range []string{
		"",
		"not-a-uuid",
		"12345678123412341234123456789012",                     // missing hyphens
		"zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz",                 // wrong alphabet
		"  c0ffee00-0000-4000-8000-000000000000",               // surrounding junk
		"c0ffee00-0000-4000-8000-000000000000-trailing-extras", // too long
	} {
		_, _, err := coord.Execute(context.Background(), key, action)
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}

	assert.Equal(t, 0, runs)
	assert.Equal(t, 0, store.gets, "malformed keys must not reach the store")
	assert.Equal(t, 0, store.inserts)
}

func TestExecuteConcurrentFirstWritersConvergeOnOneRecord(t *testing.T) {
	store := newMemStore()
	coord := NewCoordinator(store, nil, zap.NewNop())
	key := uuid.NewString()
	body := []byte(`{"id":"winner"}`)

	const callers = 16
	type result struct {
		status int
		body   string
	}
	results := make(chan result, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, b, err := coord.Execute(context.Background(), key, func(ctx context.Context) (int, []byte, error) {
				return 201, body, nil
			})
			assert.NoError(t, err)
			results <- result{status, string(b)}
		}()
	}
	wg.Wait()
	close(results)

	assert.Equal(t, 1, store.len(), "exactly one record per key")
	for r := range results {
		assert.Equal(t, 201, r.status)
		assert.Equal(t, string(body), r.body)
	}
}

func TestExecuteActionFailureLeavesKeyUnclaimed(t *testing.T) {
	store := newMemStore()
	coord := NewCoordinator(store, nil, zap.NewNop())
	key := uuid.NewString()

	boom := errors.New("transaction failed")
	_, _, err := coord.Execute(context.Background(), key, func(ctx context.Context) (int, []byte, error) {
		return 0, nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.len(), "failed action must not claim the key")

	// A retry with the same key runs the action again.
	runs := 0
	status, _, err := coord.Execute(context.Background(), key, countingAction(&runs, 201, []byte(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, 201, status)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, store.len())
}

func TestExecutePersistFailureStillReturnsResult(t *testing.T) {
	store := newMemStore()
	store.insertErr = errors.New("store down")
	coord := NewCoordinator(store, nil, zap.NewNop())
	key := uuid.NewString()

	runs := 0
	action := countingAction(&runs, 201, []byte(`{"id":"x"}`))

	status, body, err := coord.Execute(context.Background(), key, action)
	require.NoError(t, err, "caller still gets the successful result")
	assert.Equal(t, 201, status)
	assert.Equal(t, `{"id":"x"}`, string(body))
	assert.Equal(t, 0, store.len())

	// Documented degradation: with the record never persisted, a retry
	// re-runs the action (at-least-once, not exactly-once).
	store.insertErr = nil
	_, _, err = coord.Execute(context.Background(), key, action)
	require.NoError(t, err)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 1, store.len())
}

func TestExecuteCacheFastPathSkipsStore(t *testing.T) {
	store := newMemStore()
	cache := newMemCache()
	coord := NewCoordinator(store, cache, zap.NewNop())
	key := uuid.NewString()

	cache.entries[key] = models.IdempotencyRecord{
		Key:            uuid.MustParse(key),
		ResponseStatus: 201,
		ResponseBody:   []byte(`{"cached":true}`),
		CreatedAt:      time.Now().UTC(),
	}

	runs := 0
	status, body, err := coord.Execute(context.Background(), key, countingAction(&runs, 201, nil))
	require.NoError(t, err)
	assert.Equal(t, 201, status)
	assert.Equal(t, `{"cached":true}`, string(body))
	assert.Equal(t, 0, runs)
	assert.Equal(t, 0, store.gets, "cache hit must not touch the store")
}

func TestExecuteReadThroughPopulatesCache(t *testing.T) {
	store := newMemStore()
	cache := newMemCache()
	coord := NewCoordinator(store, cache, zap.NewNop())
	key := uuid.NewString()

	store.records[uuid.MustParse(key)] = models.IdempotencyRecord{
		Key:            uuid.MustParse(key),
		ResponseStatus: 201,
		ResponseBody:   []byte(`{"stored":true}`),
		CreatedAt:      time.Now().UTC(),
	}

	runs := 0
	status, body, err := coord.Execute(context.Background(), key, countingAction(&runs, 201, nil))
	require.NoError(t, err)
	assert.Equal(t, 201, status)
	assert.Equal(t, `{"stored":true}`, string(body))
	assert.Equal(t, 0, runs)

	cached, err := cache.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, cached, "store hit should populate the cache")
	assert.Equal(t, `{"stored":true}`, string(cached.ResponseBody))
}

func TestExecuteCacheFailuresAreBestEffort(t *testing.T) {
	store := newMemStore()
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	coord := NewCoordinator(store, cache, zap.NewNop())
	key := uuid.NewString()

	runs := 0
	status, body, err := coord.Execute(context.Background(), key, countingAction(&runs, 201, []byte(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, 201, status)
	assert.Equal(t, `{}`, string(body))
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, store.len())

	// Replay comes from the authoritative store despite the dead cache.
	status, _, err = coord.Execute(context.Background(), key, countingAction(&runs, 201, nil))
	require.NoError(t, err)
	assert.Equal(t, 201, status)
	assert.Equal(t, 1, runs)
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("c0ffee00-0000-4000-8000-000000000000"))
	assert.True(t, ValidKey(uuid.NewString()))
	assert.False(t, ValidKey(""))
	assert.False(t, ValidKey("c0ffee00000040008000000000000000"))
	assert.False(t, ValidKey("urn:uuid:c0ffee00-0000-4000-8000-000000000000"))
}
