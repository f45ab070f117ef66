package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake store for cache tests ---

type countingStore struct {
	snaps     map[string]domain.PredictionSnapshot
	loadCalls int
	saveErr   error
}

func newCountingStore() *countingStore {
	return &countingStore{snaps: make(map[string]domain.PredictionSnapshot)}
}

func (m *countingStore) Save(_ context.Context, snap domain.PredictionSnapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snaps[snap.Slug] = snap
	return nil
}

func (m *countingStore) Load(_ context.Context, slug string) (domain.PredictionSnapshot, error) {
	m.loadCalls++
	snap, ok := m.snaps[slug]
	if !ok {
		return domain.PredictionSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (m *countingStore) List(_ context.Context) ([]string, error) {
	return []string{"listed"}, nil
}

// --- CachedStore tests ---

func TestCachedStore_LoadHit(t *testing.T) {
	inner := newCountingStore()
	inner.snaps["maros"] = testSnapshot("maros", 0.2, time.Now())
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedStore(inner, 10, metrics)

	_, err := cached.Load(context.Background(), "maros")
	require.NoError(t, err)
	_, err = cached.Load(context.Background(), "maros")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.loadCalls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.StoreCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.StoreCache.WithLabelValues("miss")), 0)
}

func TestCachedStore_SaveWritesThrough(t *testing.T) {
	inner := newCountingStore()
	cached := NewCachedStore(inner, 10, observability.NewMetricsForTesting())
	ctx := context.Background()

	snap := testSnapshot("bone", 0.5, time.Now())
	require.NoError(t, cached.Save(ctx, snap))
	assert.Contains(t, inner.snaps, "bone")

	got, err := cached.Load(ctx, "bone")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.Equal(t, 0, inner.loadCalls)
}

func TestCachedStore_FailedSaveNotCached(t *testing.T) {
	inner := newCountingStore()
	cached := NewCachedStore(inner, 10, observability.NewMetricsForTesting())
	ctx := context.Background()

	inner.saveErr = errors.New("disk full")
	err := cached.Save(ctx, testSnapshot("wajo", 0.5, time.Now()))
	require.Error(t, err)

	_, err = cached.Load(ctx, "wajo")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCachedStore_MissNotCached(t *testing.T) {
	inner := newCountingStore()
	cached := NewCachedStore(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Load(context.Background(), "gowa")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = cached.Load(context.Background(), "gowa")
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 2, inner.loadCalls, "errors should not be cached")
}

func TestCachedStore_ListDelegates(t *testing.T) {
	cached := NewCachedStore(newCountingStore(), 10, observability.NewMetricsForTesting())
	slugs, err := cached.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"listed"}, slugs)
}

// --- LRU tests ---

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)
	now := time.Now()

	c.put("a", testSnapshot("a", 0.1, now))
	c.put("b", testSnapshot("b", 0.2, now))
	c.put("c", testSnapshot("c", 0.3, now)) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")
	_, ok = c.get("b")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestLRUCache_AccessPromotes(t *testing.T) {
	c := newLRUCache(2)
	now := time.Now()

	c.put("a", testSnapshot("a", 0.1, now))
	c.put("b", testSnapshot("b", 0.2, now))
	c.get("a")                              // a becomes most recent
	c.put("c", testSnapshot("c", 0.3, now)) // evicts "b"

	_, ok := c.get("a")
	assert.True(t, ok)
	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_OlderPutIgnored(t *testing.T) {
	c := newLRUCache(4)
	t0 := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	c.put("a", testSnapshot("a", 0.8, t0.Add(time.Hour)))
	c.put("a", testSnapshot("a", 0.1, t0))

	got, ok := c.get("a")
	require.True(t, ok)
	assert.InDelta(t, 0.8, got.Probability, 1e-9)
}
