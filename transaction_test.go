package txcache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveTransactionSnapshotIsolation(t *testing.T) {
	cache := New[string, int](WithLRUCapacity[string, int](10))

	seed := cache.BeginTransaction()
	seed.Set("a", 1)
	require.NoError(t, seed.Commit(CommitOptions{}))

	txn := cache.BeginTransaction()

	// A write committed by a different transaction after Begin must not be
	// visible to a transaction that already took its snapshot.
	other := cache.BeginTransaction()
	other.Set("a", 999)
	require.NoError(t, other.Commit(CommitOptions{}))

	value, ok := txn.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, value, "txn's snapshot predates the concurrent commit")
}

func TestLiveTransactionLocalWriteVisibleWithinTransaction(t *testing.T) {
	cache := New[string, int]()

	txn := cache.BeginTransaction()
	txn.Set("a", 7)

	value, ok := txn.Get("a")
	require.True(t, ok)
	assert.Equal(t, 7, value)

	// Not visible to the cache proper until commit.
	_, ok = cache.Get("a")
	assert.False(t, ok)
}

func TestLiveTransactionDeleteIsScopedToTransaction(t *testing.T) {
	cache := New[string, int]()

	seed := cache.BeginTransaction()
	seed.Set("a", 1)
	require.NoError(t, seed.Commit(CommitOptions{}))

	txn := cache.BeginTransaction()
	removed := txn.Delete("a")
	assert.True(t, removed)

	_, ok := txn.Get("a")
	assert.False(t, ok)

	// Delete never reaches the primary store: spec leaves delete scoped to
	// the transaction it ran in.
	value, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, value)
}

func TestCommitDeepMergesAgainstCurrentValue(t *testing.T) {
	cache := New[string, mergeTestUser]()

	first := cache.BeginTransaction()
	first.Set("u:1", mergeTestUser{Name: "ada", Age: 30})
	require.NoError(t, first.Commit(CommitOptions{}))

	second := cache.BeginTransaction()
	second.Set("u:1", mergeTestUser{Age: 31})
	require.NoError(t, second.Commit(CommitOptions{}))

	value, ok := cache.Get("u:1")
	require.True(t, ok)
	assert.Equal(t, mergeTestUser{Name: "ada", Age: 31}, value)
}

func TestCommitAccumulatesRevisionLog(t *testing.T) {
	cache := New[string, int]()

	for i := 1; i <= 3; i++ {
		txn := cache.BeginTransaction()
		txn.Set("a", i)
		require.NoError(t, txn.Commit(CommitOptions{}))
	}

	revs := cache.EntryRevisions("a")
	require.Len(t, revs, 3)
	assert.Equal(t, uint64(1), revs[0].Revision)
	assert.Equal(t, uint64(2), revs[1].Revision)
	assert.Equal(t, uint64(3), revs[2].Revision)
}

func TestCommitRespectsLRUCapacityBound(t *testing.T) {
	cache := New[string, int](WithLRUCapacity[string, int](2))

	for _, key := range []string{"a", "b", "c"} {
		txn := cache.BeginTransaction()
		txn.Set(key, 1)
		require.NoError(t, txn.Commit(CommitOptions{}))
	}

	assert.Equal(t, uint64(1), cache.Stats().Evictions)
}

func TestCommitTimeoutInstallsNothing(t *testing.T) {
	blockUntil := make(chan struct{})
	slowMerge := func(key string, incoming EntityRevision[int], current int, txn *LiveTransaction[string, int]) (int, error) {
		<-blockUntil
		return incoming.Entity, nil
	}

	cache := New[string, int](
		WithEntityMergeStrategy[string, int](slowMerge),
	)

	seed := cache.BeginTransaction()
	seed.Set("a", 1)
	require.NoError(t, seed.Commit(CommitOptions{}))

	txn := cache.BeginTransaction()
	txn.Set("a", 2)

	err := txn.Commit(CommitOptions{Timeout: 10 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommitTimeout))

	value, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, value, "partially-staged commit must not install")

	close(blockUntil)
	// Give the still-running background goroutine a moment to observe the
	// timeout flag and return without installing, before the test exits.
	time.Sleep(20 * time.Millisecond)

	value, ok = cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, value, "the late-finishing goroutine must not install after the timeout already fired")
}

func TestMergeAppliesConfiguredStrategyAndRecordsLocalRevision(t *testing.T) {
	cache := New[string, mergeTestUser]()

	seed := cache.BeginTransaction()
	seed.Set("u:1", mergeTestUser{Name: "ada", Age: 30})
	require.NoError(t, seed.Commit(CommitOptions{}))

	txn := cache.BeginTransaction()
	merged, err := txn.Merge("u:1", EntityRevision[mergeTestUser]{Entity: mergeTestUser{Age: 99}, Revision: 5})
	require.NoError(t, err)
	assert.Equal(t, mergeTestUser{Name: "ada", Age: 99}, merged)

	localRevs := txn.LocalRevisions("u:1")
	require.Len(t, localRevs, 1)
	assert.Equal(t, uint64(5), localRevs[0].Revision)
}
