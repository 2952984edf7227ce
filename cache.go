package txcache

import (
	"sync"

	"github.com/sirupsen/logrus"
)

/*
Cache implements the transactional, revision-tracked in-memory cache
described by the specification: a weakly-held primary store (store.go)
fronted by a bounded LRU retention tier (lru.go), a per-key append-only
revision log (revision.go), and a snapshot-isolated LiveTransaction
(transaction.go) that buffers reads/writes until Commit folds them back in
under a configurable merge strategy (merge.go).

================================================================================
ARCHITECTURAL OVERVIEW
================================================================================

This generalizes the teacher's (tempuscache) two-structure design (a map
for O(1) lookup plus a doubly linked list for insertion/recency order) by
splitting what tempuscache folded into one Cache.data map into two
cooperating tiers with different reachability rules:

1. primaryStore (weak references, spec §4.3)
   - Source of truth for identity; a key here does not by itself keep its
     entity alive.

2. lruTier (strong references, spec §4.1)
   - The teacher's map[string]*list.Element + container/list.List pairing,
     generalized to hold a strong *V per retained key: the thing that
     keeps a primaryStore entry's weak reference resolvable.

================================================================================
CONCURRENCY MODEL
================================================================================

- sync.Mutex protects primaryStore, lruTier, and the revision log together,
  exactly as tempuscache's single sync.RWMutex protected its map and list
  together (spec §5: "the cache façade serializes mutation").
- There is no background goroutine: spec §5 explicitly rules out internal
  parallelism. The teacher's always-on janitor ticker has no equivalent
  here; the same ticker/select idiom survives instead in
  LiveTransaction.Commit's timeout race, the one place the spec actually
  asks for a race against a clock.

================================================================================
STRUCTURE FIELDS
================================================================================

store     -> weakly-held key→entity map + per-key EntryState
lru       -> bounded strongly-held retention tier
revisions -> per-key append-only revision log
mu        -> guards store, lru, revisions, and stats together
opts      -> resolved CacheOptions (capacity, TTL, hooks)
stats     -> cache performance counters
logger    -> structured lifecycle logging
*/
type Cache[K comparable, V any] struct {
	mu sync.Mutex

	store     *primaryStore[K, V]
	lru       *lruTier[K, *V]
	revisions *revisionLog[K, V]

	opts   options[K, V]
	stats  Stats
	logger *logrus.Logger
}

/*
New initializes and returns a configured Cache.

CONFIGURATION MODEL: functional options, same pattern tempuscache used
(options.go), generalized to the full CacheOptions surface of spec §6.

INITIALIZATION STEPS:
1. Resolve defaults (10000 LRU capacity, 60s TTL, deep-merge/retain-all
   strategies, standard logger).
2. Apply user-provided options.
3. Allocate the primary store, LRU tier, and revision log.

There is no janitor to start: see "CONCURRENCY MODEL" above.
*/
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	resolved := defaultOptions[K, V]()
	for _, opt := range opts {
		opt(&resolved)
	}

	logger := resolved.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel + 1) // effectively silent
	}

	return &Cache[K, V]{
		store:     newPrimaryStore[K, V](),
		lru:       newLRUTier[K, *V](resolved.lruCapacity),
		revisions: newRevisionLog[K, V](),
		opts:      resolved,
		logger:    logger,
	}
}

// getFresh resolves key against the primary store's current state, bypassing
// any transaction's snapshot: the "fresh, not snapshot" read the commit
// loop needs in spec §4.4 step 1. Unlike Get it does not touch Stats: an
// internal commit-time read is not an application-facing cache access.
func (c *Cache[K, V]) getFresh(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, _, ok := c.store.get(key)
	return value, ok
}

// lastCommittedRevision resolves key's last revision against the current
// revision log, bypassing whatever a transaction's snapshot saw at Begin.
// The commit loop needs this fresh value too: a concurrent commit to the
// same key between this transaction's Begin and its own Commit must still
// produce a strictly increasing next revision number (spec §8 property 3).
func (c *Cache[K, V]) lastCommittedRevision(key K) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.revisions.lastRevision(key)
}

// Get delegates to the primary store's weak resolve, recording a hit or
// miss in Stats.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, _, ok := c.store.get(key)
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	c.stats.Hits++
	return value, true
}

// Save iterates the primary store and deep-clones every reachable entry
// into a SavedEntry, suitable for a later Load. Save fails with
// ErrNotStructuredCloneable if any value cannot be cloned; entries already
// appended to the result are discarded in that case.
func (c *Cache[K, V]) Save() ([]SavedEntry[K, V], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []SavedEntry[K, V]
	var saveErr error

	err := c.store.iterate(func(key K, value V, state EntryState) bool {
		cloned, cloneErr := deepClone(value)
		if cloneErr != nil {
			saveErr = wrap(cloneErr, "save")
			return false
		}
		out = append(out, SavedEntry[K, V]{Key: key, Value: cloned, State: state})
		return true
	})
	if err != nil {
		return nil, err
	}
	if saveErr != nil {
		return nil, saveErr
	}
	return out, nil
}

/*
Load installs entries into the cache in order: for each, deep-clone the
value, install it into the primary store and (where state.RetainedLRU)
into the LRU tier, and append a new revision to that key's log.

The revision appended derives from the key's own last revision rather than
a single counter shared across every entry in the call. Spec §4.6 calls
this "a load-local sequence starting at 0", which is exactly what
lastRevision(key)+1 produces the first time a key appears in any log, while
also preserving the revision-monotonicity invariant (spec §8 property 3)
for a key Load revisits that the cache already has history for.

Load does not clear first; callers wanting a replace must Clear() first.
*/
func (c *Cache[K, V]) Load(entries []SavedEntry[K, V]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		cloned, err := deepClone(entry.Value)
		if err != nil {
			return wrap(err, "load")
		}

		strong := c.store.put(entry.Key, cloned, entry.State)
		if entry.State.RetainedLRU {
			c.installToLRU(entry.Key, strong)
		}

		nextRevision := c.revisions.lastRevision(entry.Key) + 1
		c.revisions.append(entry.Key, EntityRevision[V]{Entity: cloned, Revision: nextRevision})
	}

	c.logger.WithField("count", len(entries)).Debug("txcache: load")
	return nil
}

// Clear empties the primary store, the LRU tier, and the revision log.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.clear()
	c.lru.clear()
	c.revisions.clearAll()
	c.logger.Debug("txcache: clear")
}

// BeginTransaction constructs a LiveTransaction from a fresh snapshot of the
// primary store and revision logs.
func (c *Cache[K, V]) BeginTransaction() *LiveTransaction[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.newLiveTransaction()
}

// installCommit installs committed entries (into the LRU tier only where
// state.RetainedLRU) and appends each key's committed revisions, atomically
// relative to other committed transactions: the whole call runs under the
// cache's single mutex (spec §4.6 commit_transaction).
func (c *Cache[K, V]) installCommit(entries []SavedEntry[K, V], revisions map[K][]EntityRevision[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		strong := c.store.put(entry.Key, entry.Value, entry.State)
		if entry.State.RetainedLRU {
			c.installToLRU(entry.Key, strong)
		}
	}
	for key, revs := range revisions {
		c.revisions.appendMany(key, revs)
	}
}

// Entries iterates every reachable (key, entity, state) in the primary
// store.
func (c *Cache[K, V]) Entries(yield func(K, V, EntryState) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.iterate(yield)
}

// Keys iterates every reachable key in the primary store.
func (c *Cache[K, V]) Keys(yield func(K) bool) error {
	return c.Entries(func(k K, _ V, _ EntryState) bool {
		return yield(k)
	})
}

// Values iterates every reachable entity in the primary store.
func (c *Cache[K, V]) Values(yield func(V) bool) error {
	return c.Entries(func(_ K, v V, _ EntryState) bool {
		return yield(v)
	})
}

// EntryRevisions returns the committed revision history for key.
func (c *Cache[K, V]) EntryRevisions(key K) []EntityRevision[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.revisions.iter(key)
}

// Stats returns a snapshot of the cache's runtime counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stats
}
